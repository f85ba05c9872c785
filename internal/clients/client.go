// Package clients wraps the remote cart and coupon services. Each client
// returns the server payload unmodified and maps failures onto the auth,
// network and validation error kinds.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/metrics"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/patterns"
)

type tokenKey struct{}

// WithToken attaches the bearer credential used by every client call.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer credential carried by ctx.
func TokenFrom(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey{}).(string)
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

// Options configures a client.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	BulkheadSize int
	BulkheadWait time.Duration
	// Service labels metrics with the calling service name.
	Service string
	Logger  log.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = patterns.DefaultTimeout
	}
	if o.BulkheadSize <= 0 {
		o.BulkheadSize = 10
	}
	if o.BulkheadWait <= 0 {
		o.BulkheadWait = patterns.DefaultBulkheadWait
	}
	if o.Service == "" {
		o.Service = "storefront-service"
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
	return o
}

// transport is the shared request layer: credential, request id, bulkhead,
// circuit breaker and status classification.
type transport struct {
	name     string
	http     *resty.Client
	breaker  *patterns.CircuitBreakerWrapper
	bulkhead *patterns.Bulkhead
	logger   log.FieldLogger
}

func newTransport(name string, opts Options) *transport {
	opts = opts.withDefaults()
	return &transport{
		name: name,
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetTimeout(opts.Timeout).
			SetRetryCount(0), // No automatic retries, failures surface through the breaker
		breaker:  patterns.NewCircuitBreaker(name, opts.Service, countsAsSuccess),
		bulkhead: patterns.NewBulkhead(opts.BulkheadSize, opts.BulkheadWait, strings.ToLower(name), opts.Service),
		logger:   opts.Logger.WithField("target", name),
	}
}

func (t *transport) do(ctx context.Context, op, method, path string, prepare func(*resty.Request), out interface{}) error {
	token, ok := TokenFrom(ctx)
	if !ok {
		return NewAuthError(op, "missing credential")
	}

	start := time.Now()
	err := t.bulkhead.Execute(ctx, func() error {
		_, cbErr := t.breaker.Execute(func() (interface{}, error) {
			req := t.http.R().
				SetContext(ctx).
				SetAuthToken(token).
				SetHeader("Content-Type", "application/json").
				SetHeader("X-Request-ID", uuid.NewString())
			if prepare != nil {
				prepare(req)
			}

			resp, httpErr := req.Execute(method, path)
			if httpErr != nil {
				return nil, NewNetworkError(op, httpErr)
			}
			if err := classify(op, resp); err != nil {
				return nil, err
			}
			if out == nil || len(bytes.TrimSpace(resp.Body())) == 0 {
				return nil, nil
			}
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return nil, &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode(), Message: "failed to parse response", Cause: err}
			}
			return nil, nil
		})
		return patterns.FormatError(t.name, cbErr)
	})

	if err != nil {
		if _, ok := AsError(err); !ok {
			err = NewNetworkError(op, err)
		}
	}

	outcome := "ok"
	if err != nil {
		outcome = KindOf(err).String()
		t.logger.WithFields(log.Fields{
			"operation": op,
			"kind":      outcome,
		}).WithError(err).Warn("Downstream call failed")
	}
	metrics.OutboundRequestDuration.WithLabelValues(t.name, op, outcome).Observe(time.Since(start).Seconds())

	return err
}

func classify(op string, resp *resty.Response) error {
	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		return nil
	}

	var body models.ErrorResponse
	_ = json.Unmarshal(resp.Body(), &body)
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		if msg == "" {
			msg = "credential rejected"
		}
		return &Error{Kind: KindAuth, Op: op, Status: status, Message: msg}
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity:
		return &Error{Kind: KindValidation, Op: op, Status: status, Message: msg, body: resp.Body()}
	default:
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &Error{Kind: KindNetwork, Op: op, Status: status, Message: msg}
	}
}

// CheckCanonicalID rejects identifiers that were not reduced to a single
// string before reaching the request layer.
func CheckCanonicalID(op, field, id string) error {
	if strings.TrimSpace(id) == "" {
		return NewValidationError(op, field+" is required")
	}
	if strings.ContainsAny(id, " \t\r\n\"{}[]") ||
		strings.Contains(id, "object Object") ||
		strings.HasPrefix(id, "ObjectId(") {
		return NewValidationError(op, field+" is not a canonical identifier")
	}
	return nil
}
