package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Ref identifies a catalog entity (menu item or restaurant). The cart service
// may send it as a bare id, a wrapped id ({"$oid": "..."}) or a populated
// document. A populated Ref keeps the display fields; CanonicalID reduces any
// shape to the string used for keys and mutation calls.
type Ref struct {
	ID         string
	Name       string
	Price      decimal.NullDecimal
	IsVeg      bool
	Image      string
	Restaurant *Ref

	populated bool
}

// Bare returns an id-only reference.
func Bare(id string) Ref {
	return Ref{ID: id}
}

// Populated returns a reference carrying display fields.
func Populated(id, name string, price decimal.Decimal, isVeg bool) Ref {
	return Ref{
		ID:        id,
		Name:      name,
		Price:     decimal.NewNullDecimal(price),
		IsVeg:     isVeg,
		populated: true,
	}
}

// Named returns a populated reference with a display name and no price.
func Named(id, name string) Ref {
	return Ref{ID: id, Name: name, populated: true}
}

// IsPopulated reports whether the reference arrived as a full document.
func (r Ref) IsPopulated() bool {
	return r.populated
}

// WithRestaurant returns a copy of r bound to the given restaurant.
func (r Ref) WithRestaurant(restaurant Ref) Ref {
	r.Restaurant = &restaurant
	r.populated = true
	return r
}

// CanonicalID is the only place an identifier is derived from a Ref.
func CanonicalID(r Ref) string {
	return strings.TrimSpace(r.ID)
}

type populatedRef struct {
	ID         json.RawMessage     `json:"_id,omitempty"`
	AltID      json.RawMessage     `json:"id,omitempty"`
	Name       string              `json:"name,omitempty"`
	Price      decimal.NullDecimal `json:"price"`
	IsVeg      bool                `json:"isVeg"`
	Image      string              `json:"image,omitempty"`
	Restaurant *Ref                `json:"restaurant,omitempty"`
}

// UnmarshalJSON accepts every identifier shape the cart service emits.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Ref{}
		return nil
	}

	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Bare(id)
		return nil
	}

	if data[0] != '{' {
		return fmt.Errorf("ref: unsupported json %s", truncate(data))
	}

	var wrapped struct {
		OID *string `json:"$oid"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.OID != nil {
		*r = Bare(*wrapped.OID)
		return nil
	}

	var doc populatedRef
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	raw := doc.ID
	if len(raw) == 0 {
		raw = doc.AltID
	}
	id, err := decodeID(raw)
	if err != nil {
		return err
	}
	*r = Ref{
		ID:         id,
		Name:       doc.Name,
		Price:      doc.Price,
		IsVeg:      doc.IsVeg,
		Image:      doc.Image,
		Restaurant: doc.Restaurant,
		populated:  true,
	}
	return nil
}

// MarshalJSON writes a bare ref as a string and a populated ref as a document.
func (r Ref) MarshalJSON() ([]byte, error) {
	if !r.populated {
		return json.Marshal(r.ID)
	}
	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(populatedRef{
		ID:         id,
		Name:       r.Name,
		Price:      r.Price,
		IsVeg:      r.IsVeg,
		Image:      r.Image,
		Restaurant: r.Restaurant,
	})
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var nested Ref
	if err := nested.UnmarshalJSON(raw); err != nil {
		return "", fmt.Errorf("ref id: %w", err)
	}
	return nested.ID, nil
}

func truncate(b []byte) string {
	const max = 32
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
