// Package cartdb persists carts for the reference cart service in SQLite.
package cartdb

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
)

//go:embed schema.sql
var schema string

var (
	ErrNotFound           = errors.New("cart item not found")
	ErrRestaurantMismatch = errors.New("cart holds items from another restaurant")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
)

// Line is a stored cart line.
type Line struct {
	MenuItemID string
	Quantity   int
	Addons     []models.Addon
	TempID     string
}

// Cart is a user's stored cart. RestaurantID is empty when Lines is empty.
type Cart struct {
	UserID       string
	RestaurantID string
	Lines        []Line
}

// DB wraps the SQLite handle.
type DB struct {
	db *sql.DB
}

// Open opens the database at path. ":memory:" is supported for tests and is
// pinned to a single connection so every query sees the same database.
func Open(path string) (*DB, error) {
	dsn := path
	memory := strings.Contains(path, ":memory:")
	if !memory {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cart db: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate cart db: %w", err)
	}
	return nil
}

// Get returns the user's cart. A user without a cart gets an empty one.
func (d *DB) Get(ctx context.Context, userID string) (*Cart, error) {
	return get(ctx, d.db, userID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func get(ctx context.Context, q querier, userID string) (*Cart, error) {
	cart := &Cart{UserID: userID, Lines: []Line{}}
	err := q.QueryRowContext(ctx, `SELECT restaurant_id FROM carts WHERE user_id = ?`, userID).Scan(&cart.RestaurantID)
	if errors.Is(err, sql.ErrNoRows) {
		return cart, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT menu_item_id, quantity, addons_json, temp_id
		FROM cart_items WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line   Line
			addons string
		)
		if err := rows.Scan(&line.MenuItemID, &line.Quantity, &addons, &line.TempID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(addons), &line.Addons); err != nil {
			return nil, fmt.Errorf("decode addons for %s: %w", line.MenuItemID, err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		cart.RestaurantID = ""
	}
	return cart, nil
}

// Add adds quantity units of menuItemID. An existing line has its quantity
// increased and its addons replaced. Adding from a different restaurant
// while the cart is non-empty fails with ErrRestaurantMismatch.
func (d *DB) Add(ctx context.Context, userID, restaurantID, menuItemID string, quantity int, addons []models.Addon) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if addons == nil {
		addons = []models.Addon{}
	}
	encoded, err := json.Marshal(addons)
	if err != nil {
		return nil, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := get(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if len(current.Lines) > 0 && current.RestaurantID != restaurantID {
		return nil, ErrRestaurantMismatch
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO carts (user_id, restaurant_id) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET restaurant_id = excluded.restaurant_id, updated_at = CURRENT_TIMESTAMP`,
		userID, restaurantID)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, menu_item_id, quantity, addons_json, temp_id)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, menu_item_id)
		DO UPDATE SET quantity = quantity + excluded.quantity, addons_json = excluded.addons_json`,
		userID, menuItemID, quantity, string(encoded), uuid.NewString())
	if err != nil {
		return nil, err
	}

	cart, err := get(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	return cart, tx.Commit()
}

// SetQuantity sets a line's quantity.
func (d *DB) SetQuantity(ctx context.Context, userID, menuItemID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	res, err := d.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ? WHERE user_id = ? AND menu_item_id = ?`,
		quantity, userID, menuItemID)
	if err != nil {
		return nil, err
	}
	if err := affected(res); err != nil {
		return nil, err
	}
	return d.Get(ctx, userID)
}

// Remove deletes a line.
func (d *DB) Remove(ctx context.Context, userID, menuItemID string) (*Cart, error) {
	res, err := d.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = ? AND menu_item_id = ?`, userID, menuItemID)
	if err != nil {
		return nil, err
	}
	if err := affected(res); err != nil {
		return nil, err
	}
	return d.Get(ctx, userID)
}

// Clear removes every line and the restaurant binding.
func (d *DB) Clear(ctx context.Context, userID string) (*Cart, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE carts SET restaurant_id = '', updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`, userID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return d.Get(ctx, userID)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
