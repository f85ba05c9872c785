package cartdb

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestGetMissingCartIsEmpty(t *testing.T) {
	db := openTest(t)
	cart, err := db.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.RestaurantID != "" || len(cart.Lines) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func TestAddMergesQuantityAndKeepsOrder(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	cheese := []models.Addon{{Name: "Cheese", Price: decimal.NewFromInt(30)}}

	if _, err := db.Add(ctx, "u1", "r1", "m1", 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.Add(ctx, "u1", "r1", "m2", 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, err := db.Add(ctx, "u1", "r1", "m1", 2, cheese)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cart.RestaurantID != "r1" || len(cart.Lines) != 2 {
		t.Fatalf("unexpected cart: %+v", cart)
	}
	first := cart.Lines[0]
	if first.MenuItemID != "m1" || first.Quantity != 3 || len(first.Addons) != 1 || first.TempID == "" {
		t.Fatalf("unexpected first line: %+v", first)
	}
	if !first.Addons[0].Price.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("addon price not preserved: %+v", first.Addons)
	}
}

func TestAddRejectsOtherRestaurant(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	if _, err := db.Add(ctx, "u1", "r1", "m1", 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.Add(ctx, "u1", "r2", "m9", 1, nil); !errors.Is(err, ErrRestaurantMismatch) {
		t.Fatalf("expected restaurant mismatch, got %v", err)
	}
	if _, err := db.Clear(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, err := db.Add(ctx, "u1", "r2", "m9", 1, nil)
	if err != nil || cart.RestaurantID != "r2" {
		t.Fatalf("expected switch after clear, got %+v, %v", cart, err)
	}
}

func TestSetQuantityAndRemove(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	if _, err := db.Add(ctx, "u1", "r1", "m1", 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cart, err := db.SetQuantity(ctx, "u1", "m1", 5)
	if err != nil || cart.Lines[0].Quantity != 5 {
		t.Fatalf("unexpected result: %+v, %v", cart, err)
	}
	if _, err := db.SetQuantity(ctx, "u1", "m1", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	if _, err := db.SetQuantity(ctx, "u1", "nope", 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	cart, err = db.Remove(ctx, "u1", "m1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 0 || cart.RestaurantID != "" {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
	if _, err := db.Remove(ctx, "u1", "m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	if _, err := db.Add(ctx, "u1", "r1", "m1", 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.Add(ctx, "u2", "r2", "m9", 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, err := db.Get(ctx, "u1")
	if err != nil || len(cart.Lines) != 1 || cart.RestaurantID != "r1" {
		t.Fatalf("unexpected cart: %+v, %v", cart, err)
	}
}
