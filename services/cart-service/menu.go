package main

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
)

type restaurant struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type menuItem struct {
	ID           string          `json:"_id"`
	RestaurantID string          `json:"restaurant"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	IsVeg        bool            `json:"isVeg"`
	Image        string          `json:"image,omitempty"`
	Addons       []models.Addon  `json:"addons"`
}

// catalog is the menu the cart service prices lines against.
type catalog struct {
	restaurants map[string]restaurant
	items       map[string]menuItem
}

func price(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func seedCatalog() *catalog {
	c := &catalog{
		restaurants: make(map[string]restaurant),
		items:       make(map[string]menuItem),
	}
	for _, r := range []restaurant{
		{ID: "spice-hub", Name: "Spice Hub", Image: "/img/spice-hub.jpg"},
		{ID: "burger-barn", Name: "Burger Barn", Image: "/img/burger-barn.jpg"},
	} {
		c.restaurants[r.ID] = r
	}
	for _, it := range []menuItem{
		{ID: "paneer-tikka", RestaurantID: "spice-hub", Name: "Paneer Tikka", Price: price(200), IsVeg: true,
			Addons: []models.Addon{{Name: "Cheese", Price: price(30)}, {Name: "Extra Gravy", Price: price(20)}}},
		{ID: "dal-makhani", RestaurantID: "spice-hub", Name: "Dal Makhani", Price: price(150), IsVeg: true},
		{ID: "butter-chicken", RestaurantID: "spice-hub", Name: "Butter Chicken", Price: price(280),
			Addons: []models.Addon{{Name: "Butter Naan", Price: price(40)}}},
		{ID: "veg-burger", RestaurantID: "burger-barn", Name: "Veg Burger", Price: price(120), IsVeg: true,
			Addons: []models.Addon{{Name: "Cheese", Price: price(30)}, {Name: "Fries", Price: price(60)}}},
		{ID: "chicken-burger", RestaurantID: "burger-barn", Name: "Chicken Burger", Price: price(160),
			Addons: []models.Addon{{Name: "Fries", Price: price(60)}}},
	} {
		c.items[it.ID] = it
	}
	return c
}

func (c *catalog) item(id string) (menuItem, bool) {
	it, ok := c.items[id]
	return it, ok
}

func (c *catalog) restaurantRef(id string) models.Ref {
	if r, ok := c.restaurants[id]; ok {
		ref := models.Named(r.ID, r.Name)
		ref.Image = r.Image
		return ref
	}
	return models.Bare(id)
}

func (c *catalog) itemRef(it menuItem) models.Ref {
	ref := models.Populated(it.ID, it.Name, it.Price, it.IsVeg)
	ref.Image = it.Image
	return ref.WithRestaurant(c.restaurantRef(it.RestaurantID))
}

// resolveAddons prices the requested addons from the menu. Client prices are
// ignored.
func (c *catalog) resolveAddons(it menuItem, requested []models.Addon) ([]models.Addon, error) {
	out := make([]models.Addon, 0, len(requested))
	for _, want := range requested {
		found := false
		for _, offered := range it.Addons {
			if offered.Name == want.Name {
				out = append(out, offered)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("addon %q is not offered for %s", want.Name, it.Name)
		}
	}
	return out, nil
}

// menu lists a restaurant's items in name order.
func (c *catalog) menu(restaurantID string) []menuItem {
	var out []menuItem
	for _, it := range c.items {
		if restaurantID == "" || it.RestaurantID == restaurantID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
