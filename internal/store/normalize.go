package store

import (
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/models"
)

// normalize turns a server cart into a Snapshot. Lines that would break the
// store invariants (missing id, quantity below one, negative or missing
// price, foreign restaurant, duplicate key) are dropped and logged. Server
// totals win over the computed line sum whenever they are present.
func normalize(p *models.CartPayload, logger log.FieldLogger) Snapshot {
	snap := emptySnapshot()
	if p == nil {
		return snap
	}

	var restaurant models.Ref
	if p.Restaurant != nil {
		restaurant = *p.Restaurant
	}
	restaurantID := models.CanonicalID(restaurant)

	seen := make(map[string]bool, len(p.Items))
	for i, line := range p.Items {
		id := models.CanonicalID(line.MenuItem)
		entry := logger.WithFields(log.Fields{"line": i, "menu_item": id})

		if id == "" {
			entry.Warn("Dropping cart line without an item id")
			continue
		}
		if line.Quantity < 1 {
			entry.WithField("quantity", line.Quantity).Warn("Dropping cart line with quantity below one")
			continue
		}

		price := line.Price
		if !price.Valid {
			price = line.MenuItem.Price
		}
		if !price.Valid || price.Decimal.IsNegative() {
			entry.Warn("Dropping cart line without a valid unit price")
			continue
		}
		if !addonsValid(line.Addons) {
			entry.Warn("Dropping cart line with an invalid addon")
			continue
		}

		lineRestaurant, lineRef := lineRestaurantOf(line)
		if restaurantID == "" && lineRestaurant != "" {
			restaurantID = lineRestaurant
			restaurant = lineRef
		}
		if lineRestaurant != "" && lineRestaurant != restaurantID {
			entry.WithFields(log.Fields{
				"cart_restaurant": restaurantID,
				"line_restaurant": lineRestaurant,
			}).Warn("Dropping cart line from a different restaurant")
			continue
		}
		if seen[id] {
			entry.Warn("Dropping duplicate cart line")
			continue
		}
		seen[id] = true

		isVeg := line.MenuItem.IsVeg
		if line.IsVeg != nil {
			isVeg = *line.IsVeg
		}
		var addons []models.Addon
		if len(line.Addons) > 0 {
			addons = append(addons, line.Addons...)
		}

		snap.Items = append(snap.Items, LineItem{
			ItemID:    id,
			Item:      line.MenuItem,
			Name:      line.MenuItem.Name,
			UnitPrice: price.Decimal,
			Addons:    addons,
			Quantity:  line.Quantity,
			IsVeg:     isVeg,
			TempID:    line.TempID,
		})
	}

	if len(snap.Items) == 0 {
		restaurantID = ""
		restaurant = models.Ref{}
	}
	for i := range snap.Items {
		snap.Items[i].RestaurantID = restaurantID
	}
	snap.RestaurantID = restaurantID
	snap.Restaurant = restaurant

	computed := decimal.Zero
	count := 0
	for _, it := range snap.Items {
		computed = computed.Add(it.Total())
		count += it.Quantity
	}

	snap.ItemTotal = computed
	if p.TotalPrice.Valid {
		if !p.TotalPrice.Decimal.Equal(computed) {
			logger.WithFields(log.Fields{
				"server_total":   p.TotalPrice.Decimal.String(),
				"computed_total": computed.String(),
			}).Info("Server item total differs from line sum; using server total")
		}
		snap.ItemTotal = p.TotalPrice.Decimal
		snap.ItemTotalFromServer = true
	}

	snap.TotalItems = count
	if p.TotalItems != nil {
		snap.TotalItems = *p.TotalItems
	}
	snap.ServerGrandTotal = p.GrandTotal

	return snap
}

func lineRestaurantOf(line models.CartLinePayload) (string, models.Ref) {
	if line.Restaurant != nil {
		if id := models.CanonicalID(*line.Restaurant); id != "" {
			return id, *line.Restaurant
		}
	}
	if line.MenuItem.Restaurant != nil {
		if id := models.CanonicalID(*line.MenuItem.Restaurant); id != "" {
			return id, *line.MenuItem.Restaurant
		}
	}
	return "", models.Ref{}
}

func addonsValid(addons []models.Addon) bool {
	for _, a := range addons {
		if a.Price.IsNegative() {
			return false
		}
	}
	return true
}
