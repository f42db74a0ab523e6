package main

import (
	"fmt"
	"strconv"
	"strings"

	"order-portal/internal/models"

	"github.com/shopspring/decimal"
)

// parseItems reads name:quantity:price triples. The name may itself
// contain colons.
func parseItems(raw []string) ([]models.LineItem, error) {
	items := make([]models.LineItem, 0, len(raw))
	for _, item := range raw {
		parts := strings.Split(item, ":")
		if len(parts) < 3 {
			return nil, fmt.Errorf("item %q: want name:quantity:price", item)
		}
		n := len(parts)
		name := strings.TrimSpace(strings.Join(parts[:n-2], ":"))
		if name == "" {
			return nil, fmt.Errorf("item %q: empty name", item)
		}

		qty, err := strconv.Atoi(strings.TrimSpace(parts[n-2]))
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("item %q: quantity must be a positive integer", item)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(parts[n-1]))
		if err != nil || !price.IsPositive() {
			return nil, fmt.Errorf("item %q: price must be a positive amount", item)
		}

		items = append(items, models.LineItem{Name: name, Quantity: qty, Price: price})
	}
	return items, nil
}
