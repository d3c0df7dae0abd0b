package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"compareeconomize/backend/models"
)

type demoMarket struct {
	name     string
	category string
	lat, lng float64
}

var demoMarkets = []demoMarket{
	{"Supermercado Extra", "mercado", -23.5505, -46.6333},
	{"Carrefour Express", "mercado", -23.5489, -46.6388},
	{"Altas Horas", "conveniencia", -23.5522, -46.6311},
}

// SeedMarkets inserts the demo markets when the catalog is empty and returns how many were created.
func SeedMarkets(ctx context.Context, store Store) (int, error) {
	n, err := store.CountMarkets(ctx)
	if err != nil {
		return 0, fmt.Errorf("count markets: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	inserted := 0
	for _, d := range demoMarkets {
		category, lat, lng := d.category, d.lat, d.lng
		_, err := store.CreateMarket(ctx, models.Market{
			ID:           uuid.NewString(),
			Name:         d.name,
			CategorySlug: &category,
			Latitude:     &lat,
			Longitude:    &lng,
		})
		if err != nil {
			return inserted, fmt.Errorf("seed market %q: %w", d.name, err)
		}
		inserted++
	}
	return inserted, nil
}

// SeedPlans upserts the plan catalog.
func SeedPlans(ctx context.Context, store Store, plans []models.Plan) error {
	for _, p := range plans {
		if err := store.UpsertPlan(ctx, p); err != nil {
			return fmt.Errorf("seed plan %q: %w", p.ID, err)
		}
	}
	return nil
}
