package utils

import (
	"testing"
	"time"

	"compareeconomize/backend/models"
)

func TestClampStatsDays(t *testing.T) {
	for in, want := range map[int]int{1: 7, 7: 7, 30: 30, 180: 180, 500: 180, -3: 7} {
		if got := ClampStatsDays(in); got != want {
			t.Errorf("ClampStatsDays(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestBuildStatsReport(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	p1, p2, p3 := "p1", "p2", "p3"
	ev := func(kind string, pid *string, daysAgo int) models.MarketEvent {
		return models.MarketEvent{Kind: kind, ProductID: pid, CreatedAt: now.AddDate(0, 0, -daysAgo)}
	}
	events := []models.MarketEvent{
		ev(models.EventView, &p1, 0),
		ev(models.EventView, &p1, 1),
		ev(models.EventView, &p2, 1),
		ev(models.EventClick, &p2, 2),
		ev(models.EventClick, nil, 2),
		ev(models.EventComparison, &p3, 6),
		ev(models.EventView, &p3, 7), // outside a 7 day window
	}
	names := map[string]string{"p1": "Arroz", "p2": "Feijão"}

	r := BuildStatsReport(events, names, 7, now)

	if r.Days != 7 || len(r.Daily) != 7 {
		t.Fatalf("days = %d, daily = %d", r.Days, len(r.Daily))
	}
	if r.Daily[0].Date != "04/03" || r.Daily[6].Date != "10/03" {
		t.Fatalf("dates: %s .. %s", r.Daily[0].Date, r.Daily[6].Date)
	}
	if r.Daily[6].Visualizacoes != 1 || r.Daily[5].Visualizacoes != 2 || r.Daily[4].Cliques != 2 || r.Daily[0].Comparacoes != 1 {
		t.Fatalf("daily buckets: %+v", r.Daily)
	}
	if r.Totals != (StatsTotals{Views: 3, Clicks: 2, Comparisons: 1}) || r.Stats != r.Totals || r.Views != 3 {
		t.Fatalf("totals: %+v", r.Totals)
	}
	if len(r.TopProducts) != 3 || r.TopProducts[0].Name != "Arroz" || r.TopProducts[1].Name != "Feijão" || r.TopProducts[2].Name != "p3" {
		t.Fatalf("top products: %+v", r.TopProducts)
	}
	if r.TopProducts[1].Clicks != 1 {
		t.Fatalf("feijão clicks: %+v", r.TopProducts[1])
	}
	wantConversion := []int{3, 1, 0, 0}
	for i, w := range wantConversion {
		if r.Conversion[i].Value != w {
			t.Fatalf("conversion[%d] = %d, want %d", i, r.Conversion[i].Value, w)
		}
	}
	if r.Conversion[1].Name != "Cliques em detalhes" || len(r.CategoryTotals) != 3 {
		t.Fatalf("unexpected conversion/category: %+v %+v", r.Conversion, r.CategoryTotals)
	}
}

func TestBuildStatsReportTopFiveTies(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	var events []models.MarketEvent
	for _, id := range []string{"f", "e", "d", "c", "b", "a"} {
		pid := id
		events = append(events, models.MarketEvent{Kind: models.EventView, ProductID: &pid, CreatedAt: now})
	}
	r := BuildStatsReport(events, nil, 30, now)
	if len(r.TopProducts) != 5 || r.TopProducts[0].Name != "a" || r.TopProducts[4].Name != "e" {
		t.Fatalf("ties should sort by name: %+v", r.TopProducts)
	}
}
