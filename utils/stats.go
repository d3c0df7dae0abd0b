package utils

import (
	"sort"
	"time"

	"compareeconomize/backend/models"
)

const (
	MinStatsDays     = 7
	MaxStatsDays     = 180
	DefaultStatsDays = 30
)

type DailyStats struct {
	Date          string `json:"date"`
	Visualizacoes int    `json:"visualizacoes"`
	Cliques       int    `json:"cliques"`
	Comparacoes   int    `json:"comparacoes"`
}

type StatsTotals struct {
	Views       int `json:"views"`
	Clicks      int `json:"clicks"`
	Comparisons int `json:"comparisons"`
}

type ProductStats struct {
	Name   string `json:"name"`
	Views  int    `json:"views"`
	Clicks int    `json:"clicks"`
}

type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type StatsReport struct {
	Days           int            `json:"days"`
	Daily          []DailyStats   `json:"daily"`
	Totals         StatsTotals    `json:"totals"`
	TopProducts    []ProductStats `json:"topProducts"`
	Conversion     []NamedValue   `json:"conversion"`
	CategoryTotals []NamedValue   `json:"categoryTotals"`
	Views          int            `json:"views"`
	Clicks         int            `json:"clicks"`
	Comparisons    int            `json:"comparisons"`
	Stats          StatsTotals    `json:"stats"`
}

// ClampStatsDays keeps the window within [MinStatsDays, MaxStatsDays].
func ClampStatsDays(days int) int {
	if days < MinStatsDays {
		return MinStatsDays
	}
	if days > MaxStatsDays {
		return MaxStatsDays
	}
	return days
}

// StatsWindowStart is midnight UTC of the first day in a window ending today.
func StatsWindowStart(now time.Time, days int) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(days - 1))
}

// BuildStatsReport aggregates events into one bucket per day ending at now (UTC).
// productNames maps product ids to display names; unknown ids show the id itself.
func BuildStatsReport(events []models.MarketEvent, productNames map[string]string, days int, now time.Time) StatsReport {
	now = now.UTC()
	start := StatsWindowStart(now, days)

	daily := make([]DailyStats, days)
	for i := range daily {
		daily[i].Date = start.AddDate(0, 0, i).Format("02/01")
	}

	var totals StatsTotals
	perProduct := map[string]*ProductStats{}
	for _, e := range events {
		at := e.CreatedAt.UTC()
		idx := int(at.Sub(start).Hours() / 24)
		if at.Before(start) || idx >= days {
			continue
		}
		switch e.Kind {
		case models.EventView:
			daily[idx].Visualizacoes++
			totals.Views++
		case models.EventClick:
			daily[idx].Cliques++
			totals.Clicks++
		case models.EventComparison:
			daily[idx].Comparacoes++
			totals.Comparisons++
		default:
			continue
		}
		if e.ProductID == nil || *e.ProductID == "" {
			continue
		}
		ps, ok := perProduct[*e.ProductID]
		if !ok {
			name := productNames[*e.ProductID]
			if name == "" {
				name = *e.ProductID
			}
			ps = &ProductStats{Name: name}
			perProduct[*e.ProductID] = ps
		}
		switch e.Kind {
		case models.EventView:
			ps.Views++
		case models.EventClick:
			ps.Clicks++
		}
	}

	top := make([]ProductStats, 0, len(perProduct))
	for _, ps := range perProduct {
		top = append(top, *ps)
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Views != top[j].Views {
			return top[i].Views > top[j].Views
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > 5 {
		top = top[:5]
	}

	return StatsReport{
		Days:        days,
		Daily:       daily,
		Totals:      totals,
		TopProducts: top,
		Conversion: []NamedValue{
			{Name: "Visualizações", Value: totals.Views},
			{Name: "Cliques em detalhes", Value: int(float64(totals.Clicks) * 0.85)},
			{Name: "Rotas iniciadas", Value: int(float64(totals.Clicks) * 0.45)},
			{Name: "Comparações", Value: int(float64(totals.Comparisons) * 0.35)},
		},
		CategoryTotals: []NamedValue{
			{Name: "Visualizações", Value: totals.Views},
			{Name: "Cliques", Value: totals.Clicks},
			{Name: "Comparações", Value: totals.Comparisons},
		},
		Views:       totals.Views,
		Clicks:      totals.Clicks,
		Comparisons: totals.Comparisons,
		Stats:       totals,
	}
}
