package controllers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/utils"
)

func TestRecordEventValidation(t *testing.T) {
	e := newEnv(t)
	owner, _ := e.register("owner@x.com", "business")
	b := e.createBusiness(owner, "Padaria")
	m := e.createMarket(owner, b.ID, "Loja")

	if w := e.do(http.MethodPost, "/api/stats/events", gin.H{"marketId": m.ID, "kind": "like"}, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("bad kind: %d", w.Code)
	}
	if w := e.do(http.MethodPost, "/api/stats/events", gin.H{"marketId": "nope", "kind": "view"}, ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown market: %d", w.Code)
	}
	if w := e.do(http.MethodPost, "/api/stats/events", gin.H{"marketId": m.ID, "kind": "view"}, ""); w.Code != http.StatusCreated {
		t.Fatalf("record: %d", w.Code)
	}
}

func TestBusinessStatsReport(t *testing.T) {
	e := newEnv(t)
	owner, _ := e.register("owner@x.com", "business")
	other, _ := e.register("other@x.com", "business")
	b := e.createBusiness(owner, "Padaria")
	m := e.createMarket(owner, b.ID, "Loja")
	e.do(http.MethodPost, "/api/products", gin.H{"id": "arroz", "name": "Arroz"}, owner)

	events := []gin.H{
		{"marketId": m.ID, "productId": "arroz", "kind": "view"},
		{"marketId": m.ID, "productId": "arroz", "kind": "view"},
		{"marketId": m.ID, "productId": "arroz", "kind": "click"},
		{"marketId": m.ID, "kind": "comparison"},
	}
	for _, ev := range events {
		if w := e.do(http.MethodPost, "/api/stats/events", ev, ""); w.Code != http.StatusCreated {
			t.Fatalf("record %v: %d", ev, w.Code)
		}
	}

	w := e.do(http.MethodGet, "/api/stats/business/"+b.ID+"?days=3", nil, owner)
	if w.Code != http.StatusOK {
		t.Fatalf("stats: %d %s", w.Code, w.Body.String())
	}
	var report utils.StatsReport
	decode(t, w, &report)
	if report.Days != utils.MinStatsDays || len(report.Daily) != utils.MinStatsDays {
		t.Fatalf("days not clamped: %d/%d", report.Days, len(report.Daily))
	}
	if report.Totals != (utils.StatsTotals{Views: 2, Clicks: 1, Comparisons: 1}) || report.Stats != report.Totals {
		t.Fatalf("totals: %+v", report.Totals)
	}
	if len(report.TopProducts) != 1 || report.TopProducts[0].Name != "Arroz" || report.TopProducts[0].Views != 2 {
		t.Fatalf("top products: %+v", report.TopProducts)
	}

	w = e.do(http.MethodGet, "/api/stats/business/"+b.ID, nil, owner)
	decode(t, w, &report)
	if report.Days != utils.DefaultStatsDays {
		t.Fatalf("default days: %d", report.Days)
	}

	if w := e.do(http.MethodGet, "/api/stats/business/"+b.ID, nil, other); w.Code != http.StatusForbidden {
		t.Fatalf("stranger: %d", w.Code)
	}
	if w := e.do(http.MethodGet, "/api/stats/business/missing", nil, owner); w.Code != http.StatusNotFound {
		t.Fatalf("missing business: %d", w.Code)
	}
}

func TestExportBusinessStats(t *testing.T) {
	e := newEnv(t)
	owner, _ := e.register("owner@x.com", "business")
	b := e.createBusiness(owner, "Padaria")

	w := e.do(http.MethodGet, "/api/stats/business/"+b.ID+"/export?days=14", nil, owner)
	if w.Code != http.StatusOK {
		t.Fatalf("export: %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/vnd.openxmlformats") {
		t.Fatalf("content type %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "stats-"+b.ID+"-14d.xlsx") {
		t.Fatalf("disposition %s", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Fatal("body is not a zip container")
	}
}
