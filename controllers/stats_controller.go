package controllers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
	"compareeconomize/backend/models"
	"compareeconomize/backend/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func RecordEvent(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.EventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		if _, err := store.GetMarket(ctx, req.MarketID); err != nil {
			storeError(c, err, "market not found")
			return
		}
		e := models.MarketEvent{MarketID: req.MarketID, Kind: req.Kind, CreatedAt: time.Now().UTC()}
		if req.ProductID != nil && strings.TrimSpace(*req.ProductID) != "" {
			pid := strings.TrimSpace(*req.ProductID)
			e.ProductID = &pid
		}
		if err := store.RecordEvent(ctx, e); err != nil {
			storeError(c, err, "market not found")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "ok"})
	}
}

func parseStatsDays(raw string) int {
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return utils.DefaultStatsDays
	}
	return utils.ClampStatsDays(days)
}

// buildBusinessReport checks access and aggregates; it writes the error response itself.
func buildBusinessReport(c *gin.Context, cfg config.Config, store database.Store) (utils.StatsReport, bool) {
	u, ok := currentUser(c)
	if !ok {
		return utils.StatsReport{}, false
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	b, err := store.GetBusiness(ctx, c.Param("id"))
	if err != nil {
		storeError(c, err, "business not found")
		return utils.StatsReport{}, false
	}
	if !canManageBusiness(cfg, u, b) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return utils.StatsReport{}, false
	}

	days := parseStatsDays(c.DefaultQuery("days", strconv.Itoa(utils.DefaultStatsDays)))
	now := time.Now().UTC()
	events, err := store.ListBusinessEvents(ctx, b.ID, utils.StatsWindowStart(now, days))
	if err != nil {
		storeError(c, err, "business not found")
		return utils.StatsReport{}, false
	}
	names := map[string]string{}
	if products, err := store.ListProducts(ctx); err == nil {
		for _, p := range products {
			names[p.ID] = p.Name
		}
	} else {
		log.Printf("stats: list products: %v", err)
	}
	return utils.BuildStatsReport(events, names, days, now), true
}

func BusinessStats(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ok := buildBusinessReport(c, cfg, store)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func ExportBusinessStats(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ok := buildBusinessReport(c, cfg, store)
		if !ok {
			return
		}
		data, err := utils.StatsWorkbook(report)
		if err != nil {
			log.Printf("stats: export workbook: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="stats-%s-%dd.xlsx"`, c.Param("id"), report.Days))
		c.Data(http.StatusOK, xlsxContentType, data)
	}
}
