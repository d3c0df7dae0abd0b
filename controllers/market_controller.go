package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
)

// ListMarkets is the public catalog, optionally narrowed by ?businessId=.
func ListMarkets(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter database.MarketFilter
		if id := strings.TrimSpace(c.Query("businessId")); id != "" {
			filter.BusinessIDs = []string{id}
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		markets, err := store.ListMarkets(ctx, filter)
		if err != nil {
			storeError(c, err, "market not found")
			return
		}
		c.JSON(http.StatusOK, markets)
	}
}

// ListMyMarkets lists markets the caller manages; admins without ?businessId= see all.
func ListMyMarkets(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		listCallerMarkets(ctx, c, cfg, store, u, strings.TrimSpace(c.Query("businessId")), true)
	}
}

func GetMarket(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		m, err := store.GetMarket(ctx, c.Param("id"))
		if err != nil {
			storeError(c, err, "market not found")
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
