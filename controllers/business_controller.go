package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
	"compareeconomize/backend/models"
)

// GetMyBusiness returns the caller's first business, or null.
func GetMyBusiness(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		list, err := store.ListBusinessesByOwner(ctx, u.ID)
		if err != nil {
			storeError(c, err, "business not found")
			return
		}
		if len(list) == 0 {
			c.JSON(http.StatusOK, nil)
			return
		}
		c.JSON(http.StatusOK, list[0])
	}
}

func ListMyBusinesses(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		list, err := store.ListBusinessesByOwner(ctx, u.ID)
		if err != nil {
			storeError(c, err, "business not found")
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

func CreateBusiness(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		var in models.BusinessInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		name := strings.TrimSpace(*in.Name)
		in.Name = &name

		b := models.Business{ID: uuid.NewString(), OwnerID: u.ID}
		in.Apply(&b)

		ctx, cancel := requestContext(c)
		defer cancel()
		created, err := store.CreateBusiness(ctx, b)
		if err != nil {
			storeError(c, err, "business not found")
			return
		}
		c.JSON(http.StatusOK, created)
	}
}

func UpdateBusiness(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		b, err := store.GetBusiness(ctx, c.Param("id"))
		if err != nil {
			storeError(c, err, "business not found")
			return
		}
		if !canManageBusiness(cfg, u, b) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		var in models.BusinessInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
				return
			}
			in.Name = &name
		}
		in.Apply(&b)
		updated, err := store.UpdateBusiness(ctx, b)
		if err != nil {
			storeError(c, err, "business not found")
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// listCallerMarkets resolves which markets the caller may see. When businessID is set the
// business must belong to the caller (or the caller is admin); an unknown business yields [].
// Without businessID, admins see every market when adminSeesAll is set.
func listCallerMarkets(ctx context.Context, c *gin.Context, cfg config.Config, store database.Store, u models.User, businessID string, adminSeesAll bool) {
	admin := isAdmin(cfg, u)
	var filter database.MarketFilter
	switch {
	case businessID != "":
		b, err := store.GetBusiness(ctx, businessID)
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusOK, []models.Market{})
			return
		}
		if err != nil {
			storeError(c, err, "business not found")
			return
		}
		if b.OwnerID != u.ID && !admin {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		filter.BusinessIDs = []string{b.ID}
	case admin && adminSeesAll:
	default:
		owned, err := store.ListBusinessesByOwner(ctx, u.ID)
		if err != nil {
			storeError(c, err, "business not found")
			return
		}
		filter.BusinessIDs = make([]string, 0, len(owned))
		for _, b := range owned {
			filter.BusinessIDs = append(filter.BusinessIDs, b.ID)
		}
	}
	markets, err := store.ListMarkets(ctx, filter)
	if err != nil {
		storeError(c, err, "market not found")
		return
	}
	c.JSON(http.StatusOK, markets)
}

// ListBusinessMarkets serves both ?businessId= and /business/:id/markets.
func ListBusinessMarkets(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		businessID := c.Param("id")
		if businessID == "" {
			businessID = strings.TrimSpace(c.Query("businessId"))
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		listCallerMarkets(ctx, c, cfg, store, u, businessID, false)
	}
}

func CreateMarket(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		var in models.MarketInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if in.BusinessID == nil || strings.TrimSpace(*in.BusinessID) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "businessId is required"})
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		b, err := store.GetBusiness(ctx, strings.TrimSpace(*in.BusinessID))
		if err != nil {
			storeError(c, err, "business not found")
			return
		}
		if !canManageBusiness(cfg, u, b) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		name := strings.TrimSpace(*in.Name)
		in.Name = &name

		m := models.Market{ID: uuid.NewString(), BusinessID: &b.ID}
		in.Apply(&m)
		created, err := store.CreateMarket(ctx, m)
		if err != nil {
			storeError(c, err, "market not found")
			return
		}
		c.JSON(http.StatusOK, created)
	}
}

func UpdateMarket(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		m, ok := authorizeMarket(ctx, c, cfg, store, u, c.Param("id"))
		if !ok {
			return
		}
		var in models.MarketInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
				return
			}
			in.Name = &name
		}
		in.Apply(&m)
		updated, err := store.UpdateMarket(ctx, m)
		if err != nil {
			storeError(c, err, "market not found")
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}
