package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
	"compareeconomize/backend/middlewares"
	"compareeconomize/backend/models"
	"compareeconomize/backend/utils"
)

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), 5*time.Second)
}

// currentUser aborts with 401 when Auth did not run for this route.
func currentUser(c *gin.Context) (models.User, bool) {
	u, ok := middlewares.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
	}
	return u, ok
}

func isAdmin(cfg config.Config, u models.User) bool {
	return utils.IsAdmin(u, cfg.AdminEmails)
}

func canManageBusiness(cfg config.Config, u models.User, b models.Business) bool {
	return b.OwnerID == u.ID || isAdmin(cfg, u)
}

// storeError writes 404 for ErrNotFound and a logged 500 otherwise.
func storeError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}
	log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
}

// authorizeMarket loads the market and checks the caller may manage it.
// It writes the response itself and returns false on any failure.
func authorizeMarket(ctx context.Context, c *gin.Context, cfg config.Config, store database.Store, u models.User, marketID string) (models.Market, bool) {
	m, err := store.GetMarket(ctx, marketID)
	if err != nil {
		storeError(c, err, "market not found")
		return models.Market{}, false
	}
	if m.BusinessID == nil || *m.BusinessID == "" {
		if isAdmin(cfg, u) {
			return m, true
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "market has no businessId"})
		return models.Market{}, false
	}
	b, err := store.GetBusiness(ctx, *m.BusinessID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		storeError(c, err, "business not found")
		return models.Market{}, false
	}
	if err != nil || !canManageBusiness(cfg, u, b) {
		if isAdmin(cfg, u) {
			return m, true
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return models.Market{}, false
	}
	return m, true
}
