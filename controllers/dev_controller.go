package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/database"
)

func SeedMarkets(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		n, err := database.SeedMarkets(ctx, store)
		if err != nil {
			log.Printf("dev: seed markets: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "seed failed"})
			return
		}
		if n == 0 {
			c.JSON(http.StatusOK, gin.H{"ok": true, "message": "markets already exist"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "inserted": n})
	}
}

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
