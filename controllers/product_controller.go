package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
	"compareeconomize/backend/models"
	"compareeconomize/backend/utils"
)

const maxImportSize = 5 << 20

func ListProducts(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		products, err := store.ListProducts(ctx)
		if err != nil {
			storeError(c, err, "product not found")
			return
		}
		c.JSON(http.StatusOK, products)
	}
}

// UpsertProduct is limited to business accounts and admins.
func UpsertProduct(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		if u.AccountType != models.AccountBusiness && !isAdmin(cfg, u) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		var req models.ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		p := models.Product{ID: strings.TrimSpace(req.ID), Name: strings.TrimSpace(req.Name), Unit: req.Unit}
		if p.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		saved, err := store.UpsertProduct(ctx, p)
		if err != nil {
			storeError(c, err, "product not found")
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

// ListProductOffers compares one product across markets, cheapest first.
func ListProductOffers(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		p, err := store.GetProduct(ctx, c.Param("id"))
		if err != nil {
			storeError(c, err, "product not found")
			return
		}
		offers, err := store.ListOffers(ctx, p.ID)
		if err != nil {
			storeError(c, err, "product not found")
			return
		}
		c.JSON(http.StatusOK, offers)
	}
}

func ListPrices(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		prices, err := store.ListPrices(ctx, database.PriceFilter{
			MarketID:  strings.TrimSpace(c.Query("marketId")),
			ProductID: strings.TrimSpace(c.Query("productId")),
		})
		if err != nil {
			storeError(c, err, "price not found")
			return
		}
		c.JSON(http.StatusOK, prices)
	}
}

func UpsertPrice(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.PriceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := store.GetMarket(ctx, req.MarketID); errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown market"})
			return
		} else if err != nil {
			storeError(c, err, "market not found")
			return
		}
		if _, err := store.GetProduct(ctx, req.ProductID); errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown product"})
			return
		} else if err != nil {
			storeError(c, err, "product not found")
			return
		}
		if _, ok := authorizeMarket(ctx, c, cfg, store, u, req.MarketID); !ok {
			return
		}
		saved, err := store.UpsertPrice(ctx, models.Price{MarketID: req.MarketID, ProductID: req.ProductID, Price: req.Price})
		if err != nil {
			storeError(c, err, "price not found")
			return
		}
		c.JSON(http.StatusOK, saved)
	}
}

// ImportPrices upserts prices for one market from an uploaded CSV or XLSX sheet.
func ImportPrices(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		m, ok := authorizeMarket(ctx, c, cfg, store, u, c.Param("id"))
		if !ok {
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file (field 'file')"})
			return
		}
		defer file.Close()
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != ".csv" && ext != ".xlsx" {
			c.JSON(http.StatusBadRequest, gin.H{"error": utils.ErrUnsupportedSheet.Error()})
			return
		}
		if header.Size > maxImportSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large (max 5MB)"})
			return
		}
		buf, err := io.ReadAll(io.LimitReader(file, maxImportSize+1))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
			return
		}
		if len(buf) > maxImportSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large (max 5MB)"})
			return
		}
		rows, err := utils.ReadRows(buf, ext)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		parsed, skipped, err := utils.ParsePriceRows(rows)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		imported := 0
		for _, r := range parsed {
			if _, err := store.GetProduct(ctx, r.ProductID); err != nil {
				if !errors.Is(err, database.ErrNotFound) {
					storeError(c, err, "product not found")
					return
				}
				skipped = append(skipped, utils.SkippedRow{Row: r.Row, Reason: "unknown product"})
				continue
			}
			if _, err := store.UpsertPrice(ctx, models.Price{MarketID: m.ID, ProductID: r.ProductID, Price: r.Price}); err != nil {
				storeError(c, err, "price not found")
				return
			}
			imported++
		}
		sort.Slice(skipped, func(i, j int) bool { return skipped[i].Row < skipped[j].Row })
		c.JSON(http.StatusOK, gin.H{"imported": imported, "skipped": skipped})
	}
}
