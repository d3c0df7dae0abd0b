package controllers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/utils"
)

type identifyRequest struct {
	Prompt   string                   `json:"prompt"`
	Query    string                   `json:"query"`
	Products []utils.ProductCandidate `json:"products"`
}

// IdentifyProducts maps a free-text shopping list onto catalog products.
// gen is nil when no Gemini key is configured.
func IdentifyProducts(gen utils.TextGenerator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req identifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		prompt := strings.TrimSpace(req.Prompt)
		if prompt == "" {
			prompt = strings.TrimSpace(req.Query)
		}
		if prompt == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt vazio"})
			return
		}
		if gen == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": utils.ErrAINotConfigured.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		result, err := utils.IdentifyProducts(ctx, gen, prompt, req.Products)
		if err != nil {
			if utils.IsQuotaError(err) {
				c.JSON(http.StatusPaymentRequired, gin.H{"error": "IA sem saldo/quota no momento. Tente novamente mais tarde."})
				return
			}
			log.Printf("ai: identify products: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro IA: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
