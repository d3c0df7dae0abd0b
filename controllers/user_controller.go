package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/models"
)

func Me() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, models.MeResponse{User: u, Type: u.AccountType})
	}
}
