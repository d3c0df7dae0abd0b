package middlewares

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/database"
	"compareeconomize/backend/models"
	"compareeconomize/backend/utils"
)

const (
	userKey  = "current_user"
	tokenKey = "current_token"
)

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// Auth requires a JWT or an opaque session token, from the Authorization header or the "token" cookie.
func Auth(secret string, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, token, err := authenticate(c, secret, store)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userKey, user)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// OptionalAuth attaches the caller when credentials are valid and never aborts.
func OptionalAuth(secret string, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, token, err := authenticate(c, secret, store); err == nil {
			c.Set(userKey, user)
			c.Set(tokenKey, token)
		}
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth or OptionalAuth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}

// CurrentToken is the raw credential the caller presented.
func CurrentToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func bearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if cookie, err := c.Cookie("token"); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

func authenticate(c *gin.Context, secret string, store database.Store) (models.User, string, error) {
	token := bearerToken(c)
	if token == "" {
		return models.User{}, "", errMissingToken
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if claims, err := utils.ParseJWT(secret, token); err == nil {
		user, err := store.GetUserByID(ctx, claims.Subject)
		if err != nil {
			if !errors.Is(err, database.ErrNotFound) {
				log.Printf("auth: load user %s: %v", claims.Subject, err)
			}
			return models.User{}, "", errInvalidToken
		}
		return user, token, nil
	}

	sess, err := store.GetSessionByToken(ctx, token)
	if err != nil || sess.Expired(time.Now()) {
		return models.User{}, "", errInvalidToken
	}
	user, err := store.GetUserByID(ctx, sess.UserID)
	if err != nil {
		return models.User{}, "", errInvalidToken
	}
	return user, token, nil
}
