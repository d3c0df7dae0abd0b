package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
	"compareeconomize/backend/middlewares"
	"compareeconomize/backend/models"
	"compareeconomize/backend/utils"
)

const oauthCookieTTL = 10 * 60

func normalizeAccountType(v string) (string, bool) {
	switch t := strings.ToLower(strings.TrimSpace(v)); t {
	case "":
		return models.AccountUser, true
	case models.AccountUser, models.AccountBusiness:
		return t, true
	default:
		return "", false
	}
}

// issueTokens stores an opaque session for the user and returns a signed JWT.
// A failed session insert is logged and does not block sign-in.
func issueTokens(ctx context.Context, cfg config.Config, store database.Store, u models.User, provider string) (string, error) {
	opaque, err := utils.NewSessionToken()
	if err != nil {
		return "", err
	}
	expires := time.Now().UTC().Add(cfg.JWTTTL)
	if err := store.CreateSession(ctx, models.AuthSession{UserID: u.ID, Token: opaque, Provider: provider, ExpiresAt: &expires}); err != nil {
		log.Printf("auth: store session for %s: %v", u.ID, err)
	}
	return utils.GenerateJWT(cfg.JWTSecret, u.ID, u.Email, u.AccountType, cfg.JWTTTL)
}

func Register(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		accountType, ok := normalizeAccountType(req.AccountType)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account_type"})
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := store.GetUserByEmail(ctx, email); err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "email_already_exists"})
			return
		} else if !errors.Is(err, database.ErrNotFound) {
			storeError(c, err, "user not found")
			return
		}

		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "hash error"})
			return
		}
		var name *string
		if req.FullName != nil && strings.TrimSpace(*req.FullName) != "" {
			n := strings.TrimSpace(*req.FullName)
			name = &n
		}
		u, err := store.CreateUser(ctx, models.User{
			ID:           uuid.NewString(),
			Email:        email,
			Name:         name,
			AccountType:  accountType,
			Plan:         models.PlanFree,
			Role:         models.RoleUser,
			PasswordHash: &hash,
		})
		if errors.Is(err, database.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "email_already_exists"})
			return
		}
		if err != nil {
			storeError(c, err, "user not found")
			return
		}

		token, err := issueTokens(ctx, cfg, store, u, "password")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
			return
		}
		c.JSON(http.StatusOK, models.TokenResponse{Token: token, UserID: u.ID, Email: u.Email, AccountType: u.AccountType})
	}
}

func Login(cfg config.Config, store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()

		u, err := store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			storeError(c, err, "user not found")
			return
		}
		if err != nil || u.PasswordHash == nil || !utils.VerifyPassword(req.Password, *u.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}

		token, err := issueTokens(ctx, cfg, store, u, "password")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
			return
		}
		c.JSON(http.StatusOK, models.TokenResponse{Token: token, UserID: u.ID, Email: u.Email, AccountType: u.AccountType})
	}
}

func Logout(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := middlewares.CurrentToken(c); token != "" {
			ctx, cancel := requestContext(c)
			defer cancel()
			if err := store.DeleteSession(ctx, token); err != nil {
				log.Printf("auth: delete session: %v", err)
			}
		}
		c.SetCookie("token", "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func GoogleLogin(cfg config.Config, google utils.GoogleAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.GoogleClientID == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "GOOGLE_CLIENT_ID não configurado no backend"})
			return
		}
		accountType, ok := normalizeAccountType(c.Query("type"))
		if !ok {
			accountType = models.AccountUser
		}
		redirect := strings.TrimSpace(c.Query("redirectTo"))
		if redirect != "" && !utils.RedirectAllowed(redirect, cfg.CORSOrigins()) {
			log.Printf("auth: ignoring redirectTo outside allowed origins: %q", redirect)
			redirect = ""
		}
		if redirect == "" {
			redirect = fmt.Sprintf("%s/login?google=1&type=%s", cfg.FrontendURL, accountType)
		}
		state, err := utils.NewSessionToken()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "state error"})
			return
		}

		base := utils.ExternalBaseURL(c.Request, cfg.PublicBackendURL)
		secure := strings.HasPrefix(strings.ToLower(base), "https://")
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie("oauth_state", state, oauthCookieTTL, "/", "", secure, true)
		c.SetCookie("oauth_type", accountType, oauthCookieTTL, "/", "", secure, true)
		c.SetCookie("oauth_redirect", utils.CookieEncode(redirect), oauthCookieTTL, "/", "", secure, true)

		c.Redirect(http.StatusFound, google.AuthCodeURL(base+"/api/auth/google/callback", state))
	}
}

func GoogleCallback(cfg config.Config, store database.Store, google utils.GoogleAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
			return
		}
		savedState, _ := c.Cookie("oauth_state")
		state := c.Query("state")
		if state == "" || savedState == "" || state != savedState {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state"})
			return
		}
		if cfg.GoogleSecret == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "GOOGLE_CLIENT_SECRET não configurado no backend"})
			return
		}

		rawType, _ := c.Cookie("oauth_type")
		accountType, ok := normalizeAccountType(rawType)
		if !ok {
			accountType = models.AccountUser
		}
		savedRedirect, _ := c.Cookie("oauth_redirect")
		redirect := utils.CookieDecode(savedRedirect)
		if redirect != "" && !utils.RedirectAllowed(redirect, cfg.CORSOrigins()) {
			redirect = ""
		}
		if redirect == "" {
			redirect = fmt.Sprintf("%s/login?google=1&type=%s", cfg.FrontendURL, accountType)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
		defer cancel()

		info, err := google.Exchange(ctx, utils.GoogleCallbackURL(c.Request, cfg.PublicBackendURL), code)
		if err != nil {
			log.Printf("auth: google exchange: %v", err)
			if errors.Is(err, utils.ErrTokenExchange) {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "token_exchange_failed"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "userinfo_failed"})
			}
			return
		}

		token, err := utils.NewSessionToken()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
			return
		}
		userID := ""
		if email := strings.ToLower(strings.TrimSpace(info.Email)); email != "" {
			u, err := upsertGoogleUser(ctx, store, email, strings.TrimSpace(info.Name), accountType)
			if err != nil {
				log.Printf("auth: google callback persist %s: %v", email, err)
			} else {
				userID = u.ID
				expires := time.Now().UTC().Add(cfg.JWTTTL)
				if err := store.CreateSession(ctx, models.AuthSession{UserID: u.ID, Token: token, Provider: "google", ExpiresAt: &expires}); err != nil {
					log.Printf("auth: google session for %s: %v", u.ID, err)
				}
				if jwtToken, err := utils.GenerateJWT(cfg.JWTSecret, u.ID, u.Email, u.AccountType, cfg.JWTTTL); err == nil {
					token = jwtToken
				}
			}
		}

		base := utils.ExternalBaseURL(c.Request, cfg.PublicBackendURL)
		secure := strings.HasPrefix(strings.ToLower(base), "https://")
		for _, name := range []string{"oauth_state", "oauth_type", "oauth_redirect"} {
			c.SetCookie(name, "", -1, "/", "", secure, true)
		}
		q := url.Values{"token": {token}, "type": {accountType}, "user_id": {userID}}
		c.Redirect(http.StatusFound, utils.AppendQuery(redirect, q.Encode()))
	}
}

func upsertGoogleUser(ctx context.Context, store database.Store, email, name, accountType string) (models.User, error) {
	u, err := store.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		var namePtr *string
		if name != "" {
			namePtr = &name
		}
		return store.CreateUser(ctx, models.User{
			ID:            uuid.NewString(),
			Email:         email,
			Name:          namePtr,
			AccountType:   accountType,
			Plan:          models.PlanFree,
			Role:          models.RoleUser,
			EmailVerified: true,
		})
	}
	if err != nil {
		return models.User{}, err
	}
	if name != "" {
		u.Name = &name
	}
	if u.AccountType != models.AccountAdmin {
		u.AccountType = accountType
	}
	u.EmailVerified = true
	return store.UpdateUser(ctx, u)
}
