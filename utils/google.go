package utils

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var (
	ErrTokenExchange = errors.New("token_exchange_failed")
	ErrUserinfo      = errors.New("userinfo_failed")
)

type GoogleUser struct {
	Email string
	Name  string
}

// GoogleAuthenticator runs the authorization code flow against Google.
type GoogleAuthenticator interface {
	AuthCodeURL(callbackURL, state string) string
	Exchange(ctx context.Context, callbackURL, code string) (GoogleUser, error)
}

type GoogleOAuth struct {
	ClientID     string
	ClientSecret string
}

func (g GoogleOAuth) config(callbackURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  callbackURL,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

func (g GoogleOAuth) AuthCodeURL(callbackURL, state string) string {
	return g.config(callbackURL).AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (g GoogleOAuth) Exchange(ctx context.Context, callbackURL, code string) (GoogleUser, error) {
	cfg := g.config(callbackURL)
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return GoogleUser{}, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	svc, err := googleoauth2.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx, tok)))
	if err != nil {
		return GoogleUser{}, fmt.Errorf("%w: %v", ErrUserinfo, err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return GoogleUser{}, fmt.Errorf("%w: %v", ErrUserinfo, err)
	}
	return GoogleUser{Email: info.Email, Name: info.Name}, nil
}

// ExternalBaseURL is the URL the browser uses to reach this backend, honouring
// PUBLIC_BACKEND_URL first and proxy headers second.
func ExternalBaseURL(r *http.Request, publicURL string) string {
	if publicURL != "" {
		return strings.TrimRight(publicURL, "/")
	}
	first := func(h string) string {
		v, _, _ := strings.Cut(r.Header.Get(h), ",")
		return strings.TrimSpace(v)
	}
	scheme := first("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}
	host := first("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	if host == "" {
		host = "localhost"
	}
	if strings.Contains(host, ":") {
		return strings.TrimRight(scheme+"://"+host, "/")
	}
	if port := first("X-Forwarded-Port"); port != "" && port != "80" && port != "443" {
		return fmt.Sprintf("%s://%s:%s", scheme, host, port)
	}
	return scheme + "://" + host
}

func GoogleCallbackURL(r *http.Request, publicURL string) string {
	return ExternalBaseURL(r, publicURL) + "/api/auth/google/callback"
}

// CookieEncode is unpadded base64url so the value needs no cookie escaping.
func CookieEncode(v string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(v))
}

// CookieDecode accepts padded or unpadded base64url and falls back to the raw value.
func CookieDecode(v string) string {
	if v == "" {
		return ""
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(v, "="))
	if err != nil {
		return v
	}
	return string(raw)
}

// RedirectAllowed reports whether target is an absolute http(s) URL whose
// scheme and host match one of origins.
func RedirectAllowed(target string, origins []string) bool {
	u, err := url.Parse(strings.TrimSpace(target))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") || u.User != nil {
		return false
	}
	want := strings.ToLower(u.Scheme + "://" + u.Host)
	for _, o := range origins {
		if strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/")) == want {
			return true
		}
	}
	return false
}

// AppendQuery appends already-encoded query pairs using ? or & as appropriate.
func AppendQuery(target, query string) string {
	if strings.Contains(target, "?") {
		return target + "&" + query
	}
	return target + "?" + query
}
