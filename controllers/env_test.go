package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
	"compareeconomize/backend/models"
	"compareeconomize/backend/routes"
	"compareeconomize/backend/utils"
)

type fakeGateway struct {
	checkouts  []utils.Checkout
	initPoint  string
	createErr  error
	payment    utils.PaymentInfo
	paymentErr error
	lookups    []int
}

func (f *fakeGateway) CreateCheckout(_ context.Context, c utils.Checkout) (string, error) {
	f.checkouts = append(f.checkouts, c)
	return f.initPoint, f.createErr
}

func (f *fakeGateway) GetPayment(_ context.Context, id int) (utils.PaymentInfo, error) {
	f.lookups = append(f.lookups, id)
	return f.payment, f.paymentErr
}

type fakeGoogle struct {
	user         utils.GoogleUser
	err          error
	lastCallback string
}

func (f *fakeGoogle) AuthCodeURL(callbackURL, state string) string {
	return "https://accounts.example.com/auth?" + url.Values{"redirect_uri": {callbackURL}, "state": {state}}.Encode()
}

func (f *fakeGoogle) Exchange(_ context.Context, callbackURL, _ string) (utils.GoogleUser, error) {
	f.lastCallback = callbackURL
	return f.user, f.err
}

type fakeAI struct {
	text string
	err  error
}

func (f *fakeAI) Generate(context.Context, string) (string, error) { return f.text, f.err }

type testEnv struct {
	t      *testing.T
	cfg    config.Config
	store  *database.MemoryStore
	gw     *fakeGateway
	google *fakeGoogle
	ai     *fakeAI
	router *gin.Engine
}

type envOption func(*config.Config, *routes.Deps)

func withoutBilling() envOption {
	return func(_ *config.Config, d *routes.Deps) { d.Payments = nil }
}

func withoutAI() envOption {
	return func(_ *config.Config, d *routes.Deps) { d.AI = nil }
}

func withDeps(mutate func(*routes.Deps)) envOption {
	return func(_ *config.Config, d *routes.Deps) { mutate(d) }
}

func withConfig(mutate func(*config.Config)) envOption {
	return func(c *config.Config, _ *routes.Deps) { mutate(c) }
}

func newEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	e := &testEnv{
		t: t,
		cfg: config.Config{
			JWTSecret:       "test-secret",
			JWTTTL:          time.Hour,
			FrontendURL:     "http://front.test",
			GoogleClientID:  "cid",
			GoogleSecret:    "csecret",
			AdminEmails:     []string{"admin@x.com"},
			EnableDevRoutes: true,
			MPAccessToken:   "APP_USR-test",
		},
		store:  database.NewMemoryStore(),
		gw:     &fakeGateway{initPoint: "https://mp.example.com/checkout/1"},
		google: &fakeGoogle{user: utils.GoogleUser{Email: "Ana@Example.com", Name: "Ana"}},
		ai:     &fakeAI{text: `{"items":[]}`},
	}
	plans := append([]models.Plan{}, config.DefaultPlans...)
	if err := database.SeedPlans(context.Background(), e.store, plans); err != nil {
		t.Fatal(err)
	}
	deps := routes.Deps{Store: e.store, Plans: plans, Google: e.google, AI: e.ai, Payments: e.gw}
	for _, opt := range opts {
		opt(&e.cfg, &deps)
	}
	e.router = gin.New()
	routes.Register(e.router, e.cfg, deps)
	return e
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				e.t.Fatal(err)
			}
		}
	}
	req := newJSONRequest(method, path, buf.String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func newJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register creates an account through the API and returns its token and id.
func (e *testEnv) register(email, accountType string) (string, string) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/auth/register", gin.H{"email": email, "password": "secret1", "account_type": accountType}, "")
	if w.Code != http.StatusOK {
		e.t.Fatalf("register %s: %d %s", email, w.Code, w.Body.String())
	}
	var resp models.TokenResponse
	decode(e.t, w, &resp)
	return resp.Token, resp.UserID
}

func (e *testEnv) createBusiness(token, name string) models.Business {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/business", gin.H{"name": name}, token)
	if w.Code != http.StatusOK {
		e.t.Fatalf("create business: %d %s", w.Code, w.Body.String())
	}
	var b models.Business
	decode(e.t, w, &b)
	return b
}

func (e *testEnv) createMarket(token, businessID, name string) models.Market {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/business/markets", gin.H{"businessId": businessID, "name": name}, token)
	if w.Code != http.StatusOK {
		e.t.Fatalf("create market: %d %s", w.Code, w.Body.String())
	}
	var m models.Market
	decode(e.t, w, &m)
	return m
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, w, &body)
	return body.Error
}

var errBoom = errors.New("boom")
