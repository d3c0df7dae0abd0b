package controllers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
	"compareeconomize/backend/models"
	"compareeconomize/backend/routes"
	"compareeconomize/backend/utils"
)

type checkoutResponse struct {
	InitPoint  string `json:"init_point"`
	PaymentRef string `json:"payment_ref"`
}

type webhookResponse struct {
	Status        string `json:"status"`
	MsgType       any    `json:"msg_type"`
	Updated       *bool  `json:"updated"`
	PaymentStatus string `json:"payment_status"`
}

func (e *testEnv) webhook(path string, body any) webhookResponse {
	e.t.Helper()
	w := e.do(http.MethodPost, path, body, "")
	if w.Code != http.StatusOK {
		e.t.Fatalf("webhook must answer 200, got %d", w.Code)
	}
	var resp webhookResponse
	decode(e.t, w, &resp)
	return resp
}

func TestListPlans(t *testing.T) {
	e := newEnv(t)
	var plans []models.Plan
	decode(t, e.do(http.MethodGet, "/api/plans", nil, ""), &plans)
	if len(plans) != len(config.DefaultPlans) || plans[0].Price != 0 {
		t.Fatalf("plans: %+v", plans)
	}
}

func TestCheckoutValidation(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@x.com", "business")
	cases := []struct {
		name string
		path string
		body gin.H
		msg  string
	}{
		{"business bad plan", "/api/billing/create", gin.H{"plan": "gold", "price": 10}, "Plano inválido"},
		{"user bad plan", "/api/billing/create-user", gin.H{"plan": "pro", "price": 10}, "Plano de usuário inválido"},
		{"missing price", "/api/billing/create", gin.H{"plan": "pro"}, "Price é obrigatório"},
		{"text price", "/api/billing/create", gin.H{"plan": "pro", "price": "abc"}, "Price inválido (use número)"},
		{"zero price", "/api/billing/create", gin.H{"plan": "pro", "price": 0}, "Price deve ser maior que zero"},
	}
	for _, tc := range cases {
		w := e.do(http.MethodPost, tc.path, tc.body, token)
		if w.Code != http.StatusBadRequest || errorOf(t, w) != tc.msg {
			t.Errorf("%s: %d %s", tc.name, w.Code, w.Body.String())
		}
	}
	if len(e.gw.checkouts) != 0 {
		t.Fatalf("gateway called on invalid input: %d", len(e.gw.checkouts))
	}
}

func TestCheckoutWithoutBilling(t *testing.T) {
	e := newEnv(t, withoutBilling())
	token, _ := e.register("owner@x.com", "business")
	if w := e.do(http.MethodPost, "/api/billing/create", gin.H{"plan": "pro", "price": 59.9}, token); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d", w.Code)
	}
	if got := e.webhook("/api/billing/webhook", gin.H{"type": "payment", "data": gin.H{"id": "42"}}); got.Status != "billing_disabled" {
		t.Fatalf("webhook status %s", got.Status)
	}
}

func TestCheckoutChargesCatalogPrice(t *testing.T) {
	e := newEnv(t)
	token, userID := e.register("owner@x.com", "business")

	w := e.do(http.MethodPost, "/api/billing/create", gin.H{"plan": "PRO", "price": "1.00"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
	}
	var resp checkoutResponse
	decode(t, w, &resp)
	if resp.InitPoint != e.gw.initPoint || resp.PaymentRef == "" {
		t.Fatalf("response: %+v", resp)
	}

	if len(e.gw.checkouts) != 1 {
		t.Fatalf("checkouts: %d", len(e.gw.checkouts))
	}
	co := e.gw.checkouts[0]
	if co.Item.UnitPrice != 59.90 || co.ExternalReference != resp.PaymentRef || co.PayerEmail != "owner@x.com" {
		t.Fatalf("checkout: %+v", co)
	}
	if co.Metadata["user_id"] != userID || co.Metadata["plan"] != "pro" || co.SuccessURL != "http://front.test/PagamentoSucesso" {
		t.Fatalf("checkout metadata: %+v", co)
	}

	var subs []models.Subscription
	decode(t, e.do(http.MethodGet, "/api/subscriptions/me", nil, token), &subs)
	if len(subs) != 1 || subs[0].Status != models.SubscriptionPending || *subs[0].PlanID != "pro" || *subs[0].Amount != 59.90 {
		t.Fatalf("subscriptions: %+v", subs)
	}
}

func TestUserCheckoutUsesUserPlan(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("shopper@x.com", "user")
	if w := e.do(http.MethodPost, "/api/billing/create-user", gin.H{"plan": "premium", "price": 9.9}, token); w.Code != http.StatusOK {
		t.Fatalf("checkout: %d %s", w.Code, w.Body.String())
	}
	if got := e.gw.checkouts[0].Item.UnitPrice; got != 9.90 {
		t.Fatalf("unit price %v", got)
	}
	var subs []models.Subscription
	decode(t, e.do(http.MethodGet, "/api/subscriptions/me", nil, token), &subs)
	if len(subs) != 1 || *subs[0].PlanID != "premium-user" || *subs[0].Kind != models.KindUser {
		t.Fatalf("subscriptions: %+v", subs)
	}
}

func TestCheckoutGatewayFailure(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@x.com", "business")
	e.gw.createErr = errBoom
	if w := e.do(http.MethodPost, "/api/billing/create", gin.H{"plan": "pro", "price": 59.9}, token); w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", w.Code)
	}
	var subs []models.Subscription
	decode(t, e.do(http.MethodGet, "/api/subscriptions/me", nil, token), &subs)
	if len(subs) != 0 {
		t.Fatalf("subscription saved after failed checkout: %+v", subs)
	}
}

func TestWebhookApprovesSubscription(t *testing.T) {
	e := newEnv(t)
	token, _ := e.register("owner@x.com", "business")
	var co checkoutResponse
	decode(t, e.do(http.MethodPost, "/api/billing/create", gin.H{"plan": "premium", "price": 99.9}, token), &co)

	e.gw.payment = utils.PaymentInfo{ID: 42, Status: "approved", ExternalReference: co.PaymentRef, Metadata: map[string]any{"plan": "premium"}}
	got := e.webhook("/api/billing/webhook", gin.H{"type": "payment", "data": gin.H{"id": 42}})
	if got.Status != "ok" || got.Updated == nil || !*got.Updated || got.PaymentStatus != "approved" {
		t.Fatalf("webhook: %+v", got)
	}
	if len(e.gw.lookups) != 1 || e.gw.lookups[0] != 42 {
		t.Fatalf("lookups: %v", e.gw.lookups)
	}

	var me models.MeResponse
	decode(t, e.do(http.MethodGet, "/api/me", nil, token), &me)
	if me.Plan != models.PlanPremium {
		t.Fatalf("user plan %s", me.Plan)
	}
	var subs []models.Subscription
	decode(t, e.do(http.MethodGet, "/api/subscriptions/me", nil, token), &subs)
	if subs[0].Status != models.SubscriptionActive {
		t.Fatalf("subscription status %s", subs[0].Status)
	}

	e.gw.payment.Status = "refunded"
	if got := e.webhook("/api/billing/webhook?topic=payment&id=42", nil); got.Status != "ok" || !*got.Updated {
		t.Fatalf("refund: %+v", got)
	}
	decode(t, e.do(http.MethodGet, "/api/subscriptions/me", nil, token), &subs)
	if subs[0].Status != models.SubscriptionCanceled {
		t.Fatalf("subscription status after refund %s", subs[0].Status)
	}

	e.gw.payment.Status = "in_process"
	if got := e.webhook("/api/billing/webhook", gin.H{"action": "payment.updated", "data": gin.H{"id": "42"}}); got.Status != "ok" || *got.Updated {
		t.Fatalf("pending payment: %+v", got)
	}
}

func TestWebhookStatuses(t *testing.T) {
	cases := []struct {
		name    string
		path    string
		body    any
		payment utils.PaymentInfo
		err     error
		want    string
	}{
		{"merchant order", "/api/billing/webhook", gin.H{"type": "merchant_order"}, utils.PaymentInfo{}, nil, "ignored"},
		{"empty body", "/api/billing/webhook", nil, utils.PaymentInfo{}, nil, "ignored"},
		{"no id", "/api/billing/webhook", gin.H{"type": "payment"}, utils.PaymentInfo{}, nil, "no_payment_id"},
		{"panel test", "/api/billing/webhook", gin.H{"type": "payment", "data": gin.H{"id": "123456"}}, utils.PaymentInfo{}, nil, "test_ignored"},
		{"bad id", "/api/billing/webhook", gin.H{"type": "payment", "data": gin.H{"id": "abc"}}, utils.PaymentInfo{}, nil, "invalid_payment_id"},
		{"lookup error", "/api/billing/webhook", gin.H{"type": "payment", "data": gin.H{"id": "7"}}, utils.PaymentInfo{}, errBoom, "mp_payment_get_error"},
		{"no reference", "/api/billing/webhook", gin.H{"type": "payment", "data": gin.H{"id": "7"}}, utils.PaymentInfo{ID: 7, Status: "approved"}, nil, "no_external_reference"},
		{"unknown reference", "/api/billing/webhook", gin.H{"type": "payment", "data": gin.H{"id": "7"}}, utils.PaymentInfo{ID: 7, Status: "approved", ExternalReference: "ghost"}, nil, "subscription_not_found"},
		{"garbage body", "/api/billing/webhook", "{not json", utils.PaymentInfo{}, nil, "ignored"},
	}
	for _, tc := range cases {
		e := newEnv(t)
		e.gw.payment, e.gw.paymentErr = tc.payment, tc.err
		got := e.webhook(tc.path, tc.body)
		if got.Status != tc.want {
			t.Errorf("%s: status %s want %s", tc.name, got.Status, tc.want)
		}
		if tc.name == "empty body" && got.MsgType != nil {
			t.Errorf("empty body: msg_type %v", got.MsgType)
		}
	}
}

func TestWebhookSignature(t *testing.T) {
	e := newEnv(t, withConfig(func(c *config.Config) { c.MPWebhookSecret = "whsec" }))

	if got := e.webhook("/api/billing/webhook?data.id=123456", gin.H{"type": "payment", "data": gin.H{"id": "123456"}}); got.Status != "invalid_signature" {
		t.Fatalf("unsigned: %s", got.Status)
	}

	req := newJSONRequest(http.MethodPost, "/api/billing/webhook?data.id=123456", `{"type":"payment","data":{"id":"123456"}}`)
	req.Header.Set("x-request-id", "req-1")
	req.Header.Set("x-signature", "ts=1700000000,v1="+utils.SignWebhook("whsec", "req-1", "123456", "1700000000"))
	var got webhookResponse
	decode(t, e.serve(req), &got)
	if got.Status != "test_ignored" {
		t.Fatalf("signed: %s", got.Status)
	}
}

// failingStore fails every subscription status change.
type failingStore struct {
	database.Store
}

func (failingStore) ActivateSubscription(context.Context, string, string, string) error {
	return errBoom
}

func (failingStore) SetSubscriptionStatus(context.Context, string, string) error {
	return errBoom
}

type panickingGateway struct{ fakeGateway }

func (*panickingGateway) GetPayment(context.Context, int) (utils.PaymentInfo, error) {
	panic("gateway exploded")
}

func TestWebhookFailures(t *testing.T) {
	payload := gin.H{"type": "payment", "data": gin.H{"id": "7"}}
	cases := []struct {
		name    string
		opts    []envOption
		payment utils.PaymentInfo
		want    string
	}{
		{"no gateway", []envOption{withoutBilling()}, utils.PaymentInfo{}, "billing_disabled"},
		{"gateway panic", []envOption{withDeps(func(d *routes.Deps) { d.Payments = &panickingGateway{} })}, utils.PaymentInfo{}, "handled_error"},
		{"activate fails", []envOption{withDeps(func(d *routes.Deps) { d.Store = failingStore{d.Store} })},
			utils.PaymentInfo{ID: 7, Status: "approved", ExternalReference: "ref-1"}, "db_update_error"},
		{"cancel fails", []envOption{withDeps(func(d *routes.Deps) { d.Store = failingStore{d.Store} })},
			utils.PaymentInfo{ID: 7, Status: "charged_back", ExternalReference: "ref-1"}, "db_update_error"},
	}
	for _, tc := range cases {
		e := newEnv(t, tc.opts...)
		ref := "ref-1"
		if _, err := e.store.CreateSubscription(context.Background(), models.Subscription{ID: "s1", PaymentRef: &ref, Status: models.SubscriptionPending}); err != nil {
			t.Fatal(err)
		}
		e.gw.payment = tc.payment
		if got := e.webhook("/api/billing/webhook", payload); got.Status != tc.want {
			t.Errorf("%s: status %s want %s", tc.name, got.Status, tc.want)
		}
		if sub, _ := e.store.GetSubscriptionByRef(context.Background(), ref); sub.Status != models.SubscriptionPending {
			t.Errorf("%s: subscription changed to %s", tc.name, sub.Status)
		}
	}
}
