package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"compareeconomize/backend/config"
	"compareeconomize/backend/database"
	"compareeconomize/backend/models"
	"compareeconomize/backend/utils"
)

// checkoutKind describes one purchasable subscription family.
type checkoutKind struct {
	kind        string
	plans       map[string]string // requested plan -> catalog plan id
	invalidPlan string
	title       func(plan string) string
	defaultPlan string
}

var businessCheckout = checkoutKind{
	kind:        models.KindBusiness,
	plans:       map[string]string{models.PlanPro: models.PlanPro, models.PlanPremium: models.PlanPremium},
	invalidPlan: "Plano inválido",
	title: func(plan string) string {
		return fmt.Sprintf("Plano %s - CompareEconomize (Empresa)", strings.ToUpper(plan[:1])+plan[1:])
	},
	defaultPlan: models.PlanPro,
}

var userCheckout = checkoutKind{
	kind:        models.KindUser,
	plans:       map[string]string{models.PlanPremium: "premium-user"},
	invalidPlan: "Plano de usuário inválido",
	title:       func(string) string { return "Plano Premium - CompareEconomize (Usuário)" },
	defaultPlan: models.PlanPremium,
}

func billingDisabled(c *gin.Context, gw utils.PaymentGateway) bool {
	if gw == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "billing not configured"})
		return true
	}
	return false
}

// ListPlans serves the persisted catalog, falling back to the configured one.
func ListPlans(store database.Store, catalog []models.Plan) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()
		plans, err := store.ListPlans(ctx)
		if err != nil {
			log.Printf("billing: list plans: %v", err)
		}
		if err != nil || len(plans) == 0 {
			plans = catalog
		}
		c.JSON(http.StatusOK, plans)
	}
}

func CreateBusinessCheckout(cfg config.Config, store database.Store, gw utils.PaymentGateway, catalog []models.Plan) gin.HandlerFunc {
	return createCheckout(cfg, store, gw, catalog, businessCheckout)
}

func CreateUserCheckout(cfg config.Config, store database.Store, gw utils.PaymentGateway, catalog []models.Plan) gin.HandlerFunc {
	return createCheckout(cfg, store, gw, catalog, userCheckout)
}

// parsePrice accepts JSON numbers and numeric strings.
func parsePrice(v any) (float64, error) {
	switch p := v.(type) {
	case float64:
		return p, nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(p), 64)
	default:
		return 0, fmt.Errorf("unsupported price type %T", v)
	}
}

func createCheckout(cfg config.Config, store database.Store, gw utils.PaymentGateway, catalog []models.Plan, kind checkoutKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if billingDisabled(c, gw) {
			return
		}
		u, ok := currentUser(c)
		if !ok {
			return
		}
		var req models.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}
		plan := strings.ToLower(strings.TrimSpace(req.Plan))
		planID, ok := kind.plans[plan]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": kind.invalidPlan})
			return
		}
		if req.Price == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Price é obrigatório"})
			return
		}
		requested, err := parsePrice(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Price inválido (use número)"})
			return
		}
		if requested <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Price deve ser maior que zero"})
			return
		}
		catalogPlan, ok := config.FindPlan(catalog, planID)
		if !ok || catalogPlan.Price <= 0 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("plan %q missing from catalog", planID)})
			return
		}
		if requested != catalogPlan.Price {
			log.Printf("billing: client sent price %.2f for %s, charging catalog price %.2f", requested, planID, catalogPlan.Price)
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
		defer cancel()

		paymentRef := uuid.NewString()
		initPoint, err := gw.CreateCheckout(ctx, utils.Checkout{
			Item:              utils.CheckoutItem{Title: kind.title(plan), UnitPrice: catalogPlan.Price},
			ExternalReference: paymentRef,
			PayerEmail:        u.Email,
			SuccessURL:        cfg.FrontendURL + "/PagamentoSucesso",
			FailureURL:        cfg.FrontendURL + "/PagamentoErro",
			PendingURL:        cfg.FrontendURL + "/Pagamento",
			NotificationURL:   cfg.MPWebhookURL,
			Metadata:          map[string]any{"kind": kind.kind, "plan": plan, "user_id": u.ID},
		})
		if err != nil {
			log.Printf("billing: create checkout: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro MP: " + err.Error()})
			return
		}
		if initPoint == "" {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Mercado Pago não retornou init_point"})
			return
		}

		kindName, userID, amount := kind.kind, u.ID, catalogPlan.Price
		_, err = store.CreateSubscription(ctx, models.Subscription{
			ID:         uuid.NewString(),
			Kind:       &kindName,
			UserID:     &userID,
			Plan:       &plan,
			PlanID:     &planID,
			Status:     models.SubscriptionPending,
			PaymentRef: &paymentRef,
			Amount:     &amount,
		})
		if err != nil {
			log.Printf("billing: save subscription: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erro ao salvar Subscription no banco"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"init_point": initPoint, "payment_ref": paymentRef})
	}
}

func MySubscriptions(store database.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()
		subs, err := store.ListSubscriptionsByUser(ctx, u.ID)
		if err != nil {
			storeError(c, err, "subscription not found")
			return
		}
		c.JSON(http.StatusOK, subs)
	}
}

// Webhook processes Mercado Pago notifications. It always answers 200 so the
// provider does not keep retrying; the outcome is reported in "status".
func Webhook(cfg config.Config, store database.Store, gw utils.PaymentGateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("billing: webhook panic: %v", r)
				c.JSON(http.StatusOK, gin.H{"status": "handled_error", "detail": fmt.Sprint(r)})
			}
		}()
		status, body := handleWebhook(c, cfg, store, gw)
		body["status"] = status
		c.JSON(http.StatusOK, body)
	}
}

func handleWebhook(c *gin.Context, cfg config.Config, store database.Store, gw utils.PaymentGateway) (string, gin.H) {
	raw, _ := io.ReadAll(c.Request.Body)
	payload := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil || payload == nil {
			payload = map[string]any{}
		}
	}
	log.Printf("billing: webhook received: %s", strings.TrimSpace(string(raw)))

	if gw == nil {
		return "billing_disabled", gin.H{}
	}

	if cfg.MPWebhookSecret != "" {
		dataID := c.Query("data.id")
		if dataID == "" {
			dataID = nestedString(payload, "data", "id")
		}
		if !utils.VerifyWebhookSignature(cfg.MPWebhookSecret, c.GetHeader("x-signature"), c.GetHeader("x-request-id"), dataID) {
			return "invalid_signature", gin.H{}
		}
	}

	if kind := webhookKind(c, payload); kind != "payment" {
		var msgType any
		if kind != "" {
			msgType = kind
		}
		return "ignored", gin.H{"msg_type": msgType}
	}

	paymentID := webhookPaymentID(c, payload)
	if paymentID == "" {
		return "no_payment_id", gin.H{}
	}
	if paymentID == "123456" {
		return "test_ignored", gin.H{"payment_id": paymentID}
	}
	id, err := strconv.Atoi(paymentID)
	if err != nil {
		return "invalid_payment_id", gin.H{"payment_id": paymentID}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 20*time.Second)
	defer cancel()

	pay, err := gw.GetPayment(ctx, id)
	if err != nil {
		return "mp_payment_get_error", gin.H{"detail": err.Error(), "payment_id": paymentID}
	}
	if pay.ExternalReference == "" {
		return "no_external_reference", gin.H{"payment_id": paymentID}
	}
	sub, err := store.GetSubscriptionByRef(ctx, pay.ExternalReference)
	if errors.Is(err, database.ErrNotFound) {
		return "subscription_not_found", gin.H{"reference": pay.ExternalReference}
	}
	if err != nil {
		return "db_update_error", gin.H{"detail": err.Error()}
	}

	paymentStatus := strings.ToLower(strings.TrimSpace(pay.Status))
	switch paymentStatus {
	case "approved":
		userID := deref(sub.UserID)
		if userID == "" {
			userID = metaString(pay.Metadata, "user_id")
		}
		if err := store.ActivateSubscription(ctx, sub.ID, userID, resolvePlan(pay.Metadata, sub)); err != nil {
			return "db_update_error", gin.H{"detail": err.Error()}
		}
	case "cancelled", "refunded", "charged_back":
		if err := store.SetSubscriptionStatus(ctx, sub.ID, models.SubscriptionCanceled); err != nil {
			return "db_update_error", gin.H{"detail": err.Error()}
		}
	default:
		return "ok", gin.H{"updated": false, "payment_status": paymentStatus}
	}
	return "ok", gin.H{"updated": true, "payment_status": paymentStatus}
}

// resolvePlan picks the plan granted on approval: metadata, then the subscription, then a default per kind.
func resolvePlan(meta map[string]any, sub models.Subscription) string {
	if p := strings.ToLower(metaString(meta, "plan")); p != "" {
		return p
	}
	if p := deref(sub.Plan); p != "" {
		return p
	}
	kind := strings.ToLower(metaString(meta, "kind"))
	if kind == "" {
		kind = deref(sub.Kind)
	}
	if kind == models.KindUser {
		return userCheckout.defaultPlan
	}
	return businessCheckout.defaultPlan
}

func webhookKind(c *gin.Context, payload map[string]any) string {
	for _, v := range []string{stringOf(payload["type"]), stringOf(payload["topic"]), c.Query("topic")} {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	if action := strings.ToLower(strings.TrimSpace(stringOf(payload["action"]))); strings.HasPrefix(action, "payment.") {
		return "payment"
	}
	return ""
}

func webhookPaymentID(c *gin.Context, payload map[string]any) string {
	for _, v := range []string{nestedString(payload, "data", "id"), stringOf(payload["id"]), c.Query("id"), c.Query("data.id")} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func nestedString(m map[string]any, outer, inner string) string {
	sub, ok := m[outer].(map[string]any)
	if !ok {
		return ""
	}
	return stringOf(sub[inner])
}

func metaString(m map[string]any, key string) string {
	return strings.TrimSpace(stringOf(m[key]))
}

func stringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
