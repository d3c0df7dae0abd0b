package routes

import (
	"github.com/gin-gonic/gin"

	"compareeconomize/backend/config"
	"compareeconomize/backend/controllers"
	"compareeconomize/backend/database"
	"compareeconomize/backend/middlewares"
	"compareeconomize/backend/models"
	"compareeconomize/backend/utils"
)

// Deps are the collaborators handlers need. AI and Payments are nil when not configured.
type Deps struct {
	Store    database.Store
	Plans    []models.Plan
	Google   utils.GoogleAuthenticator
	AI       utils.TextGenerator
	Payments utils.PaymentGateway
}

func Register(r *gin.Engine, cfg config.Config, d Deps) {
	requireAuth := middlewares.Auth(cfg.JWTSecret, d.Store)
	optionalAuth := middlewares.OptionalAuth(cfg.JWTSecret, d.Store)

	api := r.Group("/api")
	{
		api.GET("/health", controllers.Health())

		auth := api.Group("/auth")
		auth.GET("/google", controllers.GoogleLogin(cfg, d.Google))
		auth.GET("/google/callback", controllers.GoogleCallback(cfg, d.Store, d.Google))
		auth.POST("/register", controllers.Register(cfg, d.Store))
		auth.POST("/login", controllers.Login(cfg, d.Store))
		auth.POST("/logout", optionalAuth, controllers.Logout(d.Store))
		auth.GET("/me", requireAuth, controllers.Me())
		api.GET("/me", requireAuth, controllers.Me())

		// Public catalog
		api.GET("/markets", controllers.ListMarkets(d.Store))
		api.GET("/markets/mine", requireAuth, controllers.ListMyMarkets(cfg, d.Store))
		api.GET("/markets/:id", controllers.GetMarket(d.Store))
		api.GET("/products", controllers.ListProducts(d.Store))
		api.GET("/products/:id/prices", controllers.ListProductOffers(d.Store))
		api.GET("/prices", controllers.ListPrices(d.Store))
		api.POST("/stats/events", controllers.RecordEvent(d.Store))
		api.GET("/plans", controllers.ListPlans(d.Store, d.Plans))
		api.POST("/ai/identify-products", controllers.IdentifyProducts(d.AI))
		api.POST("/billing/webhook", controllers.Webhook(cfg, d.Store, d.Payments))

		priv := api.Group("/")
		priv.Use(requireAuth)
		priv.GET("business/me", controllers.GetMyBusiness(d.Store))
		priv.GET("business/my", controllers.ListMyBusinesses(d.Store))
		priv.POST("business", controllers.CreateBusiness(d.Store))
		priv.PUT("business/:id", controllers.UpdateBusiness(cfg, d.Store))
		priv.GET("business/:id/markets", controllers.ListBusinessMarkets(cfg, d.Store))
		priv.GET("business/markets", controllers.ListBusinessMarkets(cfg, d.Store))
		priv.POST("business/markets", controllers.CreateMarket(cfg, d.Store))
		priv.PUT("business/markets/:id", controllers.UpdateMarket(cfg, d.Store))

		priv.POST("markets", controllers.CreateMarket(cfg, d.Store))
		priv.PUT("markets/:id", controllers.UpdateMarket(cfg, d.Store))
		priv.POST("markets/:id/prices/import", controllers.ImportPrices(cfg, d.Store))
		priv.POST("products", controllers.UpsertProduct(cfg, d.Store))
		priv.POST("prices", controllers.UpsertPrice(cfg, d.Store))

		priv.GET("stats/business/:id", controllers.BusinessStats(cfg, d.Store))
		priv.GET("stats/business/:id/export", controllers.ExportBusinessStats(cfg, d.Store))

		priv.POST("billing/create", controllers.CreateBusinessCheckout(cfg, d.Store, d.Payments, d.Plans))
		priv.POST("billing/create-user", controllers.CreateUserCheckout(cfg, d.Store, d.Payments, d.Plans))
		priv.GET("subscriptions/me", controllers.MySubscriptions(d.Store))

		if cfg.EnableDevRoutes {
			api.POST("/dev/seed-markets", controllers.SeedMarkets(d.Store))
		}
	}
}
