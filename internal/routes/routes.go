package routes

import (
	"time"

	"github.com/01moynul/refuel-storefront/internal/handlers"
	"github.com/01moynul/refuel-storefront/internal/middleware"
	"github.com/01moynul/refuel-storefront/internal/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Deps are the router's collaborators that are not handlers.
type Deps struct {
	Tokens         middleware.TokenVerifier
	Limiter        ratelimit.Limiter
	AllowedOrigins []string
	Logger         zerolog.Logger
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:5173"}
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func SetupRouter(h *handlers.Handlers, deps Deps) *gin.Engine {
	router := gin.New()

	// --- Global middleware; CORS must answer preflights before anything else ---
	router.Use(corsMiddleware(deps.AllowedOrigins))
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))

	if h.UploadDir != "" {
		router.Static("/uploads", h.UploadDir)
	}
	router.GET("/health", h.Health)

	requireAuth := middleware.AuthMiddleware(deps.Tokens, h.Users)
	requireAdmin := middleware.AdminMiddleware()
	throttle := func(scope string) gin.HandlerFunc {
		if deps.Limiter == nil {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(deps.Limiter, scope, deps.Logger)
	}

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)

		// --- Users ---
		users := api.Group("/users")
		{
			users.POST("/login", throttle("login"), h.Login)
			users.POST("", throttle("register"), h.Register)
			users.GET("/profile", requireAuth, h.GetProfile)

			users.GET("", requireAuth, requireAdmin, h.ListUsers)
			users.PATCH("/:id", requireAuth, requireAdmin, h.UpdateUser)
			users.DELETE("/:id", requireAuth, requireAdmin, h.DeleteUser)
		}

		// --- Catalog ---
		products := api.Group("/products")
		{
			products.GET("", h.ListProducts)
			products.GET("/categories", h.GetCategories)
			products.GET("/:id", h.GetProduct)

			products.POST("", requireAuth, requireAdmin, h.CreateProduct)
			products.POST("/upload", requireAuth, requireAdmin, h.UploadProductImage)
			products.PUT("/:id", requireAuth, requireAdmin, h.UpdateProduct)
			products.DELETE("/:id", requireAuth, requireAdmin, h.DeleteProduct)
		}

		// --- Cart ---
		cart := api.Group("/cart", requireAuth)
		{
			cart.GET("", h.GetCart)
			cart.POST("", h.AddToCart)
			cart.PUT("", h.ReplaceCart)
			cart.DELETE("", h.ClearCart)
			cart.DELETE("/:id", h.RemoveFromCart)
		}

		// --- Wishlist ---
		wishlist := api.Group("/wishlist", requireAuth)
		{
			wishlist.GET("", h.GetWishlist)
			wishlist.POST("", h.AddToWishlist)
			wishlist.PUT("", h.ReplaceWishlist)
			wishlist.DELETE("/:id", h.RemoveFromWishlist)
		}

		// --- Orders ---
		orders := api.Group("/orders", requireAuth)
		{
			orders.GET("", h.ListOrders)
			orders.POST("", h.CreateOrder)
			orders.GET("/:id", h.GetOrder)
			orders.PATCH("/:id", requireAdmin, h.UpdateOrder)
			orders.PUT("/:id", requireAdmin, h.UpdateOrder)

			// Payment gateway bridge
			orders.POST("/razorpay", throttle("payments"), h.CreateGatewayOrder)
			orders.POST("/verify", throttle("payments"), h.VerifyPayment)
		}

		// --- Admin ---
		admin := api.Group("/admin", requireAuth, requireAdmin)
		{
			admin.GET("/dashboard", h.GetDashboard)
		}
	}

	return router
}
