package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumierebeauty/lumiere-golang/internal/handlers"
	"github.com/lumierebeauty/lumiere-golang/internal/middleware"
)

// CORSMiddleware tells the browser the member frontend is allowed to call us.
func CORSMiddleware(frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", frontendURL)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Preflight OPTIONS gets an empty 204.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers, frontendURL string) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware(frontendURL))

	// --- Operational Endpoints ---
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		// --- Auth Routes (Public) ---
		v1.POST("/auth/register", h.Register)
		v1.POST("/auth/login", h.Login)
		v1.POST("/auth/oauth/:provider", h.OAuthLogin)

		// --- Payment Gateway Callbacks (Public) ---
		// The notify is authenticated by its check value, not by a session.
		v1.POST("/payments/newebpay/notify", h.NewebpayNotify)
		v1.GET("/payments/result", h.PaymentResult)

		// --- Member Routes (Login Required) ---
		member := v1.Group("/member")
		member.Use(middleware.AuthMiddleware())
		{
			member.GET("/profile", h.GetProfile)
			member.PUT("/profile", h.UpdateProfile)
			member.PUT("/password", h.ChangePassword)
			member.GET("/login-logs", h.GetMyLoginLogs)

			member.POST("/checkout", h.Checkout)

			member.GET("/orders", h.GetMyOrders)
			member.GET("/orders/:id", h.GetOrder)
			member.POST("/orders/:id/cancel", h.CancelOrder)

			member.GET("/coupons", h.GetMyCoupons)
			member.POST("/coupons/claim", h.ClaimCoupon)

			member.GET("/addresses", h.GetMyAddresses)
			member.POST("/addresses", h.CreateAddress)
			member.PUT("/addresses/:id", h.UpdateAddress)
			member.DELETE("/addresses/:id", h.DeleteAddress)
			member.POST("/addresses/:id/default", h.SetDefaultAddress)

			member.GET("/points", h.GetMyPoints)
			member.GET("/points/history", h.GetMyPointsHistory)
			member.POST("/points/redeem", h.RedeemPoints)

			member.GET("/favorites", h.GetMyFavorites)
			member.POST("/favorites", h.AddFavorite)
			member.DELETE("/favorites/:itemId", h.RemoveFavorite)

			member.GET("/appointments", h.GetMyAppointments)
			member.POST("/appointments", h.BookAppointment)
			member.POST("/appointments/:id/cancel", h.CancelAppointment)

			member.GET("/dashboard", h.GetDashboard)
		}

		// --- Staff-Only Routes ---
		staff := v1.Group("/staff")
		staff.Use(middleware.AuthMiddleware())
		staff.Use(middleware.StaffMiddleware(h.DB))
		{
			staff.PATCH("/orders/:id/status", h.UpdateOrderStatus)
			staff.POST("/coupons", h.CreateCoupon)
		}
	}

	return router
}
