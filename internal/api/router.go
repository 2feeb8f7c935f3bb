package api

import (
	"net/http" // HTTP status codes
	"time"     // Cache TTL

	"cbms_backend/internal/dashboard"  // Reporting views
	"cbms_backend/internal/ledger"     // Ledger operations
	"cbms_backend/internal/middleware" // Auth, logging and cache middleware
	"cbms_backend/internal/utils"      // Cache key prefixes

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"github.com/sirupsen/logrus"                              // Logging library
)

// Deps is everything the router wires into handlers
type Deps struct {
	Ledger         *ledger.Ledger     // Write operations and the database
	Dashboard      *dashboard.Service // Reporting views
	Redis          *redis.Client      // Optional cache, nil disables caching
	Tokens         TokenConfig        // Token signing settings
	MediaRoot      string             // Upload directory served at /media
	CacheTTL       time.Duration      // Lifetime of cached public views
	TrustedProxies []string           // Proxies allowed to set client IP headers
}

// NewRouter builds the gin engine with every route under /api
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		logrus.WithError(err).Warn("Invalid trusted proxies, trusting none")
		_ = r.SetTrustedProxies(nil)
	}

	db := d.Ledger.DB()
	l := d.Ledger

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.Static("/media", d.MediaRoot)

	apiGroup := r.Group("/api")
	// Auth routes
	apiGroup.POST("/token/", LoginHandler(l, d.Tokens))
	apiGroup.POST("/token/refresh/", RefreshHandler(db, d.Tokens))

	// Everything else needs a valid access token; successful writes drop cached views
	protected := apiGroup.Group("")
	protected.Use(
		middleware.JWTAuthMiddleware(db, d.Tokens.Secret),
		middleware.InvalidateOnWrite(d.Redis, utils.DashboardPrefix),
		middleware.InvalidateOnWrite(d.Redis, utils.UsersPrefix),
	)
	admin := middleware.AdminOnlyMiddleware()

	users := protected.Group("/users")
	users.GET("/", ListUsersHandler(db))
	users.POST("/", admin, CreateUserHandler(l, d.MediaRoot))
	users.GET("/me/", MeHandler(db))
	users.GET("/my_members/", MyMembersHandler(db))
	users.GET("/all_public/", AllPublicHandler(db, d.Redis, d.CacheTTL))
	users.GET("/:id/", GetUserHandler(db))
	users.PUT("/:id/", UpdateUserHandler(l, d.MediaRoot))
	users.PATCH("/:id/", UpdateUserHandler(l, d.MediaRoot))
	users.DELETE("/:id/", admin, DeleteUserHandler(l))

	payments := protected.Group("/payments")
	payments.GET("/", ListPaymentsHandler(db))
	payments.POST("/", CreatePaymentHandler(l))
	payments.GET("/:id/", GetPaymentHandler(db))
	payments.PUT("/:id/", UpdatePaymentHandler(l))
	payments.PATCH("/:id/", UpdatePaymentHandler(l))
	payments.DELETE("/:id/", admin, DeletePaymentHandler(l))

	funds := protected.Group("/fund-requests")
	funds.GET("/", ListFundRequestsHandler(db))
	funds.POST("/", CreateFundRequestHandler(l))
	funds.GET("/:id/", GetFundRequestHandler(db))
	funds.PUT("/:id/", UpdateFundRequestHandler(l))
	funds.PATCH("/:id/", UpdateFundRequestHandler(l))
	funds.DELETE("/:id/", DeleteFundRequestHandler(l))
	funds.POST("/:id/approve/", admin, ApproveFundRequestHandler(l))
	funds.POST("/:id/decline/", admin, DeclineFundRequestHandler(l))

	wallet := protected.Group("/wallet-transactions")
	wallet.GET("/", ListWalletTransactionsHandler(db))
	wallet.POST("/", CreateWalletTransactionHandler(l))
	wallet.GET("/:id/", GetWalletTransactionHandler(db))
	wallet.PUT("/:id/", UpdateWalletTransactionHandler(l))
	wallet.PATCH("/:id/", UpdateWalletTransactionHandler(l))
	wallet.DELETE("/:id/", DeleteWalletTransactionHandler(l))
	wallet.POST("/:id/approve/", admin, ApproveWalletTransactionHandler(l))
	wallet.POST("/:id/reject/", admin, RejectWalletTransactionHandler(l))

	notifications := protected.Group("/notifications")
	notifications.GET("/", ListNotificationsHandler(db))
	notifications.POST("/", admin, CreateNotificationHandler(l))
	notifications.POST("/mark_all_read/", MarkAllReadHandler(l))
	notifications.POST("/announce/", admin, AnnounceHandler(l))
	notifications.GET("/:id/", GetNotificationHandler(db))
	notifications.PUT("/:id/", UpdateNotificationHandler(l))
	notifications.PATCH("/:id/", UpdateNotificationHandler(l))
	notifications.DELETE("/:id/", DeleteNotificationHandler(l))
	notifications.POST("/:id/mark_read/", MarkReadHandler(l))

	terms := protected.Group("/terms")
	terms.GET("/", ListTermsHandler(db))
	terms.POST("/", AcknowledgeTermsHandler(l))
	terms.GET("/:id/", GetTermsHandler(db))

	protected.GET("/dashboard/stats/", DashboardStatsHandler(d.Dashboard))
	protected.GET("/teams/", TeamsHandler(d.Dashboard))

	return r
}
