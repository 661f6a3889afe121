package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"collegeevents/middlewares"
	"collegeevents/services"
	"collegeevents/utils"
)

// Deps 依賴注入容器，由 main 組好傳進來
type Deps struct {
	Auth          *services.AuthService
	Clubs         *services.ClubService
	Events        *services.EventService
	Registrations *services.RegistrationService

	Redis    *redis.Client // nil = 不快取、不算配額
	CacheTTL time.Duration

	ClientURL      string
	UploadDir      string
	MaxUploadBytes int64
	AuthRate       middlewares.LimiterConfig
	OrderQuota     int // 每人每天可下幾張單
}

type handlers struct {
	Deps
}

// RegisterRoutes mounts the API under /api. The returned func stops the
// rate limiter janitors.
func RegisterRoutes(server *gin.Engine, d Deps) (stop func()) {
	h := &handlers{Deps: d}

	server.Use(middlewares.Recovery(), middlewares.Logger(), cors.New(corsConfig(d.ClientURL)))
	if d.MaxUploadBytes > 0 {
		server.MaxMultipartMemory = d.MaxUploadBytes
	}
	if d.UploadDir != "" {
		server.Static("/uploads", d.UploadDir)
	}
	server.NoRoute(func(c *gin.Context) {
		utils.Fail(c, utils.NotFound("Route not found"))
	})

	api := server.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "message": "BMSCE Events API is running"})
	})

	cache := middlewares.ResponseCache(d.Redis, d.CacheTTL)
	authed := middlewares.Authenticate(d.Auth)

	// ===== 未登入的 auth 端點：以 端點+IP 限速 =====
	authLimiter := middlewares.NewRateLimiter(d.AuthRate)
	byIP := authLimiter.Middleware(middlewares.RouteAndIP)

	auth := api.Group("/auth")
	auth.POST("/student/signup", byIP, h.studentSignup)
	auth.POST("/student/signin", byIP, h.studentSignin)
	auth.POST("/admin/login", byIP, h.adminClaim)
	auth.POST("/admin/relogin", byIP, h.adminRelogin)
	auth.POST("/forgot-password", byIP, h.forgotPassword)
	auth.POST("/admin/reset-password", authed, middlewares.RequireAdmin, h.adminResetPassword)
	auth.GET("/me", authed, h.me)

	clubs := api.Group("/clubs", cache)
	clubs.GET("", h.activeClubs)
	clubs.GET("/all", h.allClubs)

	events := api.Group("/events")
	events.GET("", cache, h.listEvents)
	events.GET("/:id", cache, h.getEvent)
	events.GET("/:id/calendar.ics", cache, h.eventCalendar)
	events.POST("", authed, middlewares.RequireAdmin, h.createEvent)
	events.PUT("/:id", authed, middlewares.RequireAdmin, h.updateEvent)
	events.DELETE("/:id", authed, middlewares.RequireAdmin, h.deleteEvent)

	// ===== 報名 / 金流：先驗證；下單另外有每日配額 =====
	pay := api.Group("/payments", authed)
	pay.POST("/create-order", middlewares.Quota(d.Redis, middlewares.QuotaRule{
		Limit:  d.OrderQuota,
		Window: 24 * time.Hour,
		KeyFn: func(c *gin.Context) string {
			if u := middlewares.CurrentUser(c); u != nil {
				return "quota:orders:" + u.ID
			}
			return ""
		},
	}), h.createOrder)
	pay.POST("/verify", h.verifyPayment)
	pay.POST("/register-free", h.registerFree)
	pay.GET("/my-registrations", h.myRegistrations)
	pay.GET("/registrations/:id/ticket", h.ticket)
	pay.GET("/event/:eventId/registrations", middlewares.RequireAdmin, h.eventRegistrations)
	pay.GET("/event/:eventId/registrations/export", middlewares.RequireAdmin, h.exportRegistrations)

	return authLimiter.Close
}

func corsConfig(clientURL string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middlewares.RequestIDHeader},
		ExposeHeaders: []string{middlewares.RequestIDHeader, "X-Cache", "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if clientURL == "" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = []string{clientURL}
	cfg.AllowCredentials = true
	return cfg
}

// bindJSON 解析失敗一律 400，欄位檢查交給 service；空 body 當成空物件
func bindJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		utils.Fail(c, utils.Validation("Could not parse request data."))
		return false
	}
	return true
}
