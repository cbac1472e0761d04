package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/uma-arai/sbcntr-court/internal/auth"
)

// NewRouter はルーティングを設定した gin.Engine を返します
func NewRouter(h *Handler, verifier auth.TokenVerifier, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/courts", h.ListCourts)
	r.GET("/courts/:id", h.GetCourt)
	r.GET("/courts/:id/slots", h.ListSlots)
	r.GET("/calendar/dates", h.BookableDates)

	secured := r.Group("")
	secured.Use(AuthMiddleware(verifier))
	{
		secured.GET("/reservations", h.ListReservations)
		secured.POST("/reservations", h.CreateReservation)
		secured.POST("/reservations/refresh", h.RefreshReservations)
		secured.GET("/reservations/:id", h.GetReservation)
		secured.PUT("/reservations/:id/cancel", h.CancelReservation)

		if h.notifications != nil {
			secured.GET("/notifications", h.ListNotifications)
			secured.PUT("/notifications/:id/read", h.MarkNotificationAsRead)
		}
	}

	return r
}
