// Package api は予約エンジンを HTTP で公開します
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/uma-arai/sbcntr-court/internal/apperror"
	"github.com/uma-arai/sbcntr-court/internal/auth"
	"github.com/uma-arai/sbcntr-court/internal/model"
	"github.com/uma-arai/sbcntr-court/internal/repository"
)

// ReservationService は予約の作成・キャンセル・参照です。実装は booking.Manager です
type ReservationService interface {
	CreateForCurrentUser(ctx context.Context, courtID string, date model.Date, start model.TimeOfDay) (*model.Reservation, error)
	CancelForCurrentUser(ctx context.Context, reservationID string) error
	GetReservationForCurrentUser(ctx context.Context, id string) (*model.Reservation, error)
	ListUserReservations(ctx context.Context, userID string, filter model.ReservationFilter) ([]model.Reservation, error)
	RefreshUserReservations(ctx context.Context, userID string) ([]model.Reservation, error)
}

// AvailabilityService は空き状況の参照です。実装は booking.AvailabilityResolver です
type AvailabilityService interface {
	GetAvailableSlots(ctx context.Context, courtID string, date model.Date) ([]model.TimeSlot, error)
	GetDisplaySlots(ctx context.Context, courtID string, date model.Date) ([]model.TimeSlot, error)
	BookableDates() []model.Date
}

type Handler struct {
	reservations  ReservationService
	availability  AvailabilityService
	courts        repository.CourtCatalog
	notifications repository.NotificationRepository
	users         auth.CurrentUserProvider
}

// NewHandler は notifications が nil の場合、通知のルートを登録しません
func NewHandler(
	reservations ReservationService,
	availability AvailabilityService,
	courts repository.CourtCatalog,
	notifications repository.NotificationRepository,
) *Handler {
	return &Handler{
		reservations:  reservations,
		availability:  availability,
		courts:        courts,
		notifications: notifications,
		users:         auth.ContextProvider{},
	}
}

// GET /courts
func (h *Handler) ListCourts(c *gin.Context) {
	courts, err := h.courts.ListCourts(c.Request.Context())
	if err != nil {
		writeError(c, remoteError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"courts": courts})
}

// GET /courts/:id
func (h *Handler) GetCourt(c *gin.Context) {
	id := c.Param("id")
	court, err := h.courts.GetCourtByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, remoteError(err))
		return
	}
	if court == nil {
		writeError(c, apperror.NotFound("court", id))
		return
	}
	c.JSON(http.StatusOK, court)
}

// GET /calendar/dates
func (h *Handler) BookableDates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dates": h.availability.BookableDates()})
}

// GET /courts/:id/slots?date=YYYY-MM-DD[&display=true]
func (h *Handler) ListSlots(c *gin.Context) {
	date, err := model.ParseDate(c.Query("date"))
	if err != nil {
		badRequest(c, err)
		return
	}
	display, _ := strconv.ParseBool(c.DefaultQuery("display", "false"))

	courtID := c.Param("id")
	var slots []model.TimeSlot
	if display {
		slots, err = h.availability.GetDisplaySlots(c.Request.Context(), courtID, date)
	} else {
		slots, err = h.availability.GetAvailableSlots(c.Request.Context(), courtID, date)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"court_id": courtID, "date": date, "slots": slots})
}

type createReservationRequest struct {
	CourtID   string `json:"court_id"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
}

// POST /reservations
func (h *Handler) CreateReservation(c *gin.Context) {
	var in createReservationRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	date, err := model.ParseDate(in.Date)
	if err != nil {
		badRequest(c, err)
		return
	}
	start, err := model.ParseTimeOfDay(in.StartTime)
	if err != nil {
		badRequest(c, err)
		return
	}

	r, err := h.reservations.CreateForCurrentUser(c.Request.Context(), in.CourtID, date, start)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// GET /reservations?filter=all|active|completed|cancelled
func (h *Handler) ListReservations(c *gin.Context) {
	userID, ok := h.users.CurrentUserID(c.Request.Context())
	if !ok {
		writeError(c, apperror.Unauthenticated())
		return
	}
	filter := model.ParseReservationFilter(c.DefaultQuery("filter", string(model.FilterAll)))

	rs, err := h.reservations.ListUserReservations(c.Request.Context(), userID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"filter": filter, "reservations": rs})
}

// GET /reservations/:id
func (h *Handler) GetReservation(c *gin.Context) {
	r, err := h.reservations.GetReservationForCurrentUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// PUT /reservations/:id/cancel
func (h *Handler) CancelReservation(c *gin.Context) {
	id := c.Param("id")
	if err := h.reservations.CancelForCurrentUser(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": model.StatusCancelled})
}

// POST /reservations/refresh
func (h *Handler) RefreshReservations(c *gin.Context) {
	userID, ok := h.users.CurrentUserID(c.Request.Context())
	if !ok {
		writeError(c, apperror.Unauthenticated())
		return
	}
	rs, err := h.reservations.RefreshUserReservations(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": rs})
}

// GET /notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	userID, ok := h.users.CurrentUserID(c.Request.Context())
	if !ok {
		writeError(c, apperror.Unauthenticated())
		return
	}
	records, err := h.notifications.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": records})
}

// PUT /notifications/:id/read
func (h *Handler) MarkNotificationAsRead(c *gin.Context) {
	userID, ok := h.users.CurrentUserID(c.Request.Context())
	if !ok {
		writeError(c, apperror.Unauthenticated())
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		badRequest(c, fmt.Errorf("invalid notification id: %s", c.Param("id")))
		return
	}
	if err := h.notifications.MarkAsRead(c.Request.Context(), userID, id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
