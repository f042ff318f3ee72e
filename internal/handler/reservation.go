package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/salasapp/reserva-salas/internal/model"
	"github.com/salasapp/reserva-salas/internal/queue"
	"github.com/salasapp/reserva-salas/internal/schedule"
	"github.com/salasapp/reserva-salas/internal/service"
)

// EventPublisher sends a reservation event to the message broker. It is a
// function type so tests can run the handler without a broker.
type EventPublisher func(ctx context.Context, ev queue.ReservationEvent) error

// ReservationHandler exposes the reservation lifecycle over HTTP. All
// business rules live in the service; this layer only binds requests,
// maps service error codes to HTTP statuses and shapes responses.
type ReservationHandler struct {
	Svc     *service.ReservationService
	Publish EventPublisher // optional, nil disables event publishing
}

func NewReservationHandler(svc *service.ReservationService, publish EventPublisher) *ReservationHandler {
	return &ReservationHandler{Svc: svc, Publish: publish}
}

// ----- DTOs -----

type createReservationReq struct {
	Room      string `json:"room"`
	Date      string `json:"date"` // DD/MM/YYYY
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type updateReservationReq struct {
	Room      *string `json:"room"`
	Date      *string `json:"date"`
	StartTime *string `json:"startTime"`
	EndTime   *string `json:"endTime"`
}

type reservationResp struct {
	ID        uint64    `json:"id"`
	Room      string    `json:"room"`
	Date      string    `json:"date"` // DD/MM/YYYY
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type availabilityResp struct {
	Room      string   `json:"room"`
	Date      string   `json:"date"`
	FreeSlots []string `json:"freeSlots"`
}

func toReservationResp(r model.Reservation) reservationResp {
	return reservationResp{
		ID:        r.ID,
		Room:      r.Room,
		Date:      schedule.FormatDate(r.Day),
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// serviceError translates a service failure into a JSON error response.
func serviceError(c echo.Context, err error) error {
	code := service.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case service.CodeMissingField, service.CodeInvalidFormat,
		service.CodePastDate, service.CodeInvalidRoom:
		status = http.StatusBadRequest
	case service.CodeSlotConflict:
		status = http.StatusConflict
	case service.CodeNotFound:
		status = http.StatusNotFound
	}
	return c.JSON(status, echo.Map{"error": err.Error(), "code": string(code)})
}

// publishEvent fires a reservation event without blocking the response.
// Publishing is best effort; failures are logged by the publisher itself.
func (h *ReservationHandler) publishEvent(action string, r model.Reservation) {
	if h.Publish == nil {
		return
	}
	ev := queue.ReservationEvent{
		Action:        action,
		ReservationID: r.ID,
		OwnerID:       r.OwnerID,
		Room:          r.Room,
		Date:          schedule.FormatDate(r.Day),
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Publish(ctx, ev)
	}()
}

// List returns the caller's reservations ordered by day and start time.
func (h *ReservationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Svc.List(ctx, uid)
	if err != nil {
		return serviceError(c, err)
	}
	out := make([]reservationResp, 0, len(items))
	for _, r := range items {
		out = append(out, toReservationResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// Create books a room. Validation order and error codes come from the
// service; a race lost to a concurrent writer surfaces as 409 exactly
// like a conflict the pre-check caught.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Create(ctx, service.CreateInput{
		OwnerID:   uid,
		Room:      req.Room,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		return serviceError(c, err)
	}
	h.publishEvent(queue.ActionCreated, res)
	return c.JSON(http.StatusCreated, toReservationResp(res))
}

// Update applies a partial patch to one of the caller's reservations.
// Omitted fields keep their stored values. A reservation belonging to
// someone else is indistinguishable from a missing one: both are 404.
func (h *ReservationHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found", "code": string(service.CodeNotFound)})
	}
	var req updateReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Update(ctx, uid, id, service.UpdatePatch{
		Room:      req.Room,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		return serviceError(c, err)
	}
	h.publishEvent(queue.ActionUpdated, res)
	return c.JSON(http.StatusOK, toReservationResp(res))
}

// Delete removes one of the caller's reservations and echoes the deleted
// record back.
func (h *ReservationHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found", "code": string(service.CodeNotFound)})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.Delete(ctx, uid, id)
	if err != nil {
		return serviceError(c, err)
	}
	h.publishEvent(queue.ActionDeleted, res)
	return c.JSON(http.StatusOK, echo.Map{"deleted": toReservationResp(res)})
}

// Availability lists the free 30-minute slots of a room on a date. The
// date arrives as the DD/MM/YYYY query parameter "date".
func (h *ReservationHandler) Availability(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	av, err := h.Svc.Availability(ctx, c.Param("room"), c.QueryParam("date"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, availabilityResp{
		Room:      av.Room,
		Date:      schedule.FormatDate(av.Day),
		FreeSlots: av.FreeSlots,
	})
}
