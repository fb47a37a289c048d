package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ririnrahma1306/campusboard/internal/models"
	"github.com/ririnrahma1306/campusboard/internal/service"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
	"github.com/ririnrahma1306/campusboard/pkg/response"
)

// CalendarHandler exposes the personal calendar.
type CalendarHandler struct {
	service *service.CalendarService
}

// NewCalendarHandler creates a new handler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Save godoc
// @Summary Save an event to the calendar
// @Description Snapshots the event data. Past events and duplicates are rejected
// @Tags Calendar
// @Accept json
// @Produce json
// @Param payload body models.SaveCalendarEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /calendar [post]
func (h *CalendarHandler) Save(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.SaveCalendarEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar payload"))
		return
	}

	entry, err := h.service.Save(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, entry)
}

// List godoc
// @Summary List calendar entries
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	entries, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil)
}

// Remove godoc
// @Summary Remove an event from the calendar
// @Tags Calendar
// @Produce json
// @Param eventId path string true "Event ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /calendar/{eventId} [delete]
func (h *CalendarHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Remove(c.Request.Context(), claims.UserID, c.Param("eventId")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// MonthGrid godoc
// @Summary Month view of the event schedule
// @Description Sunday-first grid with leading blank cells; multi-day events occupy their whole range and saved ones are flagged
// @Tags Calendar
// @Produce json
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /calendar/grid [get]
func (h *CalendarHandler) MonthGrid(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be a number"))
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "month must be a number"))
		return
	}

	grid, err := h.service.MonthGrid(c.Request.Context(), claims.UserID, year, month)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, grid, nil)
}
