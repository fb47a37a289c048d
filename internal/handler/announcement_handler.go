package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ririnrahma1306/campusboard/internal/middleware"
	"github.com/ririnrahma1306/campusboard/internal/models"
	"github.com/ririnrahma1306/campusboard/internal/service"
	appErrors "github.com/ririnrahma1306/campusboard/pkg/errors"
	"github.com/ririnrahma1306/campusboard/pkg/response"
)

// AnnouncementHandler exposes the board and the approval workflow.
type AnnouncementHandler struct {
	service *service.AnnouncementService
}

// NewAnnouncementHandler creates a new handler.
func NewAnnouncementHandler(svc *service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{service: svc}
}

// Create godoc
// @Summary Submit an announcement
// @Description Regular users enter the pending queue; admin submissions publish immediately
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body models.CreateAnnouncementRequest true "Announcement payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}

	a, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, a)
}

// Board godoc
// @Summary Browse the published board
// @Description Published announcements newest first with category and search filters
// @Tags Announcements
// @Produce json
// @Param category query string false "Category filter"
// @Param search query string false "Title search"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) Board(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	var category *models.AnnouncementCategory
	if raw := c.Query("category"); raw != "" {
		cat := models.AnnouncementCategory(raw)
		category = &cat
	}

	board, err := h.service.Board(c.Request.Context(), category, c.Query("search"), page)
	if err != nil {
		response.Error(c, err)
		return
	}

	middleware.SetMetaValue(c, "result_count", len(board.Items))
	response.JSON(c, http.StatusOK, board.Items, &board.Pagination, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get one announcement
// @Description Unpublished rows are visible only to their author and admins
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /announcements/{id} [get]
func (h *AnnouncementHandler) Get(c *gin.Context) {
	a, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, a, nil)
}

// ListMine godoc
// @Summary List own submissions
// @Description The caller's announcements in every status
// @Tags Announcements
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /announcements/mine [get]
func (h *AnnouncementHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	items, pagination, err := h.service.ListMine(c.Request.Context(), claims.UserID, page)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, pagination)
}

// ListPending godoc
// @Summary List the approval queue
// @Tags Announcements
// @Produce json
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/announcements/pending [get]
func (h *AnnouncementHandler) ListPending(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	items, pagination, err := h.service.ListPending(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, pagination)
}

// Approve godoc
// @Summary Approve a pending announcement
// @Description Publishes the announcement and schedules its event when dated
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/announcements/{id}/approve [post]
func (h *AnnouncementHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	a, err := h.service.Approve(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, a, nil)
}

// Reject godoc
// @Summary Reject a pending announcement
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/announcements/{id}/reject [post]
func (h *AnnouncementHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	a, err := h.service.Reject(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, a, nil)
}

// Delete godoc
// @Summary Delete an announcement
// @Description Admin only. Comments and the spawned event are removed with it
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
