package handler

import (
	"errors"
	"net/http"
	"strconv"

	"go-gin-event-scheduler/internal/model"
	"go-gin-event-scheduler/internal/service"
	apperrors "go-gin-event-scheduler/pkg/app_errors"
	"go-gin-event-scheduler/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventHandler struct {
	service service.EventService
}

func NewEventHandler(service service.EventService) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("events", h.Create)
		router.GET("events", h.List)
		router.GET("events/search", h.Search)
		router.GET("events/reminders", h.Reminders)
		router.GET("events/:id", h.GetByID)
		router.PUT("events/:id", h.Update)
		router.DELETE("events/:id", h.Delete)
		router.GET("calendar.ics", h.Calendar)
	}
}

func (h *EventHandler) Create(c *gin.Context) {
	var req model.CreateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	event, err := h.service.Create(c, req)
	if err != nil {
		h.handleError(c, err, "Create")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Event created successfully",
		"event":   event.ToResponse(),
	})
}

func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.List(c, model.ParseSortBy(c.Query("sort_by")))
	if err != nil {
		h.handleError(c, err, "List")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": model.ToResponses(events),
		"count":  len(events),
	})
}

func (h *EventHandler) GetByID(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	event, err := h.service.GetByID(c, id)
	if err != nil {
		h.handleError(c, err, "GetByID")
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event.ToResponse()})
}

func (h *EventHandler) Update(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req model.UpdateEventRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	event, err := h.service.Update(c, id, req)
	if err != nil {
		h.handleError(c, err, "Update")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Event updated successfully",
		"event":   event.ToResponse(),
	})
}

func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c, id); err != nil {
		h.handleError(c, err, "Delete")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}

func (h *EventHandler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		abortWithError(c, http.StatusBadRequest, CategoryValidation, `Search query parameter "q" is required`)
		return
	}
	results, err := h.service.Search(c, query)
	if err != nil {
		h.handleError(c, err, "Search")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results": model.ToResponses(results),
		"count":   len(results),
		"query":   query,
	})
}

func (h *EventHandler) Reminders(c *gin.Context) {
	reminders, err := h.service.Reminders(c)
	if err != nil {
		h.handleError(c, err, "Reminders")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reminders": reminders,
		"count":     len(reminders),
	})
}

func (h *EventHandler) Calendar(c *gin.Context) {
	body, err := h.service.Calendar(c)
	if err != nil {
		h.handleError(c, err, "Calendar")
		return
	}
	c.Header("Content-Disposition", `inline; filename="events.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

func eventID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, CategoryValidation, "Invalid event id")
		return 0, false
	}
	return id, true
}

func (h *EventHandler) handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))
	switch {
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		abortWithError(c, http.StatusNotFound, CategoryNotFound, "Event not found")
	case errors.Is(err, apperrors.ErrInvalidInput):
		log.Warn("Invalid input")
		abortWithError(c, http.StatusBadRequest, CategoryValidation, apperrors.Message(err))
	case errors.Is(err, apperrors.ErrPersistence):
		log.Error("Persistence failure")
		abortWithError(c, http.StatusServiceUnavailable, CategoryPersistence, "Event store is unavailable")
	default:
		log.Error("Unexpected error")
		abortWithError(c, http.StatusInternalServerError, CategoryInternal, "Internal server error")
	}
}
