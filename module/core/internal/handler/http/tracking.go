package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/service"
)

type trackingService interface {
	Start(ctx context.Context) error
	Stop()
	Status() service.TrackingStatus
}

type TrackingHandler struct {
	tracker trackingService
}

func NewTrackingHandler(tracker trackingService) *TrackingHandler {
	return &TrackingHandler{tracker: tracker}
}

func (h *TrackingHandler) Register(r *gin.RouterGroup) {
	r.GET("/tracking", h.Status)
	r.POST("/tracking/start", h.Start)
	r.POST("/tracking/stop", h.Stop)
}

func (h *TrackingHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Status())
}

func (h *TrackingHandler) Start(c *gin.Context) {
	err := h.tracker.Start(c.Request.Context())
	if err == nil {
		c.JSON(http.StatusOK, h.tracker.Status())
		return
	}

	var lerr *domain.LocationError
	if errors.As(err, &lerr) {
		status := http.StatusServiceUnavailable
		if lerr.Kind == domain.PermissionDenied {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": lerr.Error(), "kind": lerr.Kind})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
}

func (h *TrackingHandler) Stop(c *gin.Context) {
	h.tracker.Stop()
	c.JSON(http.StatusOK, h.tracker.Status())
}
