package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/pothole-alert/module/core/domain"
)

type trackService interface {
	GetLatest(ctx context.Context, deviceID string) (*domain.TrackPoint, error)
	GetHistory(ctx context.Context, query *domain.TrackQuery) ([]domain.TrackPoint, error)
	GetDevices(ctx context.Context) ([]domain.Device, error)
}

type trackResponse struct {
	DeviceID  string   `json:"device_id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

type TrackHandler struct {
	trackSvc trackService
}

func NewTrackHandler(trackSvc trackService) *TrackHandler {
	return &TrackHandler{trackSvc: trackSvc}
}

func (h *TrackHandler) Register(r *gin.RouterGroup) {
	r.GET("/devices", h.GetDevices)
	r.GET("/devices/:device_id/track/latest", h.GetLatest)
	r.GET("/devices/:device_id/track", h.GetHistory)
}

func (h *TrackHandler) GetDevices(c *gin.Context) {
	devices, err := h.trackSvc.GetDevices(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch devices"})
		return
	}
	if devices == nil {
		devices = []domain.Device{}
	}

	c.JSON(http.StatusOK, devices)
}

func (h *TrackHandler) GetLatest(c *gin.Context) {
	deviceID := c.Param("device_id")

	pt, err := h.trackSvc.GetLatest(c.Request.Context(), deviceID)
	if errors.Is(err, domain.ErrTrackNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch track"})
		return
	}

	c.JSON(http.StatusOK, toTrackResponse(pt))
}

func (h *TrackHandler) GetHistory(c *gin.Context) {
	deviceID := c.Param("device_id")

	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}

	query := &domain.TrackQuery{
		DeviceID: deviceID,
		Start:    time.Unix(start, 0),
		End:      time.Unix(end, 0),
	}

	points, err := h.trackSvc.GetHistory(c.Request.Context(), query)
	if errors.Is(err, domain.ErrInvalidTimeRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch track"})
		return
	}

	results := make([]trackResponse, len(points))
	for i := range points {
		results[i] = toTrackResponse(&points[i])
	}
	c.JSON(http.StatusOK, results)
}

func toTrackResponse(pt *domain.TrackPoint) trackResponse {
	return trackResponse{
		DeviceID:  pt.DeviceID,
		Latitude:  pt.Position.Lat,
		Longitude: pt.Position.Lon,
		Accuracy:  pt.Position.Accuracy,
		Timestamp: pt.Position.Timestamp.Unix(),
	}
}
