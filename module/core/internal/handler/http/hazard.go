package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nandanugg/pothole-alert/module/core/domain"
)

type hazardService interface {
	List() []domain.Hazard
	Replace(hazards []domain.Hazard) error
}

type hazardRequest struct {
	ID          string    `json:"id" binding:"required"`
	Latitude    *float64  `json:"latitude" binding:"required"`
	Longitude   *float64  `json:"longitude" binding:"required"`
	Severity    string    `json:"severity" binding:"required"`
	ReportCount int       `json:"report_count"`
	ReportedBy  string    `json:"reported_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// HazardHandler lets the reporting backend push a fresh hazard snapshot.
type HazardHandler struct {
	hazardSvc hazardService
}

func NewHazardHandler(hazardSvc hazardService) *HazardHandler {
	return &HazardHandler{hazardSvc: hazardSvc}
}

func (h *HazardHandler) Register(r *gin.RouterGroup) {
	r.GET("/hazards", h.List)
	r.PUT("/hazards", h.Replace)
}

func (h *HazardHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.hazardSvc.List())
}

func (h *HazardHandler) Replace(c *gin.Context) {
	var req []hazardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hazards := make([]domain.Hazard, 0, len(req))
	for _, r := range req {
		severity, err := domain.ParseSeverity(r.Severity)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		count := r.ReportCount
		if count == 0 {
			count = 1
		}
		hazards = append(hazards, domain.Hazard{
			ID:          r.ID,
			Lat:         *r.Latitude,
			Lon:         *r.Longitude,
			Severity:    severity,
			ReportCount: count,
			ReportedBy:  r.ReportedBy,
			Timestamp:   r.Timestamp,
		})
	}

	if err := h.hazardSvc.Replace(hazards); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(hazards)})
}
