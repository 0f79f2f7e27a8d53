package browser

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nandanugg/pothole-alert/module/core/domain"
	"github.com/nandanugg/pothole-alert/module/core/internal/provider"
)

var _ provider.Provider = (*Relay)(nil)

type permissionRequest struct {
	State string `json:"state" binding:"required"`
}

type watchResponse struct {
	WatchID            string `json:"watch_id"`
	EnableHighAccuracy bool   `json:"enable_high_accuracy"`
	Timeout            int64  `json:"timeout"`
	MaximumAge         int64  `json:"maximum_age"`
}

// Relay is the generic location provider. A page running
// navigator.geolocation.watchPosition polls for the active watch and posts
// every position and error it receives back to the relay.
type Relay struct {
	log *slog.Logger

	mu         sync.Mutex
	permission domain.Permission
	watchID    string
	opts       domain.WatchOptions
	sink       provider.Sink
}

func NewRelay(log *slog.Logger) *Relay {
	return &Relay{log: log, permission: domain.PermissionStatePrompt}
}

func (r *Relay) Name() string {
	return "browser"
}

func (r *Relay) Register(rg *gin.RouterGroup) {
	g := rg.Group("/geolocation")
	g.GET("/watch", r.GetWatch)
	g.POST("/permission", r.PostPermission)
	g.POST("/positions", r.PostPosition)
	g.POST("/errors", r.PostError)
}

// RequestPermission reports the last state the page saw from the
// Permissions API. Prompt does not block a watch: the browser asks the
// user when watchPosition is called.
func (r *Relay) RequestPermission(_ context.Context) (domain.Permission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.permission, nil
}

func (r *Relay) Watch(_ context.Context, opts domain.WatchOptions, sink provider.Sink) (provider.WatchID, error) {
	id := uuid.NewString()
	r.mu.Lock()
	r.watchID, r.opts, r.sink = id, opts, sink
	r.mu.Unlock()
	return provider.WatchID(id), nil
}

func (r *Relay) ClearWatch(id provider.WatchID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watchID != "" && r.watchID == string(id) {
		r.watchID, r.sink = "", nil
	}
	return nil
}

func (r *Relay) GetWatch(c *gin.Context) {
	r.mu.Lock()
	id, opts := r.watchID, r.opts
	r.mu.Unlock()

	if id == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, watchResponse{
		WatchID:            id,
		EnableHighAccuracy: opts.HighAccuracy,
		Timeout:            opts.Timeout.Milliseconds(),
		MaximumAge:         opts.MaximumAge.Milliseconds(),
	})
}

func (r *Relay) PostPermission(c *gin.Context) {
	var req permissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	perm, err := domain.ParsePermission(req.State)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r.mu.Lock()
	r.permission = perm
	r.mu.Unlock()
	c.Status(http.StatusNoContent)
}

func (r *Relay) PostPosition(c *gin.Context) {
	var msg provider.PositionMessage
	if err := c.ShouldBindJSON(&msg); err != nil || msg.Coords == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position"})
		return
	}
	r.forward(c, &msg)
}

func (r *Relay) PostError(c *gin.Context) {
	var msg provider.PositionMessage
	if err := c.ShouldBindJSON(&msg); err != nil || msg.Error == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position error"})
		return
	}
	r.forward(c, &msg)
}

func (r *Relay) forward(c *gin.Context, msg *provider.PositionMessage) {
	ev, err := msg.Event(r.Name())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r.mu.Lock()
	watchID, sink := r.watchID, r.sink
	r.mu.Unlock()

	if sink == nil || msg.WatchID != watchID {
		r.log.Debug("dropping message for inactive watch", "watch_id", msg.WatchID)
		c.JSON(http.StatusConflict, gin.H{"error": provider.ErrUnknownWatch.Error()})
		return
	}

	sink(ev)
	c.Status(http.StatusAccepted)
}
