package config

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
)

type check struct {
	name     string
	critical bool
	probe    func(ctx context.Context) error
}

// HealthChecker reports dependency status on /healthz. A failing critical
// dependency makes the service unhealthy; any other failure only degrades
// it.
type HealthChecker struct {
	checks []check
}

func NewHealthChecker(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client) *HealthChecker {
	h := &HealthChecker{}
	if db != nil {
		h.Add("postgres", true, db.PingContext)
	}
	if amqpConn != nil {
		h.Add("rabbitmq", true, func(context.Context) error {
			if amqpConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		})
	}
	if mqttClient != nil {
		// the browser relay takes over while the bridge is down
		h.Add("mqtt", false, func(context.Context) error {
			if !mqttClient.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		})
	}
	return h
}

func (h *HealthChecker) Add(name string, critical bool, probe func(ctx context.Context) error) {
	h.checks = append(h.checks, check{name: name, critical: critical, probe: probe})
}

func (h *HealthChecker) Register(r *gin.Engine) {
	r.GET("/healthz", h.Handle)
}

func (h *HealthChecker) Handle(c *gin.Context) {
	status := http.StatusOK
	overall := "healthy"
	deps := gin.H{}

	for _, chk := range h.checks {
		if err := chk.probe(c.Request.Context()); err != nil {
			deps[chk.name] = gin.H{"status": "down", "error": err.Error()}
			if chk.critical {
				status = http.StatusServiceUnavailable
				overall = "unhealthy"
			} else if overall == "healthy" {
				overall = "degraded"
			}
			continue
		}
		deps[chk.name] = gin.H{"status": "up"}
	}

	c.JSON(status, gin.H{
		"status":       overall,
		"dependencies": deps,
	})
}
