package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nandanugg/pothole-alert/config"
	"github.com/nandanugg/pothole-alert/module/core"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.Fatalf("rabbitmq: %v", err)
	}
	defer func() { _ = amqpConn.Close() }()

	// the hook can fire before the module exists; it has nothing to restore then
	var connected atomic.Pointer[core.Module]
	mqttClient, err := config.NewMQTT(cfg, func() {
		if m := connected.Load(); m != nil {
			m.MQTTConnected()
		}
	})
	if err != nil {
		// keeps retrying; the browser relay serves locations meanwhile
		logger.Warn("mqtt unavailable, native location bridge disabled until connected", "error", err)
	}
	defer mqttClient.Disconnect(250)

	coreModule, err := core.Build(cfg, db, amqpConn, mqttClient, logger)
	if err != nil {
		log.Fatalf("core module: %v", err)
	}
	connected.Store(coreModule)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := coreModule.Start(ctx); err != nil {
		log.Fatalf("start core module: %v", err)
	}
	defer coreModule.Shutdown()

	r := gin.Default()

	health := config.NewHealthChecker(db, amqpConn, mqttClient)
	health.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	coreModule.RegisterRoutes(&r.RouterGroup)

	srv := &http.Server{Addr: ":" + cfg.HTTPPort, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on :%s", cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server: %v", err)
	}
}
