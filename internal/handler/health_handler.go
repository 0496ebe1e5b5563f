package handler

import (
	"context"
	"net/http"
	"time"

	"pharmacy/internal/messaging"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database and the optional Redis and
// RabbitMQ connections. Redis and RabbitMQ may be nil when not configured.
type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
	rmq   *messaging.RabbitMQ
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client, rmq *messaging.RabbitMQ) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient, rmq: rmq}
}

func (h *HealthHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/health", h.Health)
}

// Health
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	status := http.StatusOK

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if h.redis == nil {
		checks["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		// Dashboard falls back to direct queries.
		checks["redis"] = "degraded"
	} else {
		checks["redis"] = "ok"
	}

	if h.rmq == nil {
		checks["rabbitmq"] = "disabled"
	} else if !h.rmq.Healthy() {
		checks["rabbitmq"] = "degraded"
	} else {
		checks["rabbitmq"] = "ok"
	}

	label := "OK"
	if status != http.StatusOK {
		label = "UNAVAILABLE"
	}
	c.JSON(status, gin.H{"status": label, "checks": checks})
}
