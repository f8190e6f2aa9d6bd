package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// OperationEvent mirrors the payload the notifier posts to webhook endpoints.
type OperationEvent struct {
	Kind        string    `json:"kind" binding:"required"`
	OperationID int64     `json:"operation_id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	CashDeskID  int64     `json:"cash_desk_id"`
	Date        time.Time `json:"date"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type ReceivedEvent struct {
	ID         string         `json:"id"`
	Event      OperationEvent `json:"event"`
	ReceivedAt time.Time      `json:"received_at"`
}

type HealthResponse struct {
	Status     string    `json:"status"`
	SinkID     string    `json:"sink_id"`
	Timestamp  time.Time `json:"timestamp"`
	AcceptRate float64   `json:"accept_rate"`
	Received   int       `json:"received"`
}

// MockSink simulates an unreliable downstream webhook consumer. A tunable
// accept rate and artificial delay let failover and retry paths be exercised
// locally.
type MockSink struct {
	acceptRate float64
	minDelay   time.Duration
	maxDelay   time.Duration
	sinkID     string
	rng        *rand.Rand

	mu     sync.RWMutex
	events []ReceivedEvent
}

func NewMockSink(acceptRate float64, minDelay, maxDelay time.Duration) *MockSink {
	return &MockSink{
		acceptRate: acceptRate,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		sinkID:     "MOCK_SINK_" + uuid.New().String()[:8],
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *MockSink) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	if delta <= 0 {
		return m.minDelay
	}
	return m.minDelay + time.Duration(m.rng.Int63n(int64(delta)))
}

func (m *MockSink) shouldAccept() bool {
	return m.rng.Float64() < m.acceptRate
}

func (m *MockSink) record(event OperationEvent) ReceivedEvent {
	received := ReceivedEvent{
		ID:         uuid.New().String(),
		Event:      event,
		ReceivedAt: time.Now(),
	}

	m.mu.Lock()
	m.events = append(m.events, received)
	if len(m.events) > 10_000 {
		m.events = m.events[len(m.events)-10_000:]
	}
	m.mu.Unlock()

	return received
}

func (m *MockSink) list(limit int) []ReceivedEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	out := make([]ReceivedEvent, limit)
	copy(out, m.events[len(m.events)-limit:])
	return out
}

func (m *MockSink) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

type Handler struct {
	sink *MockSink
}

func NewHandler(sink *MockSink) *Handler {
	return &Handler{sink: sink}
}

// Receive handles incoming operation-event webhooks.
func (h *Handler) Receive(c *gin.Context) {
	var event OperationEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	time.Sleep(h.sink.randomDelay())

	if !h.sink.shouldAccept() {
		log.Warn().
			Str("kind", event.Kind).
			Int64("operation_id", event.OperationID).
			Msg("Webhook rejected (simulated failure)")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "simulated downstream failure",
		})
		return
	}

	received := h.sink.record(event)

	log.Info().
		Str("id", received.ID).
		Str("kind", event.Kind).
		Int64("operation_id", event.OperationID).
		Int64("cash_desk_id", event.CashDeskID).
		Msg("Webhook received")

	c.JSON(http.StatusOK, gin.H{
		"id":     received.ID,
		"status": "received",
	})
}

// ListEvents returns the most recently received events.
func (h *Handler) ListEvents(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	c.JSON(http.StatusOK, gin.H{
		"items": h.sink.list(limit),
		"total": h.sink.count(),
	})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "healthy",
		SinkID:     h.sink.sinkID,
		Timestamp:  time.Now(),
		AcceptRate: h.sink.acceptRate,
		Received:   h.sink.count(),
	})
}

// UpdateConfig allows changing the accept rate at runtime.
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		AcceptRate *float64 `json:"accept_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.AcceptRate != nil {
		if *config.AcceptRate >= 0 && *config.AcceptRate <= 1.0 {
			h.sink.acceptRate = *config.AcceptRate
			log.Info().Float64("rate", *config.AcceptRate).Msg("Updated accept rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      "Configuration updated",
		"accept_rate": h.sink.acceptRate,
	})
}

func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/webhooks/ledger", handler.Receive)
		v1.GET("/webhooks/events", handler.ListEvents)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	acceptRate := getEnvFloat("ACCEPT_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 10*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 200*time.Millisecond)

	log.Info().
		Str("port", port).
		Float64("accept_rate", acceptRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Webhook Sink")

	sink := NewMockSink(acceptRate, minDelay, maxDelay)
	handler := NewHandler(sink)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
