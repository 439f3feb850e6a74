//go:build integration
// +build integration

package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vidpulse/video-analytics-bot/internal/config"
)

func setupTestRabbitMQ(t *testing.T) *config.RabbitMQ {
	t.Helper()
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx,
		"rabbitmq:3.13-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start rabbitmq container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)

	return &config.RabbitMQ{
		Host:       host,
		Port:       port.Int(),
		User:       "guest",
		Password:   "guest",
		Exchange:   "test.questions",
		Queue:      "test.questions.audit",
		RoutingKey: "question.answered",
		Enabled:    true,
	}
}

func testEvent() *QuestionEvent {
	return &QuestionEvent{
		ID:         uuid.New(),
		Question:   "Сколько всего видео?",
		SQL:        "SELECT COUNT(*) FROM videos",
		Outcome:    "succeeded",
		Attempts:   1,
		DurationMs: 120,
		AskedAt:    time.Now().UTC(),
	}
}

func TestAuditPublisherPublishConfirmed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := setupTestRabbitMQ(t)

	p, err := NewAuditPublisher(cfg)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Publish(context.Background(), testEvent()))
}

func TestAuditPublisherHealth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := setupTestRabbitMQ(t)

	p, err := NewAuditPublisher(cfg)
	require.NoError(t, err)

	assert.True(t, p.IsHealthy())
	require.NoError(t, p.Close())
	assert.False(t, p.IsHealthy())
}

func TestAuditPublisherPublishAfterConnectionLoss(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cfg := setupTestRabbitMQ(t)

	p, err := NewAuditPublisher(cfg)
	require.NoError(t, err)
	defer p.Close()

	// Dropping the connection must turn publishing into an error, not
	// a panic: answering carries on without the audit trail.
	require.NoError(t, p.conn.Close())
	assert.Error(t, p.Publish(context.Background(), testEvent()))
	assert.False(t, p.IsHealthy())
}
