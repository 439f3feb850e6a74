// Package service wires the question pipeline together and owns the
// user-facing answer contract.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vidpulse/video-analytics-bot/internal/metrics"
	"github.com/vidpulse/video-analytics-bot/internal/nlq"
	"github.com/vidpulse/video-analytics-bot/pkg/logger"
)

// EventPublisher publishes question audit events. Satisfied by
// AuditPublisher; nil-able via the noopPublisher.
type EventPublisher interface {
	Publish(ctx context.Context, event *QuestionEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, *QuestionEvent) error { return nil }

// Answer is the outcome of one question as the transports see it: text
// to show the user plus diagnostics for logging and audit.
type Answer struct {
	Text     string
	SQL      string
	Attempts int
	Answered bool
}

// AnalyticsService answers natural-language questions about video
// statistics.
type AnalyticsService struct {
	coordinator *nlq.Coordinator
	composer    *nlq.Composer
	publisher   EventPublisher
}

func NewAnalyticsService(coordinator *nlq.Coordinator, composer *nlq.Composer, publisher EventPublisher) *AnalyticsService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &AnalyticsService{
		coordinator: coordinator,
		composer:    composer,
		publisher:   publisher,
	}
}

// AnswerQuestion runs one question through the pipeline and always
// returns presentable text: a real answer on success, the generic
// failure message when the retry budget runs out. Only context
// cancellation and non-pipeline faults surface as errors.
func (s *AnalyticsService) AnswerQuestion(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return &Answer{Text: nlq.FailureMessage}, nil
	}

	start := time.Now()
	outcome, err := s.coordinator.Run(ctx, question)
	elapsed := time.Since(start)

	answer := &Answer{Attempts: outcome.Attempts, SQL: outcome.SQL}
	switch {
	case err == nil:
		answer.Text = s.composer.Compose(outcome.Rows)
		answer.Answered = true
	case errors.Is(err, nlq.ErrExhausted):
		// Terminal pipeline failure: the user gets the generic message,
		// the log gets the attempt diagnostics. The generated SQL stays
		// internal too — a validated query that failed execution must
		// not ride along with the failure text.
		logger.Log.Error("question exhausted retry budget",
			zap.String("question", question),
			zap.String("sql", answer.SQL),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(err))
		answer.SQL = ""
		answer.Text = nlq.FailureMessage
	default:
		metrics.ObserveQuestion("error", outcome.Attempts, elapsed)
		return nil, err
	}

	metrics.ObserveQuestion(string(outcome.State), outcome.Attempts, elapsed)
	s.publishEvent(ctx, question, answer, outcome, elapsed)

	logger.Log.Info("question processed",
		zap.String("state", string(outcome.State)),
		zap.Int("attempts", outcome.Attempts),
		zap.Duration("elapsed", elapsed))
	return answer, nil
}

func (s *AnalyticsService) publishEvent(ctx context.Context, question string, answer *Answer, outcome *nlq.Outcome, elapsed time.Duration) {
	event := &QuestionEvent{
		ID:         uuid.New(),
		Question:   question,
		SQL:        answer.SQL,
		Outcome:    string(outcome.State),
		Attempts:   outcome.Attempts,
		DurationMs: elapsed.Milliseconds(),
		AskedAt:    time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Log.Warn("failed to publish question event",
			zap.String("eventId", event.ID.String()),
			zap.Error(err))
	}
}
