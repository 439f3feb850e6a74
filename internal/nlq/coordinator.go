package nlq

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vidpulse/video-analytics-bot/internal/metrics"
	"github.com/vidpulse/video-analytics-bot/pkg/logger"
)

// State names the pipeline stage a question is in. Exposed on Outcome
// so callers can see where an exhausted question spent its last attempt.
type State string

const (
	StateTranslating State = "translating"
	StateValidating  State = "validating"
	StateExecuting   State = "executing"
	StateSucceeded   State = "succeeded"
	StateExhausted   State = "exhausted"
)

// Outcome is the result of running a question through the pipeline.
type Outcome struct {
	Rows     *Rows
	SQL      string
	Attempts int
	State    State
}

// Coordinator drives a question through translate -> validate -> execute
// with a bounded retry budget. Each failed attempt feeds its error back
// into the next translation request so the completion service can
// correct itself. Connection failures are the exception: they say
// nothing about query quality, so they burn an attempt but are not fed
// back.
// QueryExecutor runs validated SQL. Satisfied by Executor.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string) (*Rows, error)
}

type Coordinator struct {
	translator  Translator
	validator   *Validator
	executor    QueryExecutor
	maxAttempts int
}

func NewCoordinator(translator Translator, validator *Validator, executor QueryExecutor, maxAttempts int) *Coordinator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Coordinator{
		translator:  translator,
		validator:   validator,
		executor:    executor,
		maxAttempts: maxAttempts,
	}
}

// Run processes one question. On success it returns the rows of the
// first attempt that executed cleanly. When the budget runs out it
// returns an ExhaustedError carrying the per-attempt diagnostics log;
// that log is for operators, never for end users.
func (c *Coordinator) Run(ctx context.Context, question string) (*Outcome, error) {
	outcome := &Outcome{State: StateTranslating}
	var feedback []PriorError
	var attemptLog []string

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		outcome.Attempts = attempt
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		outcome.State = StateTranslating
		sql, err := c.translator.Translate(ctx, Request{Question: question, PriorErrors: feedback})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return outcome, err
			}
			logger.Log.Warn("translation attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			attemptLog = append(attemptLog, fmt.Sprintf("attempt %d: translation: %v", attempt, err))
			metrics.IncrementAttemptFailure("translation")
			continue
		}

		outcome.State = StateValidating
		sanitized, err := c.validator.Validate(sql)
		if err != nil {
			var rejected *RejectedError
			if errors.As(err, &rejected) {
				logger.Log.Warn("query rejected",
					zap.Int("attempt", attempt),
					zap.String("sql", sql),
					zap.String("reason", rejected.Reason))
				feedback = append(feedback, PriorError{SQL: sql, Reason: rejected.Reason})
				attemptLog = append(attemptLog, fmt.Sprintf("attempt %d: rejected: %s", attempt, rejected.Reason))
				metrics.IncrementAttemptFailure("rejected")
				continue
			}
			return outcome, err
		}
		outcome.SQL = sanitized

		outcome.State = StateExecuting
		rows, err := c.executor.Execute(ctx, sanitized)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return outcome, err
			}
			var execErr *ExecError
			if errors.As(err, &execErr) {
				logger.Log.Warn("execution attempt failed",
					zap.Int("attempt", attempt),
					zap.String("sql", sanitized),
					zap.String("kind", string(execErr.Kind)),
					zap.Error(execErr.Err))
				attemptLog = append(attemptLog, fmt.Sprintf("attempt %d: execution (%s): %v", attempt, execErr.Kind, execErr.Err))
				metrics.IncrementAttemptFailure(string(execErr.Kind))
				// Timeout and server refusals are query-quality signals;
				// a dead connection is not.
				if execErr.Kind != ExecConnection {
					feedback = append(feedback, PriorError{SQL: sanitized, Reason: execErr.Error()})
				}
				continue
			}
			return outcome, err
		}

		outcome.State = StateSucceeded
		outcome.Rows = rows
		return outcome, nil
	}

	outcome.State = StateExhausted
	return outcome, &ExhaustedError{Attempts: c.maxAttempts, Log: attemptLog}
}
