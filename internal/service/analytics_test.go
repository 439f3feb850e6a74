package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidpulse/video-analytics-bot/internal/nlq"
	"github.com/vidpulse/video-analytics-bot/internal/schema"
)

type staticTranslator struct {
	sql string
}

func (s staticTranslator) Translate(context.Context, nlq.Request) (string, error) {
	return s.sql, nil
}

type staticExecutor struct {
	rows *nlq.Rows
}

func (s staticExecutor) Execute(context.Context, string) (*nlq.Rows, error) {
	return s.rows, nil
}

type failingExecutor struct{}

func (failingExecutor) Execute(context.Context, string) (*nlq.Rows, error) {
	return nil, &nlq.ExecError{Kind: nlq.ExecConstraintOrType, Err: errors.New("operator does not exist")}
}

type capturingPublisher struct {
	events []*QuestionEvent
}

func (c *capturingPublisher) Publish(_ context.Context, e *QuestionEvent) error {
	c.events = append(c.events, e)
	return nil
}

func newService(translator nlq.Translator, executor nlq.QueryExecutor, publisher EventPublisher) *AnalyticsService {
	desc := schema.New()
	coordinator := nlq.NewCoordinator(translator, nlq.NewValidator(desc), executor, 3)
	return NewAnalyticsService(coordinator, nlq.NewComposer(20), publisher)
}

func TestAnswerQuestionSuccess(t *testing.T) {
	svc := newService(
		staticTranslator{sql: "SELECT COUNT(*) FROM videos"},
		staticExecutor{rows: &nlq.Rows{Columns: []string{"count"}, Values: [][]any{{int64(9)}}}},
		nil,
	)

	answer, err := svc.AnswerQuestion(context.Background(), "Сколько всего видео?")
	require.NoError(t, err)
	assert.Equal(t, "9", answer.Text)
	assert.True(t, answer.Answered)
	assert.Equal(t, 1, answer.Attempts)
}

func TestAnswerQuestionExhaustedReturnsGenericText(t *testing.T) {
	svc := newService(staticTranslator{sql: "DROP TABLE videos"}, staticExecutor{}, nil)

	answer, err := svc.AnswerQuestion(context.Background(), "вопрос")
	require.NoError(t, err)
	assert.Equal(t, nlq.FailureMessage, answer.Text)
	assert.False(t, answer.Answered)
	assert.Equal(t, 3, answer.Attempts)
}

func TestAnswerQuestionExhaustedHidesSQL(t *testing.T) {
	// The statement is valid and reaches the executor, which fails every
	// attempt. The exhausted answer must not carry the query text.
	publisher := &capturingPublisher{}
	svc := newService(staticTranslator{sql: "SELECT COUNT(*) FROM videos"}, failingExecutor{}, publisher)

	answer, err := svc.AnswerQuestion(context.Background(), "вопрос")
	require.NoError(t, err)
	assert.Equal(t, nlq.FailureMessage, answer.Text)
	assert.False(t, answer.Answered)
	assert.Equal(t, "", answer.SQL)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, "", publisher.events[0].SQL)
}

func TestAnswerQuestionEmptyInput(t *testing.T) {
	svc := newService(staticTranslator{}, staticExecutor{}, nil)

	answer, err := svc.AnswerQuestion(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, nlq.FailureMessage, answer.Text)
	assert.False(t, answer.Answered)
}

func TestAnswerQuestionPublishesEvent(t *testing.T) {
	publisher := &capturingPublisher{}
	svc := newService(
		staticTranslator{sql: "SELECT COUNT(*) FROM videos"},
		staticExecutor{rows: &nlq.Rows{Columns: []string{"count"}, Values: [][]any{{int64(1)}}}},
		publisher,
	)

	_, err := svc.AnswerQuestion(context.Background(), "Сколько всего видео?")
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	event := publisher.events[0]
	assert.Equal(t, "Сколько всего видео?", event.Question)
	assert.Equal(t, "SELECT COUNT(*) FROM videos", event.SQL)
	assert.Equal(t, string(nlq.StateSucceeded), event.Outcome)
	assert.NotEqual(t, "", event.ID.String())
}
