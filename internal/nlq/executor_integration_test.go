//go:build integration
// +build integration

package nlq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidpulse/video-analytics-bot/internal/db/models"
	"github.com/vidpulse/video-analytics-bot/internal/db/repository"
	"github.com/vidpulse/video-analytics-bot/internal/db/testutil"
	"github.com/vidpulse/video-analytics-bot/internal/schema"
)

func seedVideos(t *testing.T, td *testutil.TestDatabase) {
	t.Helper()
	ctx := context.Background()
	videos := repository.NewVideoRepository(td.Pool)
	snapshots := repository.NewSnapshotRepository(td.Pool)

	for i, views := range []int64{100, 200, 300} {
		v := models.NewVideo(int64(i+1), "creator1", nil)
		v.ViewsCount = views
		v.LikesCount = views / 10
		require.NoError(t, videos.UpsertVideo(ctx, v))

		snap := &models.VideoSnapshot{
			VideoID:    v.ID,
			ViewsCount: views,
			CreatedAt:  time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC),
			UpdatedAt:  time.Date(2025, 11, 28, 12, 0, 0, 0, time.UTC),
		}
		snap.ComputeDeltas(nil)
		require.NoError(t, snapshots.InsertSnapshot(ctx, snap))
	}
}

func TestExecutorRunsAggregates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)
	seedVideos(t, td)

	ex := NewExecutor(td.Pool, 5*time.Second, 0)
	ctx := context.Background()

	rows, err := ex.Execute(ctx, "SELECT COUNT(*) FROM videos")
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)
	assert.Equal(t, int64(3), rows.Values[0][0])
	assert.Equal(t, []string{"count"}, rows.Columns)

	rows, err = ex.Execute(ctx, "SELECT SUM(views_count) FROM videos")
	require.NoError(t, err)
	assert.Equal(t, int64(600), rows.Values[0][0])

	// Same read against unchanged data yields identical rows.
	again, err := ex.Execute(ctx, "SELECT SUM(views_count) FROM videos")
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

type fixedTranslator struct{ sql string }

func (f fixedTranslator) Translate(context.Context, Request) (string, error) {
	return f.sql, nil
}

func TestPipelineCountsVideos(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)
	seedVideos(t, td)

	ex := NewExecutor(td.Pool, 5*time.Second, 0)
	coordinator := NewCoordinator(
		fixedTranslator{sql: "SELECT COUNT(*) FROM videos"},
		NewValidator(schema.New()),
		ex,
		3,
	)

	outcome, err := coordinator.Run(context.Background(), "Сколько всего видео есть в системе?")
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, outcome.State)
	assert.Equal(t, "3", NewComposer(20).Compose(outcome.Rows))
}

func TestExecutorRejectsWrites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)
	seedVideos(t, td)

	ex := NewExecutor(td.Pool, 5*time.Second, 0)
	ctx := context.Background()

	// The read-only transaction is the backstop behind validation.
	_, err := ex.Execute(ctx, "DELETE FROM videos")
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, ExecConstraintOrType, execErr.Kind)

	rows, err := ex.Execute(ctx, "SELECT COUNT(*) FROM videos")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows.Values[0][0])
}

func TestExecutorStatementTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	ex := NewExecutor(td.Pool, 100*time.Millisecond, 0)

	_, err := ex.Execute(context.Background(), "SELECT pg_sleep(5)")
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, ExecTimeout, execErr.Kind)
}

func TestExecutorServerErrorClassification(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	ex := NewExecutor(td.Pool, 5*time.Second, 0)

	_, err := ex.Execute(context.Background(), "SELECT missing_column FROM videos")
	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, ExecConstraintOrType, execErr.Kind)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}
