//go:build integration
// +build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidpulse/video-analytics-bot/internal/db/models"
	"github.com/vidpulse/video-analytics-bot/internal/db/testutil"
)

func TestVideoRepositoryUpsert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := NewVideoRepository(td.Pool)
	ctx := context.Background()

	published := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	video := models.NewVideo(42, "creator1", &published)
	video.ViewsCount = 1000
	video.LikesCount = 50

	require.NoError(t, repo.UpsertVideo(ctx, video))

	got, err := repo.GetVideoByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "creator1", got.CreatorID)
	assert.Equal(t, int64(1000), got.ViewsCount)

	// Upserting again updates counters, not identity.
	video.ViewsCount = 1500
	video.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.UpsertVideo(ctx, video))

	got, err = repo.GetVideoByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), got.ViewsCount)

	count, err := repo.CountVideos(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestVideoRepositoryListByCreator(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := NewVideoRepository(td.Pool)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		published := time.Date(2025, 11, int(i), 0, 0, 0, 0, time.UTC)
		creator := "creator1"
		if i == 3 {
			creator = "creator2"
		}
		require.NoError(t, repo.UpsertVideo(ctx, models.NewVideo(i, creator, &published)))
	}

	videos, err := repo.ListVideosByCreator(ctx, "creator1", 10)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	// Newest first.
	assert.Equal(t, int64(2), videos[0].ID)
	assert.Equal(t, int64(1), videos[1].ID)
}

func TestSnapshotRepositoryInsertAndDeltas(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	videos := NewVideoRepository(td.Pool)
	snapshots := NewSnapshotRepository(td.Pool)
	ctx := context.Background()

	require.NoError(t, videos.UpsertVideo(ctx, models.NewVideo(1, "creator1", nil)))

	first := &models.VideoSnapshot{
		VideoID:    1,
		ViewsCount: 100,
		LikesCount: 10,
		CreatedAt:  time.Date(2025, 11, 28, 10, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2025, 11, 28, 10, 0, 0, 0, time.UTC),
	}
	first.ComputeDeltas(nil)
	require.NoError(t, snapshots.InsertSnapshot(ctx, first))
	assert.Equal(t, int64(100), first.DeltaViewsCount)

	latest, err := snapshots.GetLatestSnapshot(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, latest)

	second := &models.VideoSnapshot{
		VideoID:    1,
		ViewsCount: 140,
		LikesCount: 12,
		CreatedAt:  time.Date(2025, 11, 28, 11, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2025, 11, 28, 11, 0, 0, 0, time.UTC),
	}
	second.ComputeDeltas(latest)
	require.NoError(t, snapshots.InsertSnapshot(ctx, second))
	assert.Equal(t, int64(40), second.DeltaViewsCount)
	assert.Equal(t, int64(2), second.DeltaLikesCount)

	all, err := snapshots.ListSnapshots(ctx, 1)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].CreatedAt.Before(all[1].CreatedAt))
}

func TestSnapshotRepositoryDuplicateIsIgnored(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	videos := NewVideoRepository(td.Pool)
	snapshots := NewSnapshotRepository(td.Pool)
	ctx := context.Background()

	require.NoError(t, videos.UpsertVideo(ctx, models.NewVideo(1, "creator1", nil)))

	at := time.Date(2025, 11, 28, 10, 0, 0, 0, time.UTC)
	snap := &models.VideoSnapshot{VideoID: 1, ViewsCount: 100, CreatedAt: at, UpdatedAt: at}
	snap.ComputeDeltas(nil)

	require.NoError(t, snapshots.InsertSnapshot(ctx, snap))
	require.NoError(t, snapshots.InsertSnapshot(ctx, snap))

	all, err := snapshots.ListSnapshots(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSnapshotsCascadeWithVideo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	videos := NewVideoRepository(td.Pool)
	snapshots := NewSnapshotRepository(td.Pool)
	ctx := context.Background()

	require.NoError(t, videos.UpsertVideo(ctx, models.NewVideo(1, "creator1", nil)))

	at := time.Date(2025, 11, 28, 10, 0, 0, 0, time.UTC)
	snap := &models.VideoSnapshot{VideoID: 1, ViewsCount: 100, CreatedAt: at, UpdatedAt: at}
	snap.ComputeDeltas(nil)
	require.NoError(t, snapshots.InsertSnapshot(ctx, snap))

	_, err := td.Pool.Exec(ctx, "DELETE FROM videos WHERE id = 1")
	require.NoError(t, err)

	all, err := snapshots.ListSnapshots(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetLatestSnapshotNoRows(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	snapshots := NewSnapshotRepository(td.Pool)

	latest, err := snapshots.GetLatestSnapshot(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, latest)
}
