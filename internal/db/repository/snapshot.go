package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidpulse/video-analytics-bot/internal/db"
	"github.com/vidpulse/video-analytics-bot/internal/db/models"
)

// SnapshotRepository defines operations for hourly video snapshots.
type SnapshotRepository interface {
	// InsertSnapshot appends one snapshot. Snapshots are never updated.
	InsertSnapshot(ctx context.Context, snapshot *models.VideoSnapshot) error

	// GetLatestSnapshot returns the most recent snapshot for a video,
	// or nil when the video has no snapshots yet.
	GetLatestSnapshot(ctx context.Context, videoID int64) (*models.VideoSnapshot, error)

	// ListSnapshots returns all snapshots for a video ordered by
	// observation time ascending.
	ListSnapshots(ctx context.Context, videoID int64) ([]*models.VideoSnapshot, error)
}

type snapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) InsertSnapshot(ctx context.Context, snapshot *models.VideoSnapshot) error {
	query := `
		INSERT INTO video_snapshots (video_id, views_count, likes_count, comments_count, reports_count,
			delta_views_count, delta_likes_count, delta_comments_count, delta_reports_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (video_id, created_at) DO NOTHING
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		snapshot.VideoID,
		snapshot.ViewsCount,
		snapshot.LikesCount,
		snapshot.CommentsCount,
		snapshot.ReportsCount,
		snapshot.DeltaViewsCount,
		snapshot.DeltaLikesCount,
		snapshot.DeltaCommentsCount,
		snapshot.DeltaReportsCount,
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
	).Scan(&snapshot.ID)

	// DO NOTHING yields no row for an already-loaded snapshot; that is
	// not an error for an idempotent loader.
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return db.WrapError(err, "insert snapshot")
	}

	return nil
}

func (r *snapshotRepository) GetLatestSnapshot(ctx context.Context, videoID int64) (*models.VideoSnapshot, error) {
	query := `
		SELECT id, video_id, views_count, likes_count, comments_count, reports_count,
			delta_views_count, delta_likes_count, delta_comments_count, delta_reports_count, created_at, updated_at
		FROM video_snapshots
		WHERE video_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	snapshot := &models.VideoSnapshot{}
	err := r.pool.QueryRow(ctx, query, videoID).Scan(
		&snapshot.ID,
		&snapshot.VideoID,
		&snapshot.ViewsCount,
		&snapshot.LikesCount,
		&snapshot.CommentsCount,
		&snapshot.ReportsCount,
		&snapshot.DeltaViewsCount,
		&snapshot.DeltaLikesCount,
		&snapshot.DeltaCommentsCount,
		&snapshot.DeltaReportsCount,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, db.WrapError(err, "get latest snapshot")
	}

	return snapshot, nil
}

func (r *snapshotRepository) ListSnapshots(ctx context.Context, videoID int64) ([]*models.VideoSnapshot, error) {
	query := `
		SELECT id, video_id, views_count, likes_count, comments_count, reports_count,
			delta_views_count, delta_likes_count, delta_comments_count, delta_reports_count, created_at, updated_at
		FROM video_snapshots
		WHERE video_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, db.WrapError(err, "list snapshots")
	}
	defer rows.Close()

	var snapshots []*models.VideoSnapshot
	for rows.Next() {
		snapshot := &models.VideoSnapshot{}
		err := rows.Scan(
			&snapshot.ID,
			&snapshot.VideoID,
			&snapshot.ViewsCount,
			&snapshot.LikesCount,
			&snapshot.CommentsCount,
			&snapshot.ReportsCount,
			&snapshot.DeltaViewsCount,
			&snapshot.DeltaLikesCount,
			&snapshot.DeltaCommentsCount,
			&snapshot.DeltaReportsCount,
			&snapshot.CreatedAt,
			&snapshot.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	return snapshots, nil
}
