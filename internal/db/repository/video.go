package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidpulse/video-analytics-bot/internal/db"
	"github.com/vidpulse/video-analytics-bot/internal/db/models"
)

// VideoRepository defines operations for managing videos. The question
// pipeline never goes through it — only the bulk loader and tests write.
type VideoRepository interface {
	// UpsertVideo creates a new video or updates the counters of an existing one.
	UpsertVideo(ctx context.Context, video *models.Video) error

	// GetVideoByID retrieves a single video by ID.
	GetVideoByID(ctx context.Context, videoID int64) (*models.Video, error)

	// ListVideosByCreator retrieves videos for one creator, newest first.
	ListVideosByCreator(ctx context.Context, creatorID string, limit int) ([]*models.Video, error)

	// CountVideos returns the total number of videos.
	CountVideos(ctx context.Context) (int64, error)
}

type videoRepository struct {
	pool *pgxpool.Pool
}

// NewVideoRepository creates a new VideoRepository.
func NewVideoRepository(pool *pgxpool.Pool) VideoRepository {
	return &videoRepository{pool: pool}
}

func (r *videoRepository) UpsertVideo(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (id, creator_id, video_created_at, views_count, likes_count, comments_count, reports_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET creator_id = EXCLUDED.creator_id,
		    video_created_at = EXCLUDED.video_created_at,
		    views_count = EXCLUDED.views_count,
		    likes_count = EXCLUDED.likes_count,
		    comments_count = EXCLUDED.comments_count,
		    reports_count = EXCLUDED.reports_count,
		    updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		video.ID,
		video.CreatorID,
		video.VideoCreatedAt,
		video.ViewsCount,
		video.LikesCount,
		video.CommentsCount,
		video.ReportsCount,
		video.CreatedAt,
		video.UpdatedAt,
	).Scan(
		&video.CreatedAt,
		&video.UpdatedAt,
	)

	if err != nil {
		return db.WrapError(err, "upsert video")
	}

	return nil
}

func (r *videoRepository) GetVideoByID(ctx context.Context, videoID int64) (*models.Video, error) {
	query := `
		SELECT id, creator_id, video_created_at, views_count, likes_count, comments_count, reports_count, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	video := &models.Video{}
	err := r.pool.QueryRow(ctx, query, videoID).Scan(
		&video.ID,
		&video.CreatorID,
		&video.VideoCreatedAt,
		&video.ViewsCount,
		&video.LikesCount,
		&video.CommentsCount,
		&video.ReportsCount,
		&video.CreatedAt,
		&video.UpdatedAt,
	)

	if err != nil {
		return nil, db.WrapError(err, "get video by id")
	}

	return video, nil
}

func (r *videoRepository) ListVideosByCreator(ctx context.Context, creatorID string, limit int) ([]*models.Video, error) {
	query := `
		SELECT id, creator_id, video_created_at, views_count, likes_count, comments_count, reports_count, created_at, updated_at
		FROM videos
		WHERE creator_id = $1
		ORDER BY video_created_at DESC NULLS LAST
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, creatorID, limit)
	if err != nil {
		return nil, db.WrapError(err, "list videos by creator")
	}
	defer rows.Close()

	return scanVideos(rows)
}

func (r *videoRepository) CountVideos(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM videos`).Scan(&count)
	if err != nil {
		return 0, db.WrapError(err, "count videos")
	}
	return count, nil
}

// Helper function to scan multiple videos from query results
func scanVideos(rows pgx.Rows) ([]*models.Video, error) {
	var videos []*models.Video

	for rows.Next() {
		video := &models.Video{}
		err := rows.Scan(
			&video.ID,
			&video.CreatorID,
			&video.VideoCreatedAt,
			&video.ViewsCount,
			&video.LikesCount,
			&video.CommentsCount,
			&video.ReportsCount,
			&video.CreatedAt,
			&video.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}

	return videos, nil
}
