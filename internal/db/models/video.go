package models

import "time"

// Video holds the lifetime statistics for one content item. Rows are
// written by the bulk loader only; the question pipeline reads them.
type Video struct {
	ID             int64      `db:"id"`
	CreatorID      string     `db:"creator_id"`
	VideoCreatedAt *time.Time `db:"video_created_at"`
	ViewsCount     int64      `db:"views_count"`
	LikesCount     int64      `db:"likes_count"`
	CommentsCount  int64      `db:"comments_count"`
	ReportsCount   int64      `db:"reports_count"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// NewVideo creates a new Video with the given identity and counters.
func NewVideo(id int64, creatorID string, publishedAt *time.Time) *Video {
	now := time.Now().UTC()
	return &Video{
		ID:             id,
		CreatorID:      creatorID,
		VideoCreatedAt: publishedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
