package models

import "time"

// VideoSnapshot is one hourly observation of a video's cumulative
// counters plus the deltas since the previous observation. Snapshots are
// append-only and die with their video (ON DELETE CASCADE).
type VideoSnapshot struct {
	ID                 int64     `db:"id"`
	VideoID            int64     `db:"video_id"`
	ViewsCount         int64     `db:"views_count"`
	LikesCount         int64     `db:"likes_count"`
	CommentsCount      int64     `db:"comments_count"`
	ReportsCount       int64     `db:"reports_count"`
	DeltaViewsCount    int64     `db:"delta_views_count"`
	DeltaLikesCount    int64     `db:"delta_likes_count"`
	DeltaCommentsCount int64     `db:"delta_comments_count"`
	DeltaReportsCount  int64     `db:"delta_reports_count"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// ComputeDeltas fills the delta columns from the previous snapshot of the
// same video. With no previous snapshot the deltas equal the counters
// themselves.
func (s *VideoSnapshot) ComputeDeltas(prev *VideoSnapshot) {
	if prev == nil {
		s.DeltaViewsCount = s.ViewsCount
		s.DeltaLikesCount = s.LikesCount
		s.DeltaCommentsCount = s.CommentsCount
		s.DeltaReportsCount = s.ReportsCount
		return
	}
	s.DeltaViewsCount = s.ViewsCount - prev.ViewsCount
	s.DeltaLikesCount = s.LikesCount - prev.LikesCount
	s.DeltaCommentsCount = s.CommentsCount - prev.CommentsCount
	s.DeltaReportsCount = s.ReportsCount - prev.ReportsCount
}
