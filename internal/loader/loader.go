// Package loader imports videos and their snapshot history from JSON
// dumps into the analytics store.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vidpulse/video-analytics-bot/internal/db/models"
	"github.com/vidpulse/video-analytics-bot/internal/db/repository"
	"github.com/vidpulse/video-analytics-bot/pkg/logger"
)

// videoRecord mirrors one video entry of the dump. Snapshots arrive
// embedded; delta fields are optional and recomputed when absent.
type videoRecord struct {
	ID             int64            `json:"id"`
	CreatorID      string           `json:"creator_id"`
	VideoCreatedAt *flexTime        `json:"video_created_at"`
	ViewsCount     int64            `json:"views_count"`
	LikesCount     int64            `json:"likes_count"`
	CommentsCount  int64            `json:"comments_count"`
	ReportsCount   int64            `json:"reports_count"`
	Snapshots      []snapshotRecord `json:"snapshots"`
}

type snapshotRecord struct {
	ViewsCount         int64    `json:"views_count"`
	LikesCount         int64    `json:"likes_count"`
	CommentsCount      int64    `json:"comments_count"`
	ReportsCount       int64    `json:"reports_count"`
	DeltaViewsCount    *int64   `json:"delta_views_count"`
	DeltaLikesCount    *int64   `json:"delta_likes_count"`
	DeltaCommentsCount *int64   `json:"delta_comments_count"`
	DeltaReportsCount  *int64   `json:"delta_reports_count"`
	CreatedAt          flexTime `json:"created_at"`
}

// envelope accepts both dump shapes: {"videos": [...]} and a bare array.
type envelope struct {
	Videos []videoRecord `json:"videos"`
	Data   []videoRecord `json:"data"`
}

// Stats summarizes one load run.
type Stats struct {
	Videos    int
	Snapshots int
	Skipped   int
}

// Loader writes dump records through the repositories, recomputing
// deltas where the dump omits them.
type Loader struct {
	videos    repository.VideoRepository
	snapshots repository.SnapshotRepository
}

func New(videos repository.VideoRepository, snapshots repository.SnapshotRepository) *Loader {
	return &Loader{videos: videos, snapshots: snapshots}
}

// LoadFile imports one dump file. Reruns are idempotent: videos are
// upserted, duplicate snapshots are ignored.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()
	return l.Load(ctx, f)
}

// Load imports a dump from r.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Stats, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dump: %w", err)
	}

	records, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if rec.ID == 0 {
			logger.Log.Warn("skipping video without id", zap.String("creatorId", rec.CreatorID))
			stats.Skipped++
			continue
		}
		if err := l.loadVideo(ctx, rec, stats); err != nil {
			return stats, fmt.Errorf("load video %d: %w", rec.ID, err)
		}
	}

	logger.Log.Info("dump loaded",
		zap.Int("videos", stats.Videos),
		zap.Int("snapshots", stats.Snapshots),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

func (l *Loader) loadVideo(ctx context.Context, rec videoRecord, stats *Stats) error {
	var publishedAt *time.Time
	if rec.VideoCreatedAt != nil {
		t := rec.VideoCreatedAt.Time
		publishedAt = &t
	}
	video := models.NewVideo(rec.ID, rec.CreatorID, publishedAt)
	video.ViewsCount = rec.ViewsCount
	video.LikesCount = rec.LikesCount
	video.CommentsCount = rec.CommentsCount
	video.ReportsCount = rec.ReportsCount

	if err := l.videos.UpsertVideo(ctx, video); err != nil {
		return err
	}
	stats.Videos++

	// Deltas chain across snapshots, so observation order matters.
	snaps := rec.Snapshots
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.Time.Before(snaps[j].CreatedAt.Time)
	})

	// An incremental dump continues history already in the store, so the
	// chain starts from the latest stored snapshot, not from zero.
	prev, err := l.snapshots.GetLatestSnapshot(ctx, rec.ID)
	if err != nil {
		return err
	}
	for _, sr := range snaps {
		snap := &models.VideoSnapshot{
			VideoID:       rec.ID,
			ViewsCount:    sr.ViewsCount,
			LikesCount:    sr.LikesCount,
			CommentsCount: sr.CommentsCount,
			ReportsCount:  sr.ReportsCount,
			CreatedAt:     sr.CreatedAt.Time,
			UpdatedAt:     sr.CreatedAt.Time,
		}
		if sr.DeltaViewsCount != nil {
			snap.DeltaViewsCount = *sr.DeltaViewsCount
			snap.DeltaLikesCount = deref(sr.DeltaLikesCount)
			snap.DeltaCommentsCount = deref(sr.DeltaCommentsCount)
			snap.DeltaReportsCount = deref(sr.DeltaReportsCount)
		} else {
			snap.ComputeDeltas(prev)
		}
		if err := l.snapshots.InsertSnapshot(ctx, snap); err != nil {
			return err
		}
		stats.Snapshots++
		prev = snap
	}
	return nil
}

func decodeRecords(raw []byte) ([]videoRecord, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		if len(env.Videos) > 0 {
			return env.Videos, nil
		}
		if len(env.Data) > 0 {
			return env.Data, nil
		}
	}

	var records []videoRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	return records, nil
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// flexTime accepts the timestamp spellings seen across dumps.
type flexTime struct {
	Time time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
