package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorTables(t *testing.T) {
	d := New()

	tables := d.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, VideosTable, tables[0].Name)
	assert.Equal(t, VideoSnapshotsTable, tables[1].Name)
}

func TestHasTable(t *testing.T) {
	d := New()

	assert.True(t, d.HasTable("videos"))
	assert.True(t, d.HasTable("VIDEOS"))
	assert.True(t, d.HasTable("video_snapshots"))
	assert.False(t, d.HasTable("users"))
	assert.False(t, d.HasTable("pg_catalog"))
}

func TestHasColumn(t *testing.T) {
	d := New()

	assert.True(t, d.HasColumn("videos", "views_count"))
	assert.True(t, d.HasColumn("videos", "creator_id"))
	assert.True(t, d.HasColumn("video_snapshots", "delta_views_count"))
	assert.False(t, d.HasColumn("videos", "delta_views_count"))
	assert.False(t, d.HasColumn("videos", "password"))
	assert.False(t, d.HasColumn("users", "id"))
}

func TestHasAnyColumn(t *testing.T) {
	d := New()

	assert.True(t, d.HasAnyColumn("views_count"))
	assert.True(t, d.HasAnyColumn("delta_likes_count"))
	assert.False(t, d.HasAnyColumn("email"))
}

func TestPromptTextMentionsEveryColumn(t *testing.T) {
	d := New()
	prompt := d.PromptText()

	for _, table := range d.Tables() {
		assert.Contains(t, prompt, table.Name)
		for _, col := range table.Columns {
			assert.Contains(t, prompt, col.Name)
		}
	}
	// One prompt per process; it must stay stable across calls.
	assert.Equal(t, prompt, d.PromptText())
	assert.True(t, strings.Contains(prompt, "ВАЖНО"))
}
