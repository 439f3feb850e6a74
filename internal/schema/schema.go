// Package schema describes the queryable analytics tables. The descriptor
// is built once at startup and shared read-only by every question; the
// validator treats anything outside it as unsafe, so it must stay in
// lock-step with the migrations.
package schema

import (
	"fmt"
	"strings"
)

// Column describes a single queryable column.
type Column struct {
	Name        string
	Type        string
	Nullable    bool
	Description string
}

// Table describes a single queryable table.
type Table struct {
	Name    string
	Columns []Column
	Notes   string
}

// Descriptor is an immutable description of the analytics schema.
type Descriptor struct {
	tables  []Table
	byTable map[string]map[string]struct{}
	prompt  string
}

// Videos and VideoSnapshots are the only entities the pipeline may query.
const (
	VideosTable         = "videos"
	VideoSnapshotsTable = "video_snapshots"
)

// New builds the descriptor for the two-table video analytics schema.
func New() *Descriptor {
	tables := []Table{
		{
			Name: VideosTable,
			Columns: []Column{
				{Name: "id", Type: "BIGINT", Description: "уникальный идентификатор видео"},
				{Name: "creator_id", Type: "TEXT", Description: "идентификатор креатора (создателя видео)"},
				{Name: "video_created_at", Type: "TIMESTAMP", Nullable: true, Description: "дата и время публикации видео"},
				{Name: "views_count", Type: "BIGINT", Description: "итоговое количество просмотров"},
				{Name: "likes_count", Type: "BIGINT", Description: "итоговое количество лайков"},
				{Name: "comments_count", Type: "BIGINT", Description: "итоговое количество комментариев"},
				{Name: "reports_count", Type: "BIGINT", Description: "итоговое количество жалоб"},
				{Name: "created_at", Type: "TIMESTAMP", Description: "дата создания записи"},
				{Name: "updated_at", Type: "TIMESTAMP", Description: "дата обновления записи"},
			},
			Notes: "Для итоговой статистики используй таблицу videos.",
		},
		{
			Name: VideoSnapshotsTable,
			Columns: []Column{
				{Name: "id", Type: "BIGINT", Description: "уникальный идентификатор снапшота"},
				{Name: "video_id", Type: "BIGINT", Description: "ссылка на videos.id (FOREIGN KEY)"},
				{Name: "views_count", Type: "BIGINT", Description: "количество просмотров на момент замера"},
				{Name: "likes_count", Type: "BIGINT", Description: "количество лайков на момент замера"},
				{Name: "comments_count", Type: "BIGINT", Description: "количество комментариев на момент замера"},
				{Name: "reports_count", Type: "BIGINT", Description: "количество жалоб на момент замера"},
				{Name: "delta_views_count", Type: "BIGINT", Description: "приращение просмотров с прошлого замера"},
				{Name: "delta_likes_count", Type: "BIGINT", Description: "приращение лайков с прошлого замера"},
				{Name: "delta_comments_count", Type: "BIGINT", Description: "приращение комментариев с прошлого замера"},
				{Name: "delta_reports_count", Type: "BIGINT", Description: "приращение жалоб с прошлого замера"},
				{Name: "created_at", Type: "TIMESTAMP", Description: "время замера (снапшот делается каждый час)"},
				{Name: "updated_at", Type: "TIMESTAMP", Description: "дата обновления записи"},
			},
			Notes: "Для динамики и прироста используй таблицу video_snapshots. " +
				"Колонки delta_* уже вычислены — не пересчитывай их оконными функциями.",
		},
	}

	byTable := make(map[string]map[string]struct{}, len(tables))
	for _, t := range tables {
		cols := make(map[string]struct{}, len(t.Columns))
		for _, c := range t.Columns {
			cols[c.Name] = struct{}{}
		}
		byTable[t.Name] = cols
	}

	return &Descriptor{
		tables:  tables,
		byTable: byTable,
		prompt:  renderPrompt(tables),
	}
}

// Tables returns the described tables.
func (d *Descriptor) Tables() []Table {
	return d.tables
}

// HasTable reports whether name is a queryable table.
func (d *Descriptor) HasTable(name string) bool {
	_, ok := d.byTable[strings.ToLower(name)]
	return ok
}

// HasColumn reports whether table.column is queryable.
func (d *Descriptor) HasColumn(table, column string) bool {
	cols, ok := d.byTable[strings.ToLower(table)]
	if !ok {
		return false
	}
	_, ok = cols[strings.ToLower(column)]
	return ok
}

// HasAnyColumn reports whether column exists in any queryable table.
// Used for unqualified column references.
func (d *Descriptor) HasAnyColumn(column string) bool {
	column = strings.ToLower(column)
	for _, cols := range d.byTable {
		if _, ok := cols[column]; ok {
			return true
		}
	}
	return false
}

// PromptText renders the schema description embedded in every
// translation request.
func (d *Descriptor) PromptText() string {
	return d.prompt
}

func renderPrompt(tables []Table) string {
	var b strings.Builder
	b.WriteString("База данных содержит информацию о видео и их статистике.\n")
	for _, t := range tables {
		fmt.Fprintf(&b, "\nТАБЛИЦА %s:\n", t.Name)
		for _, c := range t.Columns {
			nullable := ""
			if c.Nullable {
				nullable = ", NULLABLE"
			}
			fmt.Fprintf(&b, "- %s (%s%s) - %s\n", c.Name, c.Type, nullable, c.Description)
		}
	}
	b.WriteString("\nВАЖНО:\n")
	for _, t := range tables {
		if t.Notes != "" {
			fmt.Fprintf(&b, "- %s\n", t.Notes)
		}
	}
	b.WriteString("- При работе с датами используй функции PostgreSQL: DATE(), DATE_TRUNC(), TO_DATE()\n")
	b.WriteString("- Русские названия месяцев нужно преобразовать в даты: \"28 ноября 2025\" -> DATE '2025-11-28'\n")
	b.WriteString("- Для диапазонов дат используй BETWEEN или >= и <=\n")
	return b.String()
}
