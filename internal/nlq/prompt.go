package nlq

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vidpulse/video-analytics-bot/internal/schema"
)

// Few-shot examples keep the model on the narrow aggregate-query path
// the analytics schema supports.
var promptExamples = []struct {
	question string
	sql      string
}{
	{"Сколько всего видео есть в системе?", "SELECT COUNT(*) FROM videos;"},
	{"Сколько всего просмотров у всех видео?", "SELECT SUM(views_count) FROM videos;"},
	{"Сколько видео набрало больше 100000 просмотров за всё время?", "SELECT COUNT(*) FROM videos WHERE views_count > 100000;"},
	{"На сколько просмотров в сумме выросли все видео 28 ноября 2025?", "SELECT SUM(delta_views_count) FROM video_snapshots WHERE DATE(created_at) = DATE '2025-11-28';"},
	{"Сколько разных видео получали новые просмотры 27 ноября 2025?", "SELECT COUNT(DISTINCT video_id) FROM video_snapshots WHERE DATE(created_at) = DATE '2025-11-27' AND delta_views_count > 0;"},
	{"Сколько видео у креатора с id creator123 вышло с 1 ноября 2025 по 5 ноября 2025 включительно?", "SELECT COUNT(*) FROM videos WHERE creator_id = 'creator123' AND DATE(video_created_at) BETWEEN DATE '2025-11-01' AND DATE '2025-11-05';"},
	{"Сколько уникальных креаторов есть в базе?", "SELECT COUNT(DISTINCT creator_id) FROM videos;"},
	{"Какое максимальное количество просмотров у видео?", "SELECT MAX(views_count) FROM videos;"},
}

// SystemPrompt renders the instruction block sent as the system message
// of every translation request.
func SystemPrompt(desc *schema.Descriptor) string {
	var b strings.Builder
	b.WriteString("Ты - эксперт по SQL запросам для PostgreSQL. ")
	b.WriteString("Твоя задача - преобразовать вопрос на русском языке в корректный SQL запрос.\n\n")
	b.WriteString(desc.PromptText())
	b.WriteString(`
КРИТИЧЕСКИ ВАЖНО:
1. Возвращай ТОЛЬКО SQL запрос, БЕЗ объяснений, комментариев или дополнительного текста
2. Используй ТОЛЬКО SELECT запросы (запрещены DROP, DELETE, UPDATE, INSERT, ALTER, CREATE)
3. НЕ используй markdown форматирование (` + "```sql или ```" + `)

ОБРАБОТКА ДАТ:
- "28 ноября 2025" -> DATE '2025-11-28'
- "27 ноября" -> DATE '2025-11-27' (если год не указан, используй 2025)
- "с 1 по 5 ноября 2025 включительно" -> BETWEEN DATE '2025-11-01' AND DATE '2025-11-05'

ПОНИМАНИЕ ВОПРОСОВ:
- "сколько" = COUNT
- "сумма", "всего", "суммарно" = SUM
- "прирост", "выросли", "увеличились" = используй delta_*_count
- "разные", "уникальные" = DISTINCT
- "за всё время" = без фильтра по дате

ПРИМЕРЫ:
`)
	for _, ex := range promptExamples {
		fmt.Fprintf(&b, "\nВопрос: \"%s\"\nSQL: %s\n", ex.question, ex.sql)
	}
	return b.String()
}

// UserPrompt renders the per-request message: the normalized question
// and, on retry, the prior SQL with the error it produced.
func UserPrompt(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Вопрос пользователя: %s\n", NormalizeQuestion(req.Question))
	for _, prior := range req.PriorErrors {
		b.WriteString("\nПредыдущая попытка не сработала.\n")
		fmt.Fprintf(&b, "SQL: %s\n", prior.SQL)
		fmt.Fprintf(&b, "Ошибка: %s\n", prior.Reason)
		b.WriteString("Исправь именно эту ошибку.\n")
	}
	b.WriteString("\nВерни ТОЛЬКО SQL запрос, без объяснений:")
	return b.String()
}

var spacedDigits = regexp.MustCompile(`(\d+)\s+(\d+)`)

// questionReplacements maps colloquial phrasings onto the wording the
// few-shot examples use.
var questionReplacements = [][2]string{
	{"какое количество", "сколько"},
	{"какая сумма", "сколько всего"},
	{"суммарно", "всего"},
	{"в сумме", "всего"},
	{"за весь период", "за всё время"},
	{"за все время", "за всё время"},
}

// NormalizeQuestion collapses whitespace, joins digit groups
// ("100 000" -> "100000") and canonicalizes common phrasings.
func NormalizeQuestion(question string) string {
	q := strings.Join(strings.Fields(question), " ")

	for {
		joined := spacedDigits.ReplaceAllString(q, "$1$2")
		if joined == q {
			break
		}
		q = joined
	}

	lower := strings.ToLower(q)
	for _, r := range questionReplacements {
		if idx := strings.Index(lower, r[0]); idx >= 0 {
			q = q[:idx] + r[1] + q[idx+len(r[0]):]
			lower = strings.ToLower(q)
		}
	}

	return strings.TrimSpace(q)
}
