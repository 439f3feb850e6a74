package nlq

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// FailureMessage is the only text a user sees when the pipeline gives
// up. It deliberately carries no reasons: attempt diagnostics stay in
// the logs.
const FailureMessage = "Не удалось обработать ваш вопрос.\n" +
	"Попробуйте переформулировать его или задать другой вопрос о статистике видео."

// NoDataMessage is rendered for queries that executed cleanly but
// matched nothing.
const NoDataMessage = "По вашему запросу данных не найдено."

// Composer renders query results as user-facing answer text.
type Composer struct {
	maxRows int
}

func NewComposer(maxRows int) *Composer {
	if maxRows <= 0 {
		maxRows = 20
	}
	return &Composer{maxRows: maxRows}
}

// Compose turns rows into answer text. A single-cell result is rendered
// as the bare value, the common case for COUNT/SUM questions. Larger
// results become an enumerated summary truncated at the row limit but
// always stating the true row count.
func (c *Composer) Compose(rows *Rows) string {
	if rows == nil || len(rows.Values) == 0 {
		return NoDataMessage
	}

	if len(rows.Values) == 1 && len(rows.Values[0]) == 1 {
		return formatValue(rows.Values[0][0])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Найдено записей: %d\n", len(rows.Values))
	shown := rows.Values
	if len(shown) > c.maxRows {
		shown = shown[:c.maxRows]
	}
	for i, row := range shown {
		fmt.Fprintf(&b, "%d. ", i+1)
		parts := make([]string, len(row))
		for j, v := range row {
			if j < len(rows.Columns) {
				parts[j] = rows.Columns[j] + ": " + formatValue(v)
			} else {
				parts[j] = formatValue(v)
			}
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteByte('\n')
	}
	if len(rows.Values) > c.maxRows {
		fmt.Fprintf(&b, "... показаны первые %d из %d.", c.maxRows, len(rows.Values))
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatValue renders one cell. Aggregates over empty sets come back as
// NULL; users read that as zero.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "0"
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', 2, 64)
	case float32:
		return formatValue(float64(val))
	case *big.Int:
		return val.String()
	case bool:
		if val {
			return "да"
		}
		return "нет"
	case string:
		return val
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05")
	case driver.Valuer:
		// pgx decodes NUMERIC into a Valuer type; unwrap and retry.
		inner, err := val.Value()
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		if s, ok := inner.(string); ok {
			return trimNumeric(s)
		}
		return formatValue(inner)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// trimNumeric drops a useless fractional part from a NUMERIC string
// ("42.000000" -> "42").
func trimNumeric(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
