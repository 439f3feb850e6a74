package nlq

import (
	"fmt"
	"strings"

	"github.com/vidpulse/video-analytics-bot/internal/schema"
)

// Validator performs static safety checks on candidate SQL before it is
// allowed anywhere near the store. Checks run in a fixed order; the
// first failure wins and its reason becomes feedback for the next
// translation attempt.
type Validator struct {
	desc *schema.Descriptor
}

func NewValidator(desc *schema.Descriptor) *Validator {
	return &Validator{desc: desc}
}

// forbiddenKeywords are statement types and commands that must never
// reach the store, even inside a CTE.
var forbiddenKeywords = map[string]struct{}{
	"insert": {}, "update": {}, "delete": {}, "drop": {}, "alter": {},
	"create": {}, "truncate": {}, "grant": {}, "revoke": {}, "copy": {},
	"vacuum": {}, "analyze": {}, "call": {}, "do": {}, "execute": {},
	"prepare": {}, "deallocate": {}, "set": {}, "reset": {}, "into": {},
	"lock": {}, "listen": {}, "notify": {}, "comment": {}, "merge": {},
	"refresh": {}, "reindex": {}, "cluster": {}, "discard": {},
}

// allowedFunctions is the closed set of functions the schema prompt
// teaches the completion service. Unknown functions (pg_sleep,
// pg_read_file, ...) are rejected as unknown references.
var allowedFunctions = map[string]struct{}{
	"count": {}, "sum": {}, "avg": {}, "min": {}, "max": {},
	"date": {}, "date_trunc": {}, "date_part": {}, "to_date": {},
	"to_char": {}, "to_timestamp": {}, "extract": {}, "now": {},
	"coalesce": {}, "nullif": {}, "round": {}, "floor": {}, "ceil": {},
	"abs": {}, "greatest": {}, "least": {}, "lower": {}, "upper": {},
	"length": {}, "concat": {}, "cast": {}, "interval": {},
	"current_date": {}, "current_timestamp": {}, "row_number": {},
	"rank": {}, "dense_rank": {}, "percentile_cont": {},
}

// sqlKeywords are tokens the reference check skips: they are part of the
// query language, not schema references.
var sqlKeywords = map[string]struct{}{
	"select": {}, "from": {}, "where": {}, "and": {}, "or": {}, "not": {},
	"in": {}, "is": {}, "null": {}, "as": {}, "on": {}, "join": {},
	"inner": {}, "left": {}, "right": {}, "full": {}, "outer": {},
	"cross": {}, "group": {}, "by": {}, "order": {}, "having": {},
	"limit": {}, "offset": {}, "asc": {}, "desc": {}, "distinct": {},
	"between": {}, "like": {}, "ilike": {}, "case": {}, "when": {},
	"then": {}, "else": {}, "end": {}, "with": {}, "union": {},
	"all": {}, "exists": {}, "any": {}, "some": {}, "using": {},
	"true": {}, "false": {}, "over": {}, "partition": {}, "filter": {},
	"nulls": {}, "first": {}, "last": {}, "fetch": {}, "next": {},
	"rows": {}, "only": {}, "year": {}, "month": {}, "day": {},
	"hour": {}, "minute": {}, "second": {}, "epoch": {}, "dow": {},
	"timestamp": {}, "bigint": {}, "integer": {}, "numeric": {},
	"text": {}, "boolean": {}, "varchar": {}, "double": {},
	"precision": {}, "recursive": {},
}

// Validate runs every check against the candidate and returns the
// sanitized statement (trimmed, trailing semicolon removed) or a
// RejectedError naming the first failed check.
func (v *Validator) Validate(candidate string) (string, error) {
	sql := strings.TrimSpace(candidate)
	sql = strings.TrimSuffix(sql, ";")
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return "", &RejectedError{Reason: "empty statement"}
	}

	toks, err := tokenize(sql)
	if err != nil {
		return "", err
	}
	if len(toks) == 0 {
		return "", &RejectedError{Reason: "empty statement"}
	}

	if err := v.checkReadOnly(toks); err != nil {
		return "", err
	}
	if err := v.checkReferences(toks); err != nil {
		return "", err
	}
	if err := v.checkBoundedScan(toks); err != nil {
		return "", err
	}

	return sql, nil
}

func (v *Validator) checkReadOnly(toks []token) error {
	head := strings.ToLower(toks[0].text)
	if toks[0].kind != tokIdent || (head != "select" && head != "with") {
		return &RejectedError{Reason: fmt.Sprintf("non-read statement: %s", toks[0].text)}
	}
	for _, t := range toks {
		if t.kind != tokIdent {
			continue
		}
		word := strings.ToLower(t.text)
		if _, bad := forbiddenKeywords[word]; bad {
			return &RejectedError{Reason: fmt.Sprintf("non-read statement: %s", strings.ToUpper(word))}
		}
	}
	// Extraction cuts at the first semicolon, so a semicolon token here
	// means a second statement was smuggled inside the first.
	for _, t := range toks {
		if t.kind == tokSemicolon {
			return &RejectedError{Reason: "multiple statements"}
		}
	}
	return nil
}

// checkReferences verifies every table and column reference against the
// schema descriptor. Aliases declared in FROM/JOIN clauses and CTE names
// are accepted as table qualifiers; identifiers followed by '(' are
// functions and are checked against the allowlist instead.
func (v *Validator) checkReferences(toks []token) error {
	aliases := map[string]string{} // alias -> table name ("" for CTEs)

	// Pass 1: collect CTE names (WITH name AS ...) and FROM/JOIN
	// table aliases.
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent {
			continue
		}
		switch strings.ToLower(t.text) {
		case "with":
			// CTE names appear as "name AS (" at the top nesting level;
			// everything inside the parentheses belongs to the CTE body.
			depth := 0
			for j := i + 1; j < len(toks); j++ {
				switch toks[j].kind {
				case tokLParen:
					depth++
				case tokRParen:
					depth--
				case tokIdent:
					if depth == 0 && j+2 < len(toks) &&
						strings.EqualFold(toks[j+1].text, "as") &&
						toks[j+2].kind == tokLParen {
						aliases[strings.ToLower(toks[j].text)] = ""
					}
				}
			}
		case "from", "join":
			j := i + 1
			if j >= len(toks) || toks[j].kind != tokIdent {
				continue
			}
			name := strings.ToLower(toks[j].text)
			if _, cte := aliases[name]; !cte && !v.desc.HasTable(name) {
				if _, kw := sqlKeywords[name]; !kw {
					return &RejectedError{Reason: fmt.Sprintf("unknown reference: %s", toks[j].text)}
				}
				continue
			}
			// Optional alias: "FROM videos v" or "FROM videos AS v".
			k := j + 1
			if k < len(toks) && strings.EqualFold(toks[k].text, "as") {
				k++
			}
			if k < len(toks) && toks[k].kind == tokIdent {
				alias := strings.ToLower(toks[k].text)
				if _, kw := sqlKeywords[alias]; !kw {
					aliases[alias] = name
				}
			}
		}
	}

	// Pass 2: verify every identifier.
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent {
			continue
		}
		word := strings.ToLower(t.text)
		if _, kw := sqlKeywords[word]; kw {
			continue
		}
		if _, bad := forbiddenKeywords[word]; bad {
			continue // already reported by checkReadOnly
		}

		// Function call?
		if i+1 < len(toks) && toks[i+1].kind == tokLParen {
			if _, ok := allowedFunctions[word]; !ok {
				return &RejectedError{Reason: fmt.Sprintf("unknown reference: %s", t.text)}
			}
			continue
		}

		// Qualified reference a.b: validate pair, skip the column token.
		if i+2 < len(toks) && toks[i+1].kind == tokDot && toks[i+2].kind == tokIdent {
			table := word
			if resolved, ok := aliases[table]; ok {
				table = resolved
			}
			col := strings.ToLower(toks[i+2].text)
			if table == "" {
				// CTE output columns are not in the descriptor.
				i += 2
				continue
			}
			if !v.desc.HasTable(table) {
				return &RejectedError{Reason: fmt.Sprintf("unknown reference: %s", t.text)}
			}
			if !v.desc.HasColumn(table, col) {
				return &RejectedError{Reason: fmt.Sprintf("unknown reference: %s.%s", t.text, toks[i+2].text)}
			}
			i += 2
			continue
		}

		// Table names, CTE names and declared aliases stand alone after
		// FROM/JOIN or in expressions.
		if v.desc.HasTable(word) {
			continue
		}
		if _, ok := aliases[word]; ok {
			continue
		}
		if _, ok := allowedFunctions[word]; ok {
			continue // keyword-style function: CURRENT_DATE, INTERVAL
		}
		if v.desc.HasAnyColumn(word) {
			continue
		}
		// Column aliases declared via AS are fine.
		if i > 0 && strings.EqualFold(toks[i-1].text, "as") {
			continue
		}
		return &RejectedError{Reason: fmt.Sprintf("unknown reference: %s", t.text)}
	}
	return nil
}

// checkBoundedScan rejects a bare SELECT * over the snapshot table with
// no time filter, aggregate or LIMIT. Snapshots grow by one row per
// video per hour; an unbounded scan of them is never what a question
// needs.
func (v *Validator) checkBoundedScan(toks []token) error {
	var hasStar, overSnapshots, bounded bool
	for i, t := range toks {
		switch {
		case t.kind == tokStar && i > 0 && strings.EqualFold(toks[i-1].text, "select"):
			hasStar = true
		case t.kind == tokIdent:
			word := strings.ToLower(t.text)
			if word == schema.VideoSnapshotsTable {
				overSnapshots = true
			}
			switch word {
			case "where", "limit", "count", "sum", "avg", "min", "max", "group":
				bounded = true
			}
		}
	}
	if hasStar && overSnapshots && !bounded {
		return &RejectedError{Reason: "unbounded snapshot scan: add a time filter, an aggregate or LIMIT"}
	}
	return nil
}

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokNumber
	tokString
	tokOperator
	tokLParen
	tokRParen
	tokDot
	tokComma
	tokStar
	tokSemicolon
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a statement into tokens, rejecting unbalanced quotes
// or parentheses and SQL comments. String literal contents are opaque:
// nothing inside a literal triggers keyword or reference checks.
func tokenize(sql string) ([]token, error) {
	var toks []token
	depth := 0
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'':
			j := i + 1
			for {
				if j >= len(sql) {
					return nil, &RejectedError{Reason: "unterminated string literal"}
				}
				if sql[j] == '\'' {
					if j+1 < len(sql) && sql[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			toks = append(toks, token{tokString, sql[i : j+1]})
			i = j + 1
		case c == '"':
			j := strings.IndexByte(sql[i+1:], '"')
			if j < 0 {
				return nil, &RejectedError{Reason: "unterminated quoted identifier"}
			}
			toks = append(toks, token{tokIdent, sql[i+1 : i+1+j]})
			i += j + 2
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			return nil, &RejectedError{Reason: "comments are not allowed"}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			return nil, &RejectedError{Reason: "comments are not allowed"}
		case c == '(':
			depth++
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			depth--
			if depth < 0 {
				return nil, &RejectedError{Reason: "unbalanced parentheses"}
			}
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '.':
			toks = append(toks, token{tokDot, "."})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case c == '*':
			toks = append(toks, token{tokStar, "*"})
			i++
		case c == ';':
			toks = append(toks, token{tokSemicolon, ";"})
			i++
		case isIdentByte(c):
			j := i
			for j < len(sql) && isIdentByte(sql[j]) {
				j++
			}
			text := sql[i:j]
			if text[0] >= '0' && text[0] <= '9' {
				toks = append(toks, token{tokNumber, text})
			} else {
				toks = append(toks, token{tokIdent, text})
			}
			i = j
		default:
			toks = append(toks, token{tokOperator, string(c)})
			i++
		}
	}
	if depth != 0 {
		return nil, &RejectedError{Reason: "unbalanced parentheses"}
	}
	return toks, nil
}
