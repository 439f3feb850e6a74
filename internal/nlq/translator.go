// Package nlq implements the natural-language-to-SQL question pipeline:
// translation through an external completion service, static validation
// of the generated SQL, sandboxed read-only execution, bounded retries
// with error feedback, and answer composition.
package nlq

import "context"

// PriorError describes one failed attempt: the SQL that was generated
// and the validation or execution error it produced. The next
// translation request embeds it so the service can correct the fault.
type PriorError struct {
	SQL    string
	Reason string
}

// Request is one translation request.
type Request struct {
	Question    string
	PriorErrors []PriorError
}

// Translator turns a natural-language question into candidate SQL.
// Implementations call an external, non-deterministic completion
// service; output is attacker-equivalent text and must never be
// executed without validation.
type Translator interface {
	Translate(ctx context.Context, req Request) (string, error)
}
