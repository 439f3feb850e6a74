package nlq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vidpulse/video-analytics-bot/internal/metrics"
	"github.com/vidpulse/video-analytics-bot/pkg/logger"
)

// Rows is the raw result of one executed query.
type Rows struct {
	Columns []string
	Values  [][]any
}

// Executor runs validated SQL inside a read-only transaction with a
// per-statement timeout. Validation is the safety net of first resort;
// the read-only transaction and the timeout are the backstop for
// anything the static checks cannot see.
type Executor struct {
	pool           *pgxpool.Pool
	stmtTimeout    time.Duration
	connectRetries uint64
}

func NewExecutor(pool *pgxpool.Pool, stmtTimeout time.Duration, connectRetries int) *Executor {
	if stmtTimeout <= 0 {
		stmtTimeout = 5 * time.Second
	}
	if connectRetries < 0 {
		connectRetries = 0
	}
	return &Executor{pool: pool, stmtTimeout: stmtTimeout, connectRetries: uint64(connectRetries)}
}

// Execute runs the statement and returns its rows. Connection failures
// are retried with exponential backoff up to the configured sub-limit;
// every other failure is classified and returned immediately.
func (e *Executor) Execute(ctx context.Context, sql string) (*Rows, error) {
	var rows *Rows

	operation := func() error {
		start := time.Now()
		r, err := e.executeOnce(ctx, sql)
		metrics.ObserveQueryDuration(time.Since(start))
		if err != nil {
			var execErr *ExecError
			if errors.As(err, &execErr) && execErr.Kind == ExecConnection {
				logger.Log.Warn("store unreachable, retrying query",
					zap.Error(execErr.Err))
				return err
			}
			return backoff.Permanent(err)
		}
		rows = r
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.connectRetries)
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *Executor) executeOnce(ctx context.Context, sql string) (*Rows, error) {
	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, classify(err)
	}
	defer tx.Rollback(ctx)

	timeout := fmt.Sprintf("SET LOCAL statement_timeout = %d", e.stmtTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, timeout); err != nil {
		return nil, classify(err)
	}

	pgRows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, classify(err)
	}

	fds := pgRows.FieldDescriptions()
	columns := make([]string, len(fds))
	for i, fd := range fds {
		columns[i] = fd.Name
	}

	var values [][]any
	for pgRows.Next() {
		row, err := pgRows.Values()
		if err != nil {
			pgRows.Close()
			return nil, classify(err)
		}
		values = append(values, row)
	}
	pgRows.Close()
	if err := pgRows.Err(); err != nil {
		return nil, classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify(err)
	}
	return &Rows{Columns: columns, Values: values}, nil
}

// classify maps a storage error onto the executor error taxonomy.
// Context cancellation passes through untouched so callers can tell a
// dead request apart from a bad query.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "57014": // query_canceled, raised by statement_timeout
			return &ExecError{Kind: ExecTimeout, Err: err}
		case strings.HasPrefix(pgErr.Code, "08"): // connection exceptions
			return &ExecError{Kind: ExecConnection, Err: err}
		case pgErr.Code == "53300": // too_many_connections
			return &ExecError{Kind: ExecConnection, Err: err}
		default:
			// 42xxx (syntax, undefined column/table), 22xxx (bad data),
			// 25006 (read-only violation) and everything else the server
			// refused: a query-quality problem, feed it back.
			return &ExecError{Kind: ExecConstraintOrType, Err: err}
		}
	}

	// No server response at all: the store is unreachable.
	return &ExecError{Kind: ExecConnection, Err: err}
}
