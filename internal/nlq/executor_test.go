package nlq

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatementTimeout(t *testing.T) {
	err := classify(&pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"})

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, ExecTimeout, execErr.Kind)
}

func TestClassifyConnectionErrors(t *testing.T) {
	for _, code := range []string{"08000", "08006", "08003", "53300"} {
		err := classify(&pgconn.PgError{Code: code})

		var execErr *ExecError
		require.ErrorAs(t, err, &execErr, "code: %s", code)
		assert.Equal(t, ExecConnection, execErr.Kind, "code: %s", code)
	}
}

func TestClassifyServerRefusals(t *testing.T) {
	for _, code := range []string{"42703", "42P01", "42601", "22P02", "25006"} {
		err := classify(&pgconn.PgError{Code: code})

		var execErr *ExecError
		require.ErrorAs(t, err, &execErr, "code: %s", code)
		assert.Equal(t, ExecConstraintOrType, execErr.Kind, "code: %s", code)
	}
}

func TestClassifyPlainNetworkError(t *testing.T) {
	err := classify(errors.New("dial tcp: connection refused"))

	var execErr *ExecError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, ExecConnection, execErr.Kind)
}

func TestClassifyContextErrorsPassThrough(t *testing.T) {
	assert.Equal(t, context.Canceled, classify(context.Canceled))
	assert.Equal(t, context.DeadlineExceeded, classify(context.DeadlineExceeded))
}
