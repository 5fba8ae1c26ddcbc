package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/contactsync/pkg/errors"
)

func TestNew(t *testing.T) {
	err := pkgerrors.New("test error")
	assert.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestRunError(t *testing.T) {
	t.Run("fatal classification", func(t *testing.T) {
		cause := errors.New("token endpoint unreachable")
		err := pkgerrors.NewRunError(pkgerrors.StageCredential, cause)

		assert.Equal(t, "run aborted during credential: token endpoint unreachable", err.Error())
		assert.True(t, pkgerrors.IsFatal(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("nil passthrough", func(t *testing.T) {
		assert.NoError(t, pkgerrors.NewRunError(pkgerrors.StageRefresh, nil))
	})

	t.Run("wrapped", func(t *testing.T) {
		err := fmt.Errorf("syncer: %w", pkgerrors.NewRunError(pkgerrors.StageParse, errors.New("bad header")))
		assert.True(t, pkgerrors.IsFatal(err))

		var runErr *pkgerrors.RunError
		require.ErrorAs(t, err, &runErr)
		assert.Equal(t, pkgerrors.StageParse, runErr.Stage)
	})
}

func TestRowError(t *testing.T) {
	tests := []struct {
		name string
		err  *pkgerrors.RowError
		want string
	}{
		{
			name: "line and id",
			err:  pkgerrors.NewRowError(4, "C-1", "duplicate id, first seen on line 2", pkgerrors.ErrDuplicateID),
			want: "roster line 4 (id C-1): duplicate id, first seen on line 2",
		},
		{
			name: "line only",
			err:  pkgerrors.NewRowError(7, "", "missing id", nil),
			want: "roster line 7: missing id",
		},
		{
			name: "no position",
			err:  pkgerrors.NewRowError(0, "", "missing id", nil),
			want: "roster row: missing id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, pkgerrors.IsRowError(tt.err))
			assert.False(t, pkgerrors.IsFatal(tt.err))
		})
	}

	assert.ErrorIs(t, tests[0].err, pkgerrors.ErrDuplicateID)
}

func TestActionError(t *testing.T) {
	apiErr := pkgerrors.NewAPIError("directory", 400, "Phone number is invalid")
	err := pkgerrors.NewActionError("create", "C-9", "", apiErr)

	assert.Equal(t, "failed to create contact C-9: API error from directory (status 400): Phone number is invalid", err.Error())
	assert.Equal(t, "Phone number is invalid", err.Detail())

	var target *pkgerrors.APIError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 400, target.StatusCode)

	plain := pkgerrors.NewActionError("delete", "C-2", "ref-2", errors.New("connection reset"))
	assert.Contains(t, plain.Error(), "(ref ref-2)")
	assert.Equal(t, "connection reset", plain.Detail())
}

func TestAPIErrorClassification(t *testing.T) {
	assert.True(t, pkgerrors.IsRateLimited(pkgerrors.NewAPIError("directory", 429, "slow down")))
	assert.True(t, pkgerrors.IsServiceUnavailable(pkgerrors.NewAPIError("directory", 503, "maintenance")))
	assert.True(t, pkgerrors.IsNotFound(pkgerrors.NewAPIError("directory", 404, "gone")))
	assert.True(t, pkgerrors.IsUnauthorized(pkgerrors.NewAPIError("directory", 401, "expired")))
	assert.False(t, pkgerrors.IsRateLimited(pkgerrors.NewAPIError("directory", 400, "bad")))

	noStatus := &pkgerrors.APIError{Service: "directory", Message: "timeout"}
	assert.Equal(t, "API error from directory: timeout", noStatus.Error())
}

func TestAuthenticationError(t *testing.T) {
	err := &pkgerrors.AuthenticationError{
		Service: "zoom",
		Method:  "account_credentials",
		Message: "invalid client",
	}
	assert.Equal(t, "authentication error for zoom (account_credentials): invalid client", err.Error())
	assert.True(t, pkgerrors.IsUnauthorized(err))
}

func TestValidationError(t *testing.T) {
	err := pkgerrors.NewValidationError("schedule.interval", -1, "must be positive")
	assert.Equal(t, "validation failed for field schedule.interval: must be positive", err.Error())
	assert.True(t, pkgerrors.IsValidationError(err))

	anon := &pkgerrors.ValidationError{Message: "invalid configuration"}
	assert.Equal(t, "validation failed: invalid configuration", anon.Error())
}

func TestWrapHelpers(t *testing.T) {
	assert.NoError(t, pkgerrors.WrapIO("read", "x", nil))
	assert.NoError(t, pkgerrors.WrapParse("csv", "x", nil))
	assert.NoError(t, pkgerrors.WrapResource("open", "mirror", "", nil))

	cause := errors.New("permission denied")

	ioErr := pkgerrors.WrapIO("read", "/share/contacts.csv", cause)
	assert.Equal(t, "IO error during read of /share/contacts.csv: permission denied", ioErr.Error())
	assert.ErrorIs(t, ioErr, cause)

	parseErr := pkgerrors.WrapParse("csv", "contacts.csv", cause)
	assert.Equal(t, "parse error in csv file contacts.csv: permission denied", parseErr.Error())

	resErr := pkgerrors.WrapResource("open", "mirror", "bolt", cause)
	assert.Equal(t, "failed to open mirror bolt: permission denied", resErr.Error())
}
