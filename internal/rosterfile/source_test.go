package rosterfile

import (
	"context"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/contactsync/pkg/errors"
)

const roster = "ID,Name (Required)\n1,Alice\n"

func TestFetchRoster(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/share/PE contacts.csv", []byte(roster), 0o644))

	local := afero.NewMemMapFs()
	src := New(fs, "/share/PE contacts.csv", WithLocalCopy(local, "cache/contacts.csv"))

	data, err := src.FetchRoster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, roster, string(data))

	copied, err := afero.ReadFile(local, "cache/contacts.csv")
	require.NoError(t, err)
	assert.Equal(t, roster, string(copied))
}

func TestFetchRosterFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/share/dir", 0o755))

	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		path string
	}{
		{name: "missing", ctx: context.Background(), path: "/share/none.csv"},
		{name: "directory", ctx: context.Background(), path: "/share/dir"},
		{name: "canceled", ctx: canceled, path: "/share/none.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(fs, tt.path).FetchRoster(tt.ctx)
			require.Error(t, err)

			var te *errors.TransferError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.path, te.Path)
		})
	}

	_, err := New(fs, "/share/none.csv").FetchRoster(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalCopyFailureIsNotFatal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/r.csv", []byte(roster), 0o644))

	src := New(fs, "/r.csv", WithLocalCopy(afero.NewReadOnlyFs(afero.NewMemMapFs()), "copy/r.csv"))
	data, err := src.FetchRoster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, roster, string(data))
}

func TestNewOS(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/contacts.csv"
	require.NoError(t, os.WriteFile(path, []byte(roster), 0o600))

	src := NewOS(path)
	assert.Equal(t, path, src.Path())
	data, err := src.FetchRoster(context.Background())
	require.NoError(t, err)
	assert.Equal(t, roster, string(data))
}
