package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassStoreGetUsesFirstLine(t *testing.T) {
	t.Parallel()

	store := &PassStore{
		run: func(_ context.Context, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "camlink/influx"}, args)
			return "tok-123\nurl: http://influx.local\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "camlink/influx")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", value)
}

func TestPassStoreGetReportsStderr(t *testing.T) {
	t.Parallel()

	store := &PassStore{
		run: func(context.Context, ...string) (string, string, error) {
			return "", "Error: camlink/influx is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "camlink/influx")
	require.Error(t, err)
	assert.ErrorContains(t, err, `pass show "camlink/influx"`)
	assert.ErrorContains(t, err, "not in the password store")
}

func TestFileStoreGet(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "influx"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "influx", "token"), []byte("tok-456\n"), 0o600))

	store := NewFileStore(root)
	value, err := store.Get(context.Background(), "influx/token")
	require.NoError(t, err)
	assert.Equal(t, "tok-456", value)

	_, err = store.Get(context.Background(), "influx/missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileStoreRejectsEscapingReferences(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())
	for _, ref := range []string{"", "  ", "../etc/passwd", "/etc/passwd", "."} {
		_, err := store.Get(context.Background(), ref)
		assert.Error(t, err, ref)
	}
}

func TestChainFallsBackWhenPassIsUnavailable(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "influx"), []byte("from-file"), 0o600))

	pass := &PassStore{run: func(context.Context, ...string) (string, string, error) {
		return "", "", ErrPassUnavailable
	}}
	chain := NewChain(pass, NewFileStore(root))

	value, err := chain.Get(context.Background(), "influx")
	require.NoError(t, err)
	assert.Equal(t, "from-file", value)
}

func TestChainJoinsErrorsWhenNothingResolves(t *testing.T) {
	t.Parallel()

	pass := &PassStore{run: func(context.Context, ...string) (string, string, error) {
		return "", "", ErrPassUnavailable
	}}
	chain := NewChain(pass, NewFileStore(t.TempDir()))

	_, err := chain.Get(context.Background(), "influx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPassUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewChain(NewFileStore(t.TempDir())).Get(ctx, "influx")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChainWithoutReaders(t *testing.T) {
	t.Parallel()

	_, err := NewChain().Get(context.Background(), "influx")
	assert.ErrorIs(t, err, errNoReaders)
}
