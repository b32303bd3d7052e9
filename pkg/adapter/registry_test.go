package adapter

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingAdapter fails to connect and records whether it was closed.
type failingAdapter struct {
	Adapter
	closed bool
}

func (f *failingAdapter) Connect(context.Context, Config) error { return errors.New("refused") }

func (f *failingAdapter) Close() error {
	f.closed = true
	return nil
}

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{Type: "fake_db", Available: []string{"duckdb", "postgres", "sqlite"}}

	msg := err.Error()
	assert.Contains(t, msg, `"fake_db"`)
	assert.Contains(t, msg, "duckdb, postgres, sqlite")
	assert.Contains(t, msg, "polysql.yaml")
}

func TestRegister_CaseInsensitive(t *testing.T) {
	Register("Test_Backend", func(*slog.Logger) Adapter { return nil })

	for _, name := range []string{"test_backend", "TEST_BACKEND", "Test_Backend"} {
		assert.True(t, IsRegistered(name), name)
	}
	assert.Contains(t, ListAdapters(), "test_backend")
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.ErrorIs(t, err, ErrNoType)
}

func TestOpen_ClosesOnConnectFailure(t *testing.T) {
	fa := &failingAdapter{}
	Register("refusing", func(*slog.Logger) Adapter { return fa })

	_, err := Open(context.Background(), Config{Type: "refusing"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to refusing")
	assert.True(t, fa.closed)
}
