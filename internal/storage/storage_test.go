package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func TestRoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, "mappings", "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, "mappings", "k", []byte(`{"#ffffff":"#00ff00"}`)))
			v, err := s.Get(ctx, "mappings", "k")
			require.NoError(t, err)
			assert.Equal(t, `{"#ffffff":"#00ff00"}`, string(v))

			// Overwrite.
			require.NoError(t, s.Set(ctx, "mappings", "k", []byte("v2")))
			v, err = s.Get(ctx, "mappings", "k")
			require.NoError(t, err)
			assert.Equal(t, "v2", string(v))

			// Namespaces are isolated.
			_, err = s.Get(ctx, "devices", "k")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Delete(ctx, "mappings", "k"))
			_, err = s.Get(ctx, "mappings", "k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestList(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Set(ctx, "devices", "a", []byte("1")))
			require.NoError(t, s.Set(ctx, "devices", "b", []byte("2")))
			require.NoError(t, s.Set(ctx, "other", "c", []byte("3")))

			all, err := s.List(ctx, "devices")
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, all)

			empty, err := s.List(ctx, "nothing")
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestOpenDriverSelection(t *testing.T) {
	s, err := Open("memory", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open("", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = Open("sqlite", "")
	assert.Error(t, err)

	_, err = Open("postgres", "")
	assert.Error(t, err)
}

func TestMemoryValueIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	buf := []byte("abc")
	require.NoError(t, m.Set(ctx, "ns", "k", buf))
	buf[0] = 'X'

	v, err := m.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}
