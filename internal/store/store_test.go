package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *SQLite {
	t.Helper()

	s, err := OpenSQLite(filepath.Join(t.TempDir(), "settings", "router.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func implementations(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": openSQLite(t),
	}
}

func TestStoreGetSetDelete(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get("migration.state")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, s.Set("migration.state", "hybrid"))
			require.NoError(t, s.Set("migration.state", "newOnly"))

			v, ok, err := s.Get("migration.state")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "newOnly", v)

			require.NoError(t, s.Delete("migration.state"))
			require.NoError(t, s.Delete("migration.state"))

			_, ok, err = s.Get("migration.state")
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestStoreList(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set("migration.error_count.get_weather", "2"))
			require.NoError(t, s.Set("migration.error_count.get_reviews", "1"))
			require.NoError(t, s.Set("migration.slow_count.get_weather", "4"))

			got, err := s.List("migration.error_count.")
			require.NoError(t, err)
			require.Equal(t, map[string]string{
				"migration.error_count.get_weather": "2",
				"migration.error_count.get_reviews": "1",
			}, got)

			got, err = s.List("nothing.")
			require.NoError(t, err)
			require.Empty(t, got)
		})
	}
}

func TestTypedHelpers(t *testing.T) {
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			b, err := GetBool(s, "migration.debug_logging", true)
			require.NoError(t, err)
			require.True(t, b)

			require.NoError(t, SetBool(s, "migration.debug_logging", false))
			b, err = GetBool(s, "migration.debug_logging", true)
			require.NoError(t, err)
			require.False(t, b)

			require.NoError(t, SetInt(s, "migration.slow_count.get_weather", 7))
			n, err := GetInt(s, "migration.slow_count.get_weather", 0)
			require.NoError(t, err)
			require.Equal(t, int64(7), n)

			require.NoError(t, s.Set("migration.slow_count.garbage", "seven"))
			n, err = GetInt(s, "migration.slow_count.garbage", 0)
			require.NoError(t, err)
			require.Zero(t, n)

			require.NoError(t, SetJSON(s, "migration.enabled_categories", []string{"location", "transport"}))

			var cats []string
			ok, err := GetJSON(s, "migration.enabled_categories", &cats)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, []string{"location", "transport"}, cats)

			require.NoError(t, s.Set("migration.enabled_categories", "{not json"))
			ok, err = GetJSON(s, "migration.enabled_categories", &cats)
			require.True(t, ok)
			require.Error(t, err)
		})
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Set("migration.last_rollback", `{"reason":"test"}`))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	v, ok, err := reopened.Get("migration.last_rollback")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"reason":"test"}`, v)
	require.Equal(t, path, reopened.Path())
}

func TestOpenSQLiteRejectsBadPaths(t *testing.T) {
	_, err := OpenSQLite("  ")
	require.Error(t, err)

	_, err = OpenSQLite(t.TempDir())
	require.ErrorContains(t, err, "is a directory")
}
