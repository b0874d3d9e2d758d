package persist

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2024, time.March, 7, 15, 4, 5, 0, time.UTC)

func TestFileName(t *testing.T) {
	require.Equal(t, "api-0-date-03-07-2024.log", FileName("api-0", fixed))
	require.Equal(t, "prod_api-0-date-03-07-2024.log", FileName("prod/api-0", fixed))
}

func TestRecord_AccumulatesLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	w, err := New(dir, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	require.Empty(t, w.Path("api-0"))
	require.NoError(t, w.Record("api-0", "a"))
	require.NoError(t, w.Record("api-0", "b"))
	require.NoError(t, w.Record("db-0", "only"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(filepath.Join(dir, "api-0-date-03-07-2024.log"))
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "db-0-date-03-07-2024.log"))
	require.NoError(t, err)
	require.Equal(t, "only\n", string(data))

	require.Equal(t, filepath.Join(dir, "api-0-date-03-07-2024.log"), w.Path("api-0"))
}

func TestRecord_AppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName("svc", fixed))
	require.NoError(t, os.WriteFile(path, []byte("earlier\n"), 0o644))

	w, err := New(dir, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	require.NoError(t, w.Record("svc", "later"))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "earlier\nlater\n", string(data))
}

func TestRecord_ConcurrentSourcesDoNotMix(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c"} {
		id := id
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = w.Record(id, id)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	for _, id := range []string{"a", "b", "c"} {
		data, err := os.ReadFile(filepath.Join(dir, FileName(id, fixed)))
		require.NoError(t, err)
		want := ""
		for i := 0; i < 50; i++ {
			want += id + "\n"
		}
		require.Equal(t, want, string(data))
	}
}

func TestRecordAfterClose(t *testing.T) {
	w, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.Error(t, w.Record("x", "y"))
}

func TestNew_EmptyDir(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}
