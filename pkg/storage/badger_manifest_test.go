package storage

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"records-scraper/pkg/models"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func openManifest(t *testing.T, dir string) *BadgerManifest {
	t.Helper()
	m, err := NewBadgerManifest(dir, testLogger())
	require.NoError(t, err)
	return m
}

func entry(status models.TaskStatus, path string) *models.DocumentDBEntry {
	return &models.DocumentDBEntry{
		Status:      status,
		LocalPath:   path,
		Bytes:       1234,
		SHA256:      "abc123",
		Attempts:    1,
		RunID:       "run-1",
		LastAttempt: time.Now().UTC(),
	}
}

func TestBadgerManifest_UpdateAndCheck(t *testing.T) {
	m := openManifest(t, t.TempDir())
	defer m.Close()

	url := "https://records.test/files/table.pdf"

	status, got, err := m.CheckDocument(url)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, status)

	require.NoError(t, m.UpdateDocument(url, entry(models.StatusSucceeded, "/out/2021/A/table.pdf")))

	status, got, err = m.CheckDocument(url)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusSucceeded, status)
	assert.Equal(t, "/out/2021/A/table.pdf", got.LocalPath)
	assert.Equal(t, int64(1234), got.Bytes)
	assert.Equal(t, "abc123", got.SHA256)
}

func TestBadgerManifest_Count(t *testing.T) {
	m := openManifest(t, t.TempDir())
	defer m.Close()

	count, err := m.Count()
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, m.UpdateDocument("https://records.test/a.pdf", entry(models.StatusSucceeded, "a")))
	require.NoError(t, m.UpdateDocument("https://records.test/b.pdf", entry(models.StatusFailed, "b")))
	// Updating an existing key must not bump the count
	require.NoError(t, m.UpdateDocument("https://records.test/a.pdf", entry(models.StatusSkipped, "a")))

	count, err = m.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBadgerManifest_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	m := openManifest(t, dir)
	require.NoError(t, m.UpdateDocument("https://records.test/a.pdf", entry(models.StatusSucceeded, "a")))
	require.NoError(t, m.Close())

	m2 := openManifest(t, dir)
	defer m2.Close()

	status, got, err := m2.CheckDocument("https://records.test/a.pdf")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusSucceeded, status)

	count, err := m2.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBadgerManifest_EachDocument(t *testing.T) {
	m := openManifest(t, t.TempDir())
	defer m.Close()

	urls := []string{
		"https://records.test/a.pdf",
		"https://records.test/b.pdf",
		"https://records.test/c.pdf",
	}
	for _, u := range urls {
		require.NoError(t, m.UpdateDocument(u, entry(models.StatusSucceeded, u)))
	}

	seen := make(map[string]bool)
	err := m.EachDocument(func(url string, e *models.DocumentDBEntry) error {
		seen[url] = true
		assert.Equal(t, models.StatusSucceeded, e.Status)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, len(urls))
	for _, u := range urls {
		assert.True(t, seen[u], "missing %s", u)
	}
}

func TestBadgerManifest_ConcurrentUpdates(t *testing.T) {
	m := openManifest(t, t.TempDir())
	defer m.Close()

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			url := "https://records.test/shared.pdf"
			assert.NoError(t, m.UpdateDocument(url, entry(models.StatusSucceeded, "shared")))
		}(i)
	}
	wg.Wait()

	count, err := m.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
