package progress

import (
	"io"
	"os"
	"path/filepath"
	"strings"
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

func outcome(status models.TaskStatus, reason string, bytes int64) models.RetrievalOutcome {
	return models.RetrievalOutcome{
		Task: &models.RetrievalTask{
			Link: models.DocumentLink{Year: 2021, Category: "Accidents", Filename: "table.pdf"},
		},
		Status:   status,
		Reason:   reason,
		Bytes:    bytes,
		Elapsed:  10 * time.Millisecond,
		Attempts: 1,
	}
}

func TestProgressLog_Summarize(t *testing.T) {
	p, err := NewProgressLog("", "run-1", testLogger())
	require.NoError(t, err)
	defer p.Close()

	p.Record(outcome(models.StatusSucceeded, "", 1000))
	p.Record(outcome(models.StatusSucceeded, "", 2500))
	p.Record(outcome(models.StatusFailed, "HTTP_404", 0))
	p.Record(outcome(models.StatusFailed, "HTTP_404", 0))
	p.Record(outcome(models.StatusFailed, "Network_Timeout", 0))
	p.Record(outcome(models.StatusSkipped, models.ReasonAlreadyExists, 0))
	p.RecordWarning(2022, "no_links", "listing page yielded nothing")

	s := p.Summarize()
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 3, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, int64(3500), s.TotalBytes)
	assert.Equal(t, 2, s.FailureReasons["HTTP_404"])
	assert.Equal(t, 1, s.FailureReasons["Network_Timeout"])
}

func TestProgressLog_FileAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.tsv")

	p, err := NewProgressLog(path, "run-1", testLogger())
	require.NoError(t, err)
	p.Record(outcome(models.StatusSucceeded, "", 100))
	p.Record(outcome(models.StatusFailed, "HTTP_5xx", 0))
	require.NoError(t, p.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3) // run header + two entries

	assert.True(t, strings.HasPrefix(lines[0], "# run run-1"))
	fields := strings.Split(lines[1], "\t")
	require.Len(t, fields, 6)
	assert.Equal(t, "2021", fields[1])
	assert.Equal(t, "Accidents", fields[2])
	assert.Equal(t, "table.pdf", fields[3])
	assert.Equal(t, "succeeded", fields[4])

	// Reopening appends, never rewrites
	p2, err := NewProgressLog(path, "run-2", testLogger())
	require.NoError(t, err)
	require.NoError(t, p2.Close())

	data2, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data2), string(data)))
}

func TestProgressLog_ConcurrentRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.tsv")
	p, err := NewProgressLog(path, "run-1", testLogger())
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Record(outcome(models.StatusSucceeded, "", 10))
		}()
	}
	wg.Wait()
	require.NoError(t, p.Close())

	s := p.Summarize()
	assert.Equal(t, n, s.Succeeded)
	assert.Equal(t, int64(10*n), s.TotalBytes)

	// Every line is intact: exactly 6 tab-separated fields, no interleaving
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, n+1)
	for _, line := range lines[1:] {
		assert.Len(t, strings.Split(line, "\t"), 6)
	}
}
