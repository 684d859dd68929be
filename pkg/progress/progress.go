package progress

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"records-scraper/pkg/models"
)

// ProgressLog is the append-only record of every retrieval attempt in a run.
// One tab-separated line per event: timestamp, year, category, filename,
// status, reason. Appends are serialized by a mutex so entries from
// concurrently completing tasks never interleave.
type ProgressLog struct {
	mu             sync.Mutex
	file           *os.File // nil when no log file was requested
	log            *logrus.Entry
	start          time.Time
	succeeded      int
	failed         int
	skipped        int
	warnings       int
	totalBytes     int64
	failureReasons map[string]int
}

// NewProgressLog opens (appending) the attempt log at path and stamps a run
// header. An empty path keeps the log in memory only, which the tests use.
func NewProgressLog(path, runID string, log *logrus.Entry) (*ProgressLog, error) {
	p := &ProgressLog{
		log:            log,
		start:          time.Now(),
		failureReasons: make(map[string]int),
	}
	if path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening progress log '%s': %w", path, err)
		}
		p.file = file
		fmt.Fprintf(file, "# run %s started %s\n", runID, p.start.Format(time.RFC3339))
	}
	return p, nil
}

// Record appends one terminal outcome. Safe for concurrent use.
func (p *ProgressLog) Record(o models.RetrievalOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch o.Status {
	case models.StatusSucceeded:
		p.succeeded++
		p.totalBytes += o.Bytes
	case models.StatusFailed:
		p.failed++
		p.failureReasons[o.Reason]++
	case models.StatusSkipped:
		p.skipped++
	}

	link := o.Task.Link
	p.writeLine(strconv.Itoa(link.Year), link.Category, link.Filename, string(o.Status), o.Reason)

	p.log.WithFields(logrus.Fields{
		"year":     link.Year,
		"category": link.Category,
		"filename": link.Filename,
		"status":   o.Status,
		"reason":   o.Reason,
		"bytes":    o.Bytes,
		"attempts": o.Attempts,
		"elapsed":  o.Elapsed.String(),
	}).Info("Retrieval outcome")
}

// RecordWarning appends a non-task event: an unfetchable listing page, a
// page with zero matching links, or a link dropped during extraction.
func (p *ProgressLog) RecordWarning(year int, reason, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.warnings++
	p.writeLine(strconv.Itoa(year), "-", "-", "warning", reason)
	p.log.WithFields(logrus.Fields{"year": year, "reason": reason}).Warn(detail)
}

// writeLine appends one entry. Caller must hold p.mu.
func (p *ProgressLog) writeLine(year, category, filename, status, reason string) {
	if p.file == nil {
		return
	}
	fmt.Fprintf(p.file, "%s\t%s\t%s\t%s\t%s\t%s\n",
		time.Now().Format(time.RFC3339), year, category, filename, status, reason)
}

// Summarize derives the run summary from the counts accumulated so far
func (p *ProgressLog) Summarize() models.RunSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	reasons := make(map[string]int, len(p.failureReasons))
	for reason, count := range p.failureReasons {
		reasons[reason] = count
	}
	return models.RunSummary{
		Succeeded:      p.succeeded,
		Failed:         p.failed,
		Skipped:        p.skipped,
		Warnings:       p.warnings,
		TotalBytes:     p.totalBytes,
		Elapsed:        time.Since(p.start),
		FailureReasons: reasons,
	}
}

// Close flushes and closes the underlying log file
func (p *ProgressLog) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	return err
}
