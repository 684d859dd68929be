package schedule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"records-scraper/pkg/config"
	"records-scraper/pkg/fetch"
	"records-scraper/pkg/models"
	"records-scraper/pkg/parse"
	"records-scraper/pkg/storage"
	"records-scraper/pkg/utils"
)

// Scheduler dispatches retrieval tasks with bounded concurrency and drives
// each task through Pending -> InFlight -> terminal. The concurrency limit
// is enforced with a weighted semaphore: at most cfg.NumWorkers transfers
// are in flight at any instant.
type Scheduler struct {
	fetcher  fetch.DocumentFetcher
	limiter  *fetch.RateLimiter
	manifest storage.ManifestStore // optional; nil disables manifest recording
	cfg      *config.AppConfig
	runID    string
	log      *logrus.Entry
}

// NewScheduler creates a Scheduler
func NewScheduler(fetcher fetch.DocumentFetcher, limiter *fetch.RateLimiter, manifest storage.ManifestStore, cfg *config.AppConfig, runID string, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		fetcher:  fetcher,
		limiter:  limiter,
		manifest: manifest,
		cfg:      cfg,
		runID:    runID,
		log:      log,
	}
}

// Run dispatches all tasks and returns a channel of terminal outcomes in
// completion order (not submission order). The channel is closed once every
// task has reached a terminal state.
//
// Cancellation of ctx lets in-flight attempts finish (no truncated files)
// but dispatches nothing new; tasks still pending become Skipped(cancelled).
func (s *Scheduler) Run(ctx context.Context, tasks []*models.RetrievalTask) <-chan models.RetrievalOutcome {
	outcomes := make(chan models.RetrievalOutcome, len(tasks))
	sem := semaphore.NewWeighted(int64(s.cfg.NumWorkers))

	go func() {
		defer close(outcomes)
		var wg sync.WaitGroup

		for i, task := range tasks {
			if ctx.Err() != nil {
				outcomes <- s.skipOutcome(task, models.ReasonCancelled)
				continue
			}
			// Acquire fails only when ctx is cancelled while waiting for a slot
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes <- s.skipOutcome(task, models.ReasonCancelled)
				continue
			}

			wg.Add(1)
			taskLog := s.log.WithFields(logrus.Fields{"task": i, "url": task.Link.URL})
			go func(task *models.RetrievalTask, taskLog *logrus.Entry) {
				defer wg.Done()
				defer sem.Release(1)
				outcomes <- s.runTask(ctx, task, taskLog)
			}(task, taskLog)
		}
		wg.Wait()
	}()

	return outcomes
}

// runTask executes one task to its terminal state
func (s *Scheduler) runTask(ctx context.Context, task *models.RetrievalTask, taskLog *logrus.Entry) models.RetrievalOutcome {
	start := time.Now()
	task.Status = models.StatusInFlight

	// Idempotent reruns: a plausible file already on disk means no network call
	if info, err := os.Stat(task.DestPath); err == nil && info.Size() > 0 {
		taskLog.WithField("size", info.Size()).Debug("Destination exists, skipping download")
		task.Status = models.StatusSkipped
		return s.finish(task, models.RetrievalOutcome{
			Task:    task,
			Status:  models.StatusSkipped,
			Reason:  models.ReasonAlreadyExists,
			Elapsed: time.Since(start),
		})
	}

	host := ""
	if parsed, err := url.Parse(task.Link.URL); err == nil {
		host = parsed.Hostname()
	}

	maxAttempts := s.cfg.MaxRetries + 1
	var lastErr error

attempts:
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		task.Attempts = attempt
		if host != "" {
			s.limiter.ApplyDelay(host, s.cfg.DelayPerHost)
		}

		// Cancellation must not abort an attempt mid-transfer, only prevent
		// further ones; the per-attempt bound is the HTTP client's timeout.
		resp, err := s.fetcher.Fetch(context.WithoutCancel(ctx), task.Link.URL)
		if host != "" {
			s.limiter.UpdateLastRequestTime(host)
		}

		if err == nil {
			bytes, sha, writeErr := s.writeDocument(resp, task.DestPath)
			if writeErr != nil {
				// Disk failures are not retried
				lastErr = writeErr
				break attempts
			}
			taskLog.WithFields(logrus.Fields{"bytes": bytes, "attempts": attempt}).Debug("Document retrieved")
			task.Status = models.StatusSucceeded
			return s.finish(task, models.RetrievalOutcome{
				Task:     task,
				Status:   models.StatusSucceeded,
				Bytes:    bytes,
				Elapsed:  time.Since(start),
				Attempts: attempt,
			}, sha)
		}

		lastErr = err
		if !utils.IsTransient(err) {
			taskLog.Warnf("Permanent failure, not retrying: %v", err)
			break attempts
		}
		if attempt == maxAttempts {
			taskLog.Warnf("All %d attempts failed: %v", maxAttempts, err)
			break attempts
		}
		if ctx.Err() != nil {
			taskLog.Warnf("Run cancelled, abandoning retries after attempt %d", attempt)
			break attempts
		}

		delay := s.backoffDelay(attempt)
		taskLog.WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Warn("Transient failure, retrying...")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			taskLog.Warnf("Run cancelled during retry backoff after attempt %d", attempt)
			break attempts
		}
	}

	task.Status = models.StatusFailed
	return s.finish(task, models.RetrievalOutcome{
		Task:     task,
		Status:   models.StatusFailed,
		Reason:   utils.CategorizeError(lastErr),
		Elapsed:  time.Since(start),
		Attempts: task.Attempts,
	})
}

// writeDocument streams the response body to the task's destination.
// The directory is created lazily and idempotently; concurrent MkdirAll for
// the same category directory is not an error. The file handle is released
// on every exit path, and a partial file never survives a failed write (it
// would satisfy the already-exists check on the next run).
func (s *Scheduler) writeDocument(resp *http.Response, destPath string) (int64, string, error) {
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return 0, "", fmt.Errorf("%w: creating directory '%s': %w", utils.ErrFilesystem, filepath.Dir(destPath), err)
	}

	file, err := os.Create(destPath)
	if err != nil {
		return 0, "", fmt.Errorf("%w: creating '%s': %w", utils.ErrFilesystem, destPath, err)
	}

	hash := sha256.New()
	written, copyErr := io.Copy(io.MultiWriter(file, hash), resp.Body)
	closeErr := file.Close()

	if copyErr != nil || closeErr != nil {
		os.Remove(destPath)
		if copyErr == nil {
			copyErr = closeErr
		}
		return 0, "", fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, destPath, copyErr)
	}
	if written == 0 {
		os.Remove(destPath)
		return 0, "", fmt.Errorf("%w: '%s'", utils.ErrEmptyBody, destPath)
	}
	return written, hex.EncodeToString(hash.Sum(nil)), nil
}

// backoffDelay computes the exponential backoff with +/- 10% jitter before
// retry number attempt+1
func (s *Scheduler) backoffDelay(attempt int) time.Duration {
	backoff := float64(s.cfg.InitialRetryDelay) * math.Pow(2, float64(attempt-1))
	delay := time.Duration(backoff)
	if delay <= 0 || delay > s.cfg.MaxRetryDelay {
		delay = s.cfg.MaxRetryDelay
	}
	var jitter time.Duration
	if jitterRange := int64(delay) / 5; jitterRange > 0 {
		jitter = time.Duration(rand.Int63n(jitterRange)) - (delay / 10)
	}
	if final := delay + jitter; final > 0 {
		return final
	}
	return 0
}

// skipOutcome marks a never-dispatched task terminal
func (s *Scheduler) skipOutcome(task *models.RetrievalTask, reason string) models.RetrievalOutcome {
	task.Status = models.StatusSkipped
	return s.finish(task, models.RetrievalOutcome{
		Task:   task,
		Status: models.StatusSkipped,
		Reason: reason,
	})
}

// finish records the outcome in the manifest (best effort) and returns it
func (s *Scheduler) finish(task *models.RetrievalTask, outcome models.RetrievalOutcome, sha ...string) models.RetrievalOutcome {
	if s.manifest == nil {
		return outcome
	}
	key := task.Link.URL
	if normalized, _, err := parse.ParseAndNormalize(task.Link.URL); err == nil {
		key = normalized
	}
	entry := &models.DocumentDBEntry{
		Status:      outcome.Status,
		Reason:      outcome.Reason,
		LocalPath:   task.DestPath,
		Bytes:       outcome.Bytes,
		Attempts:    outcome.Attempts,
		RunID:       s.runID,
		LastAttempt: time.Now(),
	}
	if len(sha) > 0 {
		entry.SHA256 = sha[0]
	}
	if err := s.manifest.UpdateDocument(key, entry); err != nil {
		s.log.Warnf("Failed to record manifest entry for '%s': %v", key, err)
	}
	return outcome
}
