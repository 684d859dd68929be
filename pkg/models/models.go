package models

import "time"

// DocumentLink is one document discovered on a listing page
type DocumentLink struct {
	Year     int    // Year the listing page was enumerated for
	Category string // Formatted category heading the link was found under
	URL      string // Absolute document URL
	Filename string // Suggested filename (cleaned, extension preserved)
}

// RetrievalTask is one unit of retrieval work. Created by the planner;
// mutated only by the scheduler, and never after a terminal status is set.
type RetrievalTask struct {
	Link     DocumentLink
	DestPath string // Planned destination: root/<year>/<category>/<filename>
	Attempts int    // Number of fetch attempts made
	Status   TaskStatus
}

// RetrievalOutcome is the terminal record of one task. Written once to the
// progress log and the manifest; never mutated afterwards.
type RetrievalOutcome struct {
	Task     *RetrievalTask
	Status   TaskStatus
	Reason   string        // Skip reason or error category; empty on success
	Bytes    int64         // Bytes written (success only)
	Elapsed  time.Duration // Wall time from dispatch to terminal state
	Attempts int
}

// DocumentDBEntry stores the terminal result of a document retrieval in the
// manifest database
type DocumentDBEntry struct {
	Status      TaskStatus `json:"status"`
	Reason      string     `json:"reason,omitempty"` // Error category or skip reason
	LocalPath   string     `json:"local_path,omitempty"`
	Bytes       int64      `json:"bytes,omitempty"`
	SHA256      string     `json:"sha256,omitempty"` // Content hash (on success)
	Attempts    int        `json:"attempts"`
	RunID       string     `json:"run_id"`
	LastAttempt time.Time  `json:"last_attempt"`
}

// RunSummary aggregates outcome counts for one run. Derived by the progress
// log at run end; not persisted incrementally.
type RunSummary struct {
	Succeeded      int
	Failed         int
	Skipped        int
	Warnings       int // Extraction drops and empty listing pages
	TotalBytes     int64
	Elapsed        time.Duration
	FailureReasons map[string]int // Failure count per error category
}
