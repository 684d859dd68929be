package models

// TaskStatus represents the lifecycle state of a retrieval task
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"   // Task created, not yet dispatched
	StatusInFlight  TaskStatus = "in_flight" // Task currently being retrieved
	StatusSucceeded TaskStatus = "succeeded" // Document written to disk
	StatusFailed    TaskStatus = "failed"    // Retrieval gave up (reason recorded)
	StatusSkipped   TaskStatus = "skipped"   // No retrieval attempted (reason recorded)
)

// String implements fmt.Stringer for logging
func (s TaskStatus) String() string {
	if s == "" {
		return "unset"
	}
	return string(s)
}

// Terminal returns true if no further transition can occur from this status
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// Skip reasons recorded on a RetrievalOutcome with StatusSkipped.
// Failure reasons come from utils.CategorizeError instead.
const (
	ReasonAlreadyExists = "already_exists" // Destination file present with non-zero size
	ReasonCancelled     = "cancelled"      // Run cancelled before the task was dispatched
)
