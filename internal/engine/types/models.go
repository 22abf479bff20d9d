package types

import "fmt"

// StateKind enumerates the lifecycle phases of a download item
type StateKind int

const (
	StateWaiting StateKind = iota
	StateDownloading
	StateFinished
	StateFailed
)

func (k StateKind) String() string {
	switch k {
	case StateWaiting:
		return "waiting"
	case StateDownloading:
		return "downloading"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// DownloadState is the lifecycle state of a download item.
// Cause is only set when Kind is StateFailed.
type DownloadState struct {
	Kind  StateKind
	Cause error
}

// Waiting returns the initial state of a freshly created item
func Waiting() DownloadState { return DownloadState{Kind: StateWaiting} }

// Downloading returns the in-flight state
func Downloading() DownloadState { return DownloadState{Kind: StateDownloading} }

// Finished returns the successful terminal state
func Finished() DownloadState { return DownloadState{Kind: StateFinished} }

// Failed returns the failed terminal state carrying cause
func Failed(cause error) DownloadState { return DownloadState{Kind: StateFailed, Cause: cause} }

// IsTerminal reports whether no further transitions may leave this state
func (s DownloadState) IsTerminal() bool {
	return s.Kind == StateFinished || s.Kind == StateFailed
}

// Equal compares two states. Two failed states are equal when their causes
// render the same message.
func (s DownloadState) Equal(other DownloadState) bool {
	if s.Kind != other.Kind {
		return false
	}
	if s.Kind != StateFailed {
		return true
	}
	return errorMessage(s.Cause) == errorMessage(other.Cause)
}

// Message returns the rendered cause of a failed state, or "" otherwise
func (s DownloadState) Message() string {
	if s.Kind != StateFailed {
		return ""
	}
	return errorMessage(s.Cause)
}

func (s DownloadState) String() string {
	if s.Kind == StateFailed {
		return fmt.Sprintf("failed(%s)", errorMessage(s.Cause))
	}
	return s.Kind.String()
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// EventKind distinguishes the two kinds of DownloadStatus events
type EventKind int

const (
	EventProgress EventKind = iota
	EventFinished
)

// DownloadStatus is one event emitted on a download's event stream
type DownloadStatus struct {
	Kind     EventKind
	Fraction float64 // 0.0 ~ 1.0, set for EventProgress
	Location string  // absolute path of the placed file, set for EventFinished
}

// Progress builds a progress event
func Progress(fraction float64) DownloadStatus {
	return DownloadStatus{Kind: EventProgress, Fraction: fraction}
}

// Completed builds a finished event for the file placed at location
func Completed(location string) DownloadStatus {
	return DownloadStatus{Kind: EventFinished, Location: location}
}

func (e DownloadStatus) String() string {
	if e.Kind == EventFinished {
		return "finished(" + e.Location + ")"
	}
	return fmt.Sprintf("progress(%.3f)", e.Fraction)
}

// ItemStatus is a point-in-time copy of a download item for presentation
type ItemStatus struct {
	ID                string  `json:"id"`
	URL               string  `json:"url"`
	Progress          float64 `json:"progress"` // fraction 0-1
	Status            string  `json:"status"`   // "waiting", "downloading", "finished", "failed"
	Error             string  `json:"error,omitempty"`
	LocalFileLocation string  `json:"local_file_location,omitempty"`
	AddedAt           int64   `json:"added_at"` // Unix timestamp when added

	State DownloadState `json:"-"`
}

// DownloadEntry represents a finished or failed download in the history store
type DownloadEntry struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	DestPath    string  `json:"dest_path"`
	Filename    string  `json:"filename"`
	Status      string  `json:"status"` // "finished", "failed"
	Error       string  `json:"error,omitempty"`
	Progress    float64 `json:"progress"`
	CompletedAt int64   `json:"completed_at"` // Unix timestamp
	TimeTaken   int64   `json:"time_taken"`   // Duration in milliseconds
}
