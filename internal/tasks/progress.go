package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	ReadFile Phase = iota
	LoadRecords
	MergeRecords
	WriteFile
	Complete
)

func (p Phase) String() string {
	switch p {
	case ReadFile:
		return "read_file"
	case LoadRecords:
		return "load_records"
	case MergeRecords:
		return "merge_records"
	case WriteFile:
		return "write_file"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

// SendProgress sends update without blocking. Updates are dropped when the channel is nil or full.
func SendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func ReadingFileUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadFile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reading %s...", path),
	}
}

func RowsSkippedUpdate(skipped int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadFile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Skipped %d malformed rows", skipped),
		Data:    skipped,
	}
}

func LoadingRecordsUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   LoadRecords,
		Step:    1,
		Total:   1,
		Message: "Loading existing records...",
	}
}

func MergeRecordUpdate(step, total int, id string, outcome string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeRecords,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s: %s", step, total, id, outcome),
	}
}

func WritingFileUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Writing %s...", step, total, path),
	}
}

func WriteCompletedUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, path),
	}
}

func WriteFailedUpdate(step, total int, path string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteFile,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, path, err),
	}
}

func CompletedUpdate(message string, data any) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: message,
		Data:    data,
	}
}
