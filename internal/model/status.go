package model

import "fmt"

const (
	DraftUploading = "uploading"
	DraftUploaded  = "uploaded"
	DraftFailed    = "failed"
	DraftCompleted = "completed"
	DraftAbandoned = "abandoned"
)

var allowedTransitions = map[string]map[string]bool{
	"": {
		DraftUploading: true,
	},
	DraftUploading: {
		DraftUploaded:  true,
		DraftFailed:    true,
		DraftAbandoned: true, // closed before the upload settled
	},
	DraftUploaded: {
		DraftCompleted: true,
		DraftAbandoned: true,
	},
	DraftFailed: {
		DraftAbandoned: true,
	},
	DraftAbandoned: {
		DraftFailed:    true,
		DraftAbandoned: true, // late result of an upload nobody waits for anymore
	},
	DraftCompleted: {
		DraftCompleted: true,
	},
}

func IsKnownDraftStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func TransitionDraft(rec *DraftRecord, toStatus string, lastError string) error {
	from := rec.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("invalid draft status transition: %q -> %q (session=%s product_id=%s)", from, toStatus, rec.Session, rec.ProductID)
	}
	rec.Status = toStatus
	rec.LastError = lastError
	return nil
}

// IsOrphaned reports drafts that exist server-side but never received their details.
func IsOrphaned(rec DraftRecord) bool {
	if rec.ProductID == "" {
		return false
	}
	return rec.Status == DraftUploaded || rec.Status == DraftAbandoned
}
