package model

// DraftJournal is the local record of every background upload started from this workspace.
type DraftJournal struct {
	SchemaVersion int           `json:"schema_version"`
	UpdatedAt     string        `json:"updated_at"`
	Records       []DraftRecord `json:"records"`
}

type DraftRecord struct {
	UploadID    string `json:"upload_id"`
	Session     string `json:"session"`
	Title       string `json:"title"`
	VideoName   string `json:"video_name"`
	VideoBytes  int64  `json:"video_bytes,omitempty"`
	ProgrammeID string `json:"programme_id,omitempty"`
	ProductID   string `json:"product_id,omitempty"`
	Status      string `json:"status"`
	LastError   string `json:"last_error,omitempty"`
	StartedAt   string `json:"started_at"`
	SettledAt   string `json:"settled_at,omitempty"`
	CompletedAt string `json:"completed_at,omitempty"`
}
