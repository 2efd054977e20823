package authoring

import "programme-studio/internal/media"

type UploadState int

const (
	UploadNone UploadState = iota
	UploadPending
	UploadSucceeded
	UploadFailed
)

func (s UploadState) String() string {
	switch s {
	case UploadPending:
		return "uploading"
	case UploadSucceeded:
		return "uploaded"
	case UploadFailed:
		return "failed"
	default:
		return "none"
	}
}

// Status is a point-in-time copy of the open session for rendering.
type Status struct {
	Open     bool
	Session  string
	Phase    Phase
	EditMode bool
	Saving   bool
	Draft    DraftState

	Upload       UploadState
	UploadResult UploadResult
	UploadError  string
	Progress     media.ProgressSnapshot
}

func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.sess
	if s == nil {
		return Status{Phase: PhaseIdle}
	}
	st := Status{
		Open:     true,
		Session:  s.id,
		Phase:    s.phase,
		EditMode: s.editMode,
		Saving:   s.saving,
		Draft:    s.draft.clone(),
	}
	switch {
	case s.existing != nil:
		st.Upload = UploadSucceeded
		st.UploadResult = *s.existing
	case s.upload != nil:
		st.Progress = s.upload.progress.Snapshot()
		out, settled := s.upload.peek()
		switch {
		case !settled:
			st.Upload = UploadPending
		case out.Err != nil:
			st.Upload = UploadFailed
			st.UploadError = UserMessage(out.Err)
		default:
			st.Upload = UploadSucceeded
			st.UploadResult = out.Result
		}
	}
	return st
}
