// Package journal keeps a local record of background uploads so drafts that
// were created remotely but never completed can be found later.
package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"programme-studio/internal/authoring"
	"programme-studio/internal/logging"
	"programme-studio/internal/model"
	"programme-studio/internal/store"
)

const (
	FileName          = "drafts.json"
	schemaVersion     = 1
	defaultLockWait   = 2 * time.Second
	maxLastErrorRunes = 300
)

type Journal struct {
	dir      string
	path     string
	lockWait time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func Open(stateDir string, log zerolog.Logger) (*Journal, error) {
	dir := strings.TrimSpace(stateDir)
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve state directory %s: %w", dir, err)
	}
	if err := store.Mkdir(abs); err != nil {
		return nil, err
	}
	return &Journal{
		dir:      abs,
		path:     filepath.Join(abs, FileName),
		lockWait: defaultLockWait,
		log:      logging.WithComponent(log, "journal"),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (j *Journal) Path() string {
	return j.path
}

// HandleEvent records workflow events. Failures are logged, never returned,
// so bookkeeping cannot break authoring.
func (j *Journal) HandleEvent(e authoring.Event) {
	var err error
	switch e.Kind {
	case authoring.EventUploadStarted:
		err = j.recordStarted(e)
	case authoring.EventUploadSettled:
		err = j.recordSettled(e)
	case authoring.EventDetailsSaved:
		err = j.recordSaved(e)
	case authoring.EventClosed:
		if !e.Saved {
			err = j.recordAbandoned(e)
		}
	}
	if err != nil {
		j.log.Warn().Err(err).Str(logging.FieldEvent, string(e.Kind)).Str(logging.FieldSession, e.Session).Msg("journal update failed")
	}
}

func (j *Journal) recordStarted(e authoring.Event) error {
	return j.update(func(doc *model.DraftJournal) error {
		rec := model.DraftRecord{
			UploadID:   e.UploadID,
			Session:    e.Session,
			Title:      e.Title,
			VideoName:  e.Video.Name,
			VideoBytes: e.Video.Size,
			StartedAt:  j.stamp(e.At),
		}
		if err := model.TransitionDraft(&rec, model.DraftUploading, ""); err != nil {
			return err
		}
		doc.Records = append(doc.Records, rec)
		return nil
	})
}

func (j *Journal) recordSettled(e authoring.Event) error {
	return j.update(func(doc *model.DraftJournal) error {
		rec := findRecord(doc, e.UploadID)
		if rec == nil {
			return fmt.Errorf("no journal record for upload %s", e.UploadID)
		}
		rec.SettledAt = j.stamp(e.At)
		// The save may be journaled first; the waiter wakes as soon as the upload resolves.
		if rec.Status == model.DraftCompleted {
			return nil
		}
		if e.Err != nil {
			return j.transition(rec, model.DraftFailed, truncate(authoring.UserMessage(e.Err)))
		}
		rec.ProgrammeID = e.Result.ProgrammeID
		rec.ProductID = e.Result.ProductID
		// A session closed before the upload finished stays abandoned.
		if rec.Status == model.DraftAbandoned {
			return j.transition(rec, model.DraftAbandoned, "")
		}
		return j.transition(rec, model.DraftUploaded, "")
	})
}

func (j *Journal) recordSaved(e authoring.Event) error {
	if e.UploadID == "" {
		return nil
	}
	return j.update(func(doc *model.DraftJournal) error {
		rec := findRecord(doc, e.UploadID)
		if rec == nil {
			return fmt.Errorf("no journal record for upload %s", e.UploadID)
		}
		if rec.Status == model.DraftUploading {
			rec.ProgrammeID = e.Result.ProgrammeID
			rec.ProductID = e.Result.ProductID
			if err := j.transition(rec, model.DraftUploaded, ""); err != nil {
				return err
			}
		}
		rec.CompletedAt = j.stamp(e.At)
		return j.transition(rec, model.DraftCompleted, "")
	})
}

func (j *Journal) recordAbandoned(e authoring.Event) error {
	return j.update(func(doc *model.DraftJournal) error {
		for i := range doc.Records {
			rec := &doc.Records[i]
			if rec.Session != e.Session {
				continue
			}
			if rec.Status != model.DraftUploading && rec.Status != model.DraftUploaded {
				continue
			}
			if err := j.transition(rec, model.DraftAbandoned, rec.LastError); err != nil {
				return err
			}
		}
		return nil
	})
}

func (j *Journal) transition(rec *model.DraftRecord, to, lastError string) error {
	from := rec.Status
	if err := model.TransitionDraft(rec, to, lastError); err != nil {
		return err
	}
	if from != to {
		j.log.Debug().
			Str("upload_id", rec.UploadID).
			Str(logging.FieldOldState, from).
			Str(logging.FieldNewState, to).
			Msg("draft status changed")
	}
	return nil
}

// List returns every record, newest first.
func (j *Journal) List() ([]model.DraftRecord, error) {
	doc, err := j.load()
	if err != nil {
		return nil, err
	}
	out := append([]model.DraftRecord(nil), doc.Records...)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].StartedAt > out[b].StartedAt
	})
	return out, nil
}

// Orphaned returns drafts that exist remotely but were never completed.
func (j *Journal) Orphaned() ([]model.DraftRecord, error) {
	all, err := j.List()
	if err != nil {
		return nil, err
	}
	out := make([]model.DraftRecord, 0, len(all))
	for _, rec := range all {
		if model.IsOrphaned(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Forget drops records whose programme no longer needs tracking, e.g. after deletion.
func (j *Journal) Forget(programmeID string) (int, error) {
	target := strings.TrimSpace(programmeID)
	if target == "" {
		return 0, fmt.Errorf("programme id is required")
	}
	removed := 0
	err := j.update(func(doc *model.DraftJournal) error {
		kept := doc.Records[:0]
		for _, rec := range doc.Records {
			if rec.ProgrammeID == target {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		doc.Records = kept
		return nil
	})
	return removed, err
}

func (j *Journal) update(fn func(doc *model.DraftJournal) error) error {
	lock, err := store.AcquireLockWait(j.dir, j.lockWait)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	doc, err := j.load()
	if err != nil {
		return err
	}
	if err := fn(&doc); err != nil {
		return err
	}
	doc.SchemaVersion = schemaVersion
	doc.UpdatedAt = j.now().Format(time.RFC3339)
	return store.WriteJSON(j.path, doc)
}

func (j *Journal) load() (model.DraftJournal, error) {
	var doc model.DraftJournal
	if err := store.ReadJSON(j.path, &doc); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.DraftJournal{SchemaVersion: schemaVersion, Records: []model.DraftRecord{}}, nil
		}
		return model.DraftJournal{}, err
	}
	if doc.SchemaVersion == 0 {
		doc.SchemaVersion = schemaVersion
	}
	if doc.SchemaVersion != schemaVersion {
		return model.DraftJournal{}, fmt.Errorf("unsupported draft journal schema_version %d in %s", doc.SchemaVersion, j.path)
	}
	if doc.Records == nil {
		doc.Records = []model.DraftRecord{}
	}
	for _, rec := range doc.Records {
		if !model.IsKnownDraftStatus(rec.Status) {
			return model.DraftJournal{}, fmt.Errorf("unknown draft status %q for upload %s in %s", rec.Status, rec.UploadID, j.path)
		}
	}
	return doc, nil
}

func (j *Journal) stamp(at time.Time) string {
	if at.IsZero() {
		at = j.now()
	}
	return at.UTC().Format(time.RFC3339)
}

func findRecord(doc *model.DraftJournal, uploadID string) *model.DraftRecord {
	for i := range doc.Records {
		if doc.Records[i].UploadID == uploadID {
			return &doc.Records[i]
		}
	}
	return nil
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLastErrorRunes {
		return s
	}
	return string(r[:maxLastErrorRunes-3]) + "..."
}
