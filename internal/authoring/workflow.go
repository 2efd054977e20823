// Package authoring drives the two-step programme wizard: a video step that
// starts a background draft upload, then a details step that persists
// metadata against the uploaded draft.
package authoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"programme-studio/internal/logging"
	"programme-studio/internal/media"
	"programme-studio/internal/notify"
	"programme-studio/internal/programme"
)

// API is the slice of the Programme API the workflow writes through.
type API interface {
	CreateProgrammeDraft(ctx context.Context, req programme.DraftRequest) (programme.DraftResponse, error)
	UpdateProgrammeDetails(ctx context.Context, upd programme.DetailsUpdate) error
}

// Stager moves a video into object storage and returns the key the API should use.
type Stager interface {
	Stage(ctx context.Context, video media.File, progress *media.Progress) (string, error)
}

type DraftState struct {
	Title       string
	Description string
	Video       *media.File
	Categories  []string
	Thumbnail   *media.File
	IsFeatured  bool
	IsPublished bool
}

func (d DraftState) clone() DraftState {
	out := d
	out.Categories = append([]string(nil), d.Categories...)
	if d.Video != nil {
		v := *d.Video
		out.Video = &v
	}
	if d.Thumbnail != nil {
		t := *d.Thumbnail
		out.Thumbnail = &t
	}
	return out
}

type UploadResult struct {
	ProgrammeID   string `json:"programme_id"`
	ProductID     string `json:"product_id"`
	MuxAssetID    string `json:"mux_asset_id,omitempty"`
	MuxPlaybackID string `json:"mux_playback_id,omitempty"`
}

type Options struct {
	API      API
	Notifier notify.Notifier
	Sink     EventSink
	// Stager, when set, stages the video before the draft is created.
	Stager Stager
	Logger zerolog.Logger
	// BaseContext parents background uploads; it is never derived from a caller's context.
	BaseContext context.Context
	// MaxVideoBytes triggers an advisory notice; 0 means media.SoftMaxVideoBytes.
	MaxVideoBytes int64
	// OnComplete runs after details were saved and the session closed.
	OnComplete func(UploadResult)
	Now        func() time.Time
}

type Workflow struct {
	api        API
	notifier   notify.Notifier
	sink       EventSink
	stager     Stager
	log        zerolog.Logger
	base       context.Context
	maxVideo   int64
	onComplete func(UploadResult)
	now        func() time.Time

	mu      sync.Mutex
	sess    *session
	uploads sync.WaitGroup
}

type session struct {
	id       string
	editMode bool
	phase    Phase
	draft    DraftState
	upload   *uploadFuture
	// edit sessions carry the identifiers of the existing programme.
	existing *UploadResult
	saving   bool
}

func New(opts Options) (*Workflow, error) {
	if opts.API == nil {
		return nil, fmt.Errorf("authoring: programme API is required")
	}
	w := &Workflow{
		api:        opts.API,
		notifier:   opts.Notifier,
		sink:       opts.Sink,
		stager:     opts.Stager,
		log:        logging.WithComponent(opts.Logger, "authoring"),
		base:       opts.BaseContext,
		maxVideo:   opts.MaxVideoBytes,
		onComplete: opts.OnComplete,
		now:        opts.Now,
	}
	if w.notifier == nil {
		w.notifier = notify.Discard{}
	}
	if w.sink == nil {
		w.sink = discardSink{}
	}
	if w.base == nil {
		w.base = context.Background()
	}
	if w.now == nil {
		w.now = func() time.Time { return time.Now().UTC() }
	}
	return w, nil
}

// Open starts a fresh session. A non-nil edit target skips the video step
// and reuses the programme's identifiers instead of uploading.
func (w *Workflow) Open(edit *programme.Programme) error {
	s := &session{id: uuid.NewString(), phase: PhaseCollectingVideo}
	if edit != nil {
		if strings.TrimSpace(edit.ProductID) == "" {
			return fmt.Errorf("%w: programme %s has no product id", ErrValidation, edit.ID)
		}
		s.editMode = true
		s.phase = PhaseCollectingDetails
		s.existing = &UploadResult{
			ProgrammeID:   edit.ID,
			ProductID:     edit.ProductID,
			MuxAssetID:    edit.MuxAssetID,
			MuxPlaybackID: edit.MuxPlaybackID,
		}
		s.draft = DraftState{
			Title:       edit.Title,
			Description: edit.Description,
			Categories:  normalizeCategories(edit.Categories),
			IsFeatured:  edit.IsFeatured,
			IsPublished: edit.IsPublished,
		}
	}

	w.mu.Lock()
	prev := w.sess
	if prev != nil && prev.saving {
		w.mu.Unlock()
		return ErrSaveInProgress
	}
	w.sess = s
	w.mu.Unlock()

	if prev != nil {
		w.emit(Event{Kind: EventClosed, Session: prev.id, Current: true})
	}
	w.log.Debug().Str(logging.FieldSession, s.id).Bool("edit", s.editMode).Msg("workflow opened")
	return nil
}

func (w *Workflow) SelectVideo(f media.File) error {
	return w.mutate(func(s *session) error {
		if s.phase != PhaseCollectingVideo || s.editMode {
			return fmt.Errorf("%w: video can only be chosen on the video step", ErrInvalidTransition)
		}
		if !f.IsVideo() {
			err := &FileTypeError{Slot: "video", File: f}
			w.notifier.Error(UserMessage(err))
			return err
		}
		s.draft.Video = &f
		if f.ExceedsSoftLimit(w.maxVideo) {
			w.notifier.Info(fmt.Sprintf("%s is %s; uploads above %s may take a long time", f.Name, media.FormatBytes(f.Size), media.FormatBytes(w.softLimit())), "⚠")
		}
		return nil
	})
}

func (w *Workflow) SelectThumbnail(f media.File) error {
	return w.mutate(func(s *session) error {
		if !f.IsImage() {
			err := &FileTypeError{Slot: "image", File: f}
			w.notifier.Error(UserMessage(err))
			return err
		}
		s.draft.Thumbnail = &f
		return nil
	})
}

func (w *Workflow) ClearThumbnail() error {
	return w.mutate(func(s *session) error {
		s.draft.Thumbnail = nil
		return nil
	})
}

func (w *Workflow) SetTitle(title string) error {
	return w.mutate(func(s *session) error {
		s.draft.Title = title
		return nil
	})
}

func (w *Workflow) SetDescription(description string) error {
	return w.mutate(func(s *session) error {
		s.draft.Description = description
		return nil
	})
}

func (w *Workflow) SetCategories(categories []string) error {
	return w.mutate(func(s *session) error {
		s.draft.Categories = normalizeCategories(categories)
		return nil
	})
}

func (w *Workflow) ToggleCategory(category string) error {
	c := strings.TrimSpace(category)
	if c == "" {
		return nil
	}
	return w.mutate(func(s *session) error {
		if lo.Contains(s.draft.Categories, c) {
			s.draft.Categories = lo.Without(s.draft.Categories, c)
			return nil
		}
		s.draft.Categories = normalizeCategories(append(s.draft.Categories, c))
		return nil
	})
}

func (w *Workflow) SetFeatured(v bool) error {
	return w.mutate(func(s *session) error {
		s.draft.IsFeatured = v
		return nil
	})
}

func (w *Workflow) SetPublished(v bool) error {
	return w.mutate(func(s *session) error {
		s.draft.IsPublished = v
		return nil
	})
}

// Advance leaves the video step, starting the background upload without
// waiting for it. On the details step it submits.
func (w *Workflow) Advance(ctx context.Context) error {
	w.mu.Lock()
	s := w.sess
	if s == nil {
		w.mu.Unlock()
		return ErrNotOpen
	}
	if s.saving {
		w.mu.Unlock()
		return ErrSaveInProgress
	}
	if s.editMode || s.phase == PhaseCollectingDetails {
		w.mu.Unlock()
		return w.SubmitDetails(ctx)
	}

	title := strings.TrimSpace(s.draft.Title)
	if title == "" || s.draft.Video == nil {
		w.mu.Unlock()
		err := fmt.Errorf("%w: title and video are required", ErrValidation)
		w.notifier.Error(UserMessage(err))
		return err
	}
	video := *s.draft.Video

	var started *uploadFuture
	if !s.upload.reusableFor(title, video) {
		started = newUploadFuture(uuid.NewString(), title, video)
		s.upload = started
	}
	if err := transition(s, PhaseCollectingDetails); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	if started == nil {
		w.log.Debug().Str(logging.FieldSession, s.id).Msg("reusing background upload")
		return nil
	}
	w.emit(Event{Kind: EventUploadStarted, Session: s.id, Current: true, UploadID: started.id, Title: title, Video: video})
	w.notifier.Info(fmt.Sprintf("Uploading %s in the background", video.Name), "⏳")
	w.uploads.Add(1)
	go func() {
		defer w.uploads.Done()
		w.runUpload(s, started)
	}()
	return nil
}

// Wait blocks until every background upload started so far has settled and
// its events were delivered.
func (w *Workflow) Wait() {
	w.uploads.Wait()
}

func (w *Workflow) GoBack() error {
	return w.mutate(func(s *session) error {
		return transition(s, PhaseCollectingVideo)
	})
}

func (w *Workflow) runUpload(s *session, f *uploadFuture) {
	log := w.log.With().Str(logging.FieldSession, s.id).Str("upload_id", f.id).Logger()
	ctx := w.base
	start := time.Now()

	req := programme.DraftRequest{Title: f.title, Video: f.video, Progress: f.progress}
	var err error
	if w.stager != nil {
		req.StagedVideoKey, err = w.stager.Stage(ctx, f.video, f.progress)
		req.Progress = nil
	}
	var result UploadResult
	if err == nil {
		var resp programme.DraftResponse
		resp, err = w.api.CreateProgrammeDraft(ctx, req)
		if err == nil {
			result = UploadResult{
				ProgrammeID:   resp.Programme.ID,
				ProductID:     resp.ProductID(),
				MuxAssetID:    resp.Programme.MuxAssetID,
				MuxPlaybackID: resp.Programme.MuxPlaybackID,
			}
		}
	}
	if err != nil {
		err = newRemoteError(programme.OpCreateDraft, err)
	}
	f.resolve(result, err)

	w.mu.Lock()
	current := w.sess == s && s.upload == f
	w.mu.Unlock()

	w.emit(Event{Kind: EventUploadSettled, Session: s.id, Current: current, UploadID: f.id, Title: f.title, Video: f.video, Result: result, Err: err})
	if err != nil {
		log.Warn().Err(err).Dur("duration", time.Since(start)).Bool("current", current).Msg("background upload failed")
	} else {
		log.Info().Str(logging.FieldProductID, result.ProductID).Dur("duration", time.Since(start)).Bool("current", current).Msg("background upload finished")
	}
	if !current {
		return
	}
	if err != nil {
		w.notifier.Error(UserMessage(err))
		return
	}
	w.notifier.Success("Video uploaded successfully")
}

// SubmitDetails persists the details step. It waits for an in-flight upload
// to settle and gives up with ErrUploadMissing when none succeeded.
func (w *Workflow) SubmitDetails(ctx context.Context) error {
	w.mu.Lock()
	s := w.sess
	if s == nil {
		w.mu.Unlock()
		return ErrNotOpen
	}
	if s.saving {
		w.mu.Unlock()
		return ErrSaveInProgress
	}
	if !s.editMode && s.phase != PhaseCollectingDetails {
		w.mu.Unlock()
		return fmt.Errorf("%w: details are submitted from the details step", ErrInvalidTransition)
	}
	s.saving = true
	fut := s.upload
	var result *UploadResult
	if s.existing != nil {
		r := *s.existing
		result = &r
	}
	w.mu.Unlock()

	log := w.log.With().Str(logging.FieldSession, s.id).Logger()

	if result == nil && fut != nil {
		if _, settled := fut.peek(); !settled {
			log.Debug().Str("upload_id", fut.id).Msg("waiting for background upload")
		}
		out, err := fut.wait(ctx)
		if err != nil {
			w.finishSaving(s)
			return err
		}
		if out.Err == nil {
			result = &out.Result
		}
	}
	if result == nil || strings.TrimSpace(result.ProductID) == "" {
		w.finishSaving(s)
		err := ErrUploadMissing
		w.notifier.Error(UserMessage(err))
		return err
	}

	w.mu.Lock()
	draft := s.draft.clone()
	w.mu.Unlock()

	upd := programme.DetailsUpdate{
		ProductID:   result.ProductID,
		Description: draft.Description,
		Categories:  draft.Categories,
		IsFeatured:  draft.IsFeatured,
		IsPublished: draft.IsPublished,
		Thumbnail:   draft.Thumbnail,
	}
	if err := w.api.UpdateProgrammeDetails(ctx, upd); err != nil {
		w.finishSaving(s)
		remote := newRemoteError(programme.OpUpdateDetails, err)
		log.Warn().Err(err).Str(logging.FieldProductID, result.ProductID).Msg("details update failed")
		w.notifier.Error(UserMessage(remote))
		return remote
	}

	w.mu.Lock()
	current := w.sess == s
	if current {
		w.sess = nil
	}
	s.saving = false
	w.mu.Unlock()

	uploadID := ""
	if fut != nil {
		uploadID = fut.id
	}
	w.emit(Event{Kind: EventDetailsSaved, Session: s.id, Current: current, UploadID: uploadID, Title: draft.Title, Result: *result})
	w.emit(Event{Kind: EventClosed, Session: s.id, Current: current, Saved: true})
	log.Info().Str(logging.FieldProductID, result.ProductID).Bool("edit", s.editMode).Msg("programme details saved")

	if s.editMode {
		w.notifier.Success("Programme updated successfully")
	} else {
		w.notifier.Success("Programme created successfully")
	}
	if w.onComplete != nil {
		w.onComplete(*result)
	}
	return nil
}

// Close discards the session. An in-flight upload keeps running; its result is ignored.
func (w *Workflow) Close() error {
	w.mu.Lock()
	s := w.sess
	if s == nil {
		w.mu.Unlock()
		return nil
	}
	if s.saving {
		w.mu.Unlock()
		return ErrSaveInProgress
	}
	w.sess = nil
	w.mu.Unlock()

	w.emit(Event{Kind: EventClosed, Session: s.id, Current: true})
	w.log.Debug().Str(logging.FieldSession, s.id).Msg("workflow closed")
	return nil
}

func (w *Workflow) finishSaving(s *session) {
	w.mu.Lock()
	s.saving = false
	w.mu.Unlock()
}

func (w *Workflow) mutate(fn func(s *session) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sess == nil {
		return ErrNotOpen
	}
	if w.sess.saving {
		return ErrSaveInProgress
	}
	return fn(w.sess)
}

func (w *Workflow) emit(e Event) {
	if e.At.IsZero() {
		e.At = w.now()
	}
	w.sink.HandleEvent(e)
}

func (w *Workflow) softLimit() int64 {
	if w.maxVideo > 0 {
		return w.maxVideo
	}
	return media.SoftMaxVideoBytes
}

func normalizeCategories(in []string) []string {
	out := lo.Uniq(lo.Compact(lo.Map(in, func(c string, _ int) string {
		return strings.TrimSpace(c)
	})))
	sort.Strings(out)
	return out
}
