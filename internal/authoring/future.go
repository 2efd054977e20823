package authoring

import (
	"context"
	"sync"

	"programme-studio/internal/media"
)

// uploadFuture is settled exactly once by the goroutine that runs the upload.
type uploadFuture struct {
	id       string
	title    string
	video    media.File
	progress *media.Progress

	once   sync.Once
	done   chan struct{}
	result UploadResult
	err    error
}

func newUploadFuture(id, title string, video media.File) *uploadFuture {
	return &uploadFuture{
		id:       id,
		title:    title,
		video:    video,
		progress: media.NewProgress(video.Size),
		done:     make(chan struct{}),
	}
}

func (f *uploadFuture) resolve(result UploadResult, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

type uploadOutcome struct {
	Result UploadResult
	Err    error
}

// wait blocks until the upload settles or ctx ends; the returned error is ctx's.
func (f *uploadFuture) wait(ctx context.Context) (uploadOutcome, error) {
	select {
	case <-f.done:
		return uploadOutcome{Result: f.result, Err: f.err}, nil
	case <-ctx.Done():
		return uploadOutcome{}, ctx.Err()
	}
}

func (f *uploadFuture) peek() (uploadOutcome, bool) {
	select {
	case <-f.done:
		return uploadOutcome{Result: f.result, Err: f.err}, true
	default:
		return uploadOutcome{}, false
	}
}

// reusableFor reports whether advancing with title and video can keep this upload.
func (f *uploadFuture) reusableFor(title string, video media.File) bool {
	if f == nil || f.title != title || !f.video.Same(video) {
		return false
	}
	out, settled := f.peek()
	return !settled || out.Err == nil
}
