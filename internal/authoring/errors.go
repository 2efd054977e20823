package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"programme-studio/internal/media"
	"programme-studio/internal/programme"
)

var (
	ErrInvalidFileType   = errors.New("invalid file type")
	ErrValidation        = errors.New("validation failed")
	ErrUploadMissing     = errors.New("video upload missing")
	ErrSaveInProgress    = errors.New("details save in progress")
	ErrNotOpen           = errors.New("workflow is not open")
	ErrInvalidTransition = errors.New("invalid workflow transition")
)

// FileTypeError reports a selection whose media type does not match the slot.
type FileTypeError struct {
	Slot string
	File media.File
}

func (e *FileTypeError) Error() string {
	return fmt.Sprintf("%s: %s is %q, want %s/*", ErrInvalidFileType, e.File.Name, e.File.MediaType, e.Slot)
}

func (e *FileTypeError) Is(target error) bool {
	return target == ErrInvalidFileType
}

// RemoteError is any failure reported by the Programme API or its transport.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func newRemoteError(op string, err error) *RemoteError {
	return &RemoteError{Op: op, Message: remoteMessage(op, err), Err: err}
}

func remoteMessage(op string, err error) string {
	var apiErr *programme.APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			return msg
		}
	}
	return programme.FallbackMessage(op)
}

// UserMessage renders err as notification text.
func UserMessage(err error) string {
	var remote *RemoteError
	var fileType *FileTypeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &remote):
		return remote.Message
	case errors.As(err, &fileType):
		return fmt.Sprintf("Please select a valid %s file", fileType.Slot)
	case errors.Is(err, ErrValidation):
		return "Please provide a title and select a video file"
	case errors.Is(err, ErrUploadMissing):
		return "Video upload has not completed. Please go back and upload the video again"
	case errors.Is(err, ErrSaveInProgress):
		return "Programme details are still being saved"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Save interrupted before the upload finished"
	default:
		return err.Error()
	}
}
