package programme

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const (
	OpCreateDraft   = "create programme draft"
	OpUpdateDetails = "update programme details"
	OpFetchList     = "fetch programmes"
	OpFetchForEdit  = "fetch programme for edit"
	OpFetchSecure   = "fetch secure programme"
	OpDelete        = "delete programme"
	OpFetchStats    = "fetch programme stats"
)

var fallbackMessages = map[string]string{
	OpCreateDraft:   "Failed to upload video",
	OpUpdateDetails: "Failed to update programme details",
	OpFetchList:     "Failed to fetch programmes",
	OpFetchForEdit:  "Failed to fetch programme",
	OpFetchSecure:   "Failed to load programme playback",
	OpDelete:        "Failed to delete programme",
	OpFetchStats:    "Failed to fetch programme stats",
}

var ErrNotFound = errors.New("programme not found")

// APIError is a non-2xx answer from the Programme API.
type APIError struct {
	Op        string
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no error message"
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, msg, e.Status)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == 404
}

// UserMessage is the API's own message when it sent one, otherwise the operation fallback.
func (e *APIError) UserMessage() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return FallbackMessage(e.Op)
}

func FallbackMessage(op string) string {
	if msg, ok := fallbackMessages[op]; ok {
		return msg
	}
	return "Request failed"
}

// extractMessage pulls a human message out of common JSON error shapes.
func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !gjson.ValidBytes(body) {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 || strings.HasPrefix(text, "<") {
			return ""
		}
		return text
	}
	for _, path := range []string{"message", "error.message", "error", "errors.0.message", "detail"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return strings.TrimSpace(v.Str)
		}
	}
	return ""
}
