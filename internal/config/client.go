package config

import (
	"github.com/rs/zerolog"

	"programme-studio/internal/programme"
)

// NewAPIClient builds a Programme API client from the workspace settings.
func NewAPIClient(s Settings, log zerolog.Logger) (*programme.Client, error) {
	token, _ := ResolveToken(s)
	return programme.NewClient(programme.Options{
		BaseURL:         s.APIBaseURL,
		Token:           token,
		Timeout:         s.RequestTimeout(),
		UploadLimitMBps: s.UploadLimitMBps,
		Logger:          log,
	})
}
