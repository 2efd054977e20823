// Package config manages the studio workspace file (config/studio.json).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"programme-studio/internal/store"
)

const (
	DefaultConfigPath = "config/studio.json"
	schemaVersion     = 1

	DefaultAPIBaseURL        = "http://localhost:8080"
	DefaultTokenEnv          = "PROGRAMME_API_TOKEN"
	DefaultTimeoutSeconds    = 30
	DefaultMaxVideoSizeMB    = 500
	DefaultStateDir          = "state"
	DefaultLogFile           = "state/studio.log"
	DefaultLogLevel          = "info"
	DefaultStagingPrefix     = "uploads"
	StagingModeOff           = "off"
	StagingModeS3            = "s3"
	maxCategoryNameRunes     = 40
	maxRequestTimeoutSeconds = 3600
)

var DefaultCategories = []string{"Breathwork", "Fitness", "Meditation", "Mindfulness", "Nutrition", "Sleep", "Yoga"}

var ErrUnknownSetting = errors.New("unknown setting")

type Staging struct {
	Mode     string `json:"mode"`
	Bucket   string `json:"bucket,omitempty"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Prefix   string `json:"prefix,omitempty"`
}

type Settings struct {
	APIBaseURL            string   `json:"api_base_url"`
	APITokenEnv           string   `json:"api_token_env"`
	RequestTimeoutSeconds int      `json:"request_timeout_seconds"`
	UploadLimitMBps       float64  `json:"upload_limit_mb_s"`
	MaxVideoSizeMB        int      `json:"max_video_size_mb"`
	Categories            []string `json:"categories"`
	StateDir              string   `json:"state_dir"`
	LogFile               string   `json:"log_file"`
	LogLevel              string   `json:"log_level"`
	Staging               Staging  `json:"staging"`
}

type File struct {
	SchemaVersion int      `json:"schema_version"`
	UpdatedAt     string   `json:"updated_at"`
	Settings      Settings `json:"settings"`
}

func (s Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

func (s Settings) MaxVideoBytes() int64 {
	return int64(s.MaxVideoSizeMB) * 1024 * 1024
}

func DefaultSettings() Settings {
	return Settings{
		APIBaseURL:            DefaultAPIBaseURL,
		APITokenEnv:           DefaultTokenEnv,
		RequestTimeoutSeconds: DefaultTimeoutSeconds,
		MaxVideoSizeMB:        DefaultMaxVideoSizeMB,
		Categories:            append([]string(nil), DefaultCategories...),
		StateDir:              DefaultStateDir,
		LogFile:               DefaultLogFile,
		LogLevel:              DefaultLogLevel,
		Staging:               Staging{Mode: StagingModeOff, Prefix: DefaultStagingPrefix},
	}
}

func NormalizePath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return DefaultConfigPath
	}
	return p
}

func normalizeSettings(raw Settings) Settings {
	norm := raw
	norm.APIBaseURL = strings.TrimRight(strings.TrimSpace(norm.APIBaseURL), "/")
	if norm.APIBaseURL == "" {
		norm.APIBaseURL = DefaultAPIBaseURL
	}
	norm.APITokenEnv = strings.TrimSpace(norm.APITokenEnv)
	if norm.APITokenEnv == "" {
		norm.APITokenEnv = DefaultTokenEnv
	}
	if norm.RequestTimeoutSeconds <= 0 || norm.RequestTimeoutSeconds > maxRequestTimeoutSeconds {
		norm.RequestTimeoutSeconds = DefaultTimeoutSeconds
	}
	if norm.UploadLimitMBps < 0 {
		norm.UploadLimitMBps = 0
	}
	if norm.MaxVideoSizeMB <= 0 {
		norm.MaxVideoSizeMB = DefaultMaxVideoSizeMB
	}
	norm.Categories = NormalizeCategories(norm.Categories)
	if raw.Categories == nil {
		norm.Categories = append([]string(nil), DefaultCategories...)
	}
	norm.StateDir = defaultIfEmpty(norm.StateDir, DefaultStateDir)
	norm.LogFile = defaultIfEmpty(norm.LogFile, DefaultLogFile)
	norm.LogLevel = strings.ToLower(defaultIfEmpty(norm.LogLevel, DefaultLogLevel))
	norm.Staging = normalizeStaging(norm.Staging)
	return norm
}

func normalizeStaging(raw Staging) Staging {
	norm := Staging{
		Mode:     strings.ToLower(strings.TrimSpace(raw.Mode)),
		Bucket:   strings.TrimSpace(raw.Bucket),
		Region:   strings.TrimSpace(raw.Region),
		Endpoint: strings.TrimRight(strings.TrimSpace(raw.Endpoint), "/"),
		Prefix:   strings.Trim(strings.TrimSpace(raw.Prefix), "/"),
	}
	if norm.Mode != StagingModeS3 {
		norm.Mode = StagingModeOff
	}
	if norm.Prefix == "" {
		norm.Prefix = DefaultStagingPrefix
	}
	return norm
}

// NormalizeCategories trims, drops empties and duplicates, and sorts.
func NormalizeCategories(raw []string) []string {
	out := lo.Uniq(lo.Filter(lo.Map(raw, func(c string, _ int) string {
		return strings.TrimSpace(c)
	}), func(c string, _ int) bool {
		return c != "" && len([]rune(c)) <= maxCategoryNameRunes
	}))
	sort.Strings(out)
	return out
}

// Ensure loads the config file, creating it with defaults when missing.
func Ensure(configPath string) (File, bool, error) {
	path := NormalizePath(configPath)
	f, err := load(path)
	if err == nil {
		return f, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return File{}, false, err
	}
	f = File{
		SchemaVersion: schemaVersion,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
		Settings:      DefaultSettings(),
	}
	if err := save(path, f); err != nil {
		return File{}, false, err
	}
	return f, true, nil
}

// Read returns the settings without creating the file.
func Read(configPath string) (Settings, error) {
	f, err := load(NormalizePath(configPath))
	if err == nil {
		return f.Settings, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return DefaultSettings(), nil
	}
	return Settings{}, err
}

func Update(configPath string, fn func(*Settings) error) (Settings, error) {
	path := NormalizePath(configPath)
	f, _, err := Ensure(path)
	if err != nil {
		return Settings{}, err
	}
	next := f.Settings
	next.Categories = slices.Clone(f.Settings.Categories)
	if err := fn(&next); err != nil {
		return Settings{}, err
	}
	if err := Validate(next); err != nil {
		return Settings{}, err
	}
	f.Settings = normalizeSettings(next)
	f.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := save(path, f); err != nil {
		return Settings{}, err
	}
	return f.Settings, nil
}

// Validate rejects values normalization would otherwise silently replace.
func Validate(s Settings) error {
	base := strings.TrimSpace(s.APIBaseURL)
	if base != "" {
		u, err := url.Parse(base)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("api_base_url must be an absolute http(s) URL, got %q", base)
		}
	}
	if s.RequestTimeoutSeconds < 0 || s.RequestTimeoutSeconds > maxRequestTimeoutSeconds {
		return fmt.Errorf("request_timeout_seconds must be between 0 and %d", maxRequestTimeoutSeconds)
	}
	if s.UploadLimitMBps < 0 {
		return fmt.Errorf("upload_limit_mb_s must be >= 0")
	}
	if s.MaxVideoSizeMB < 0 {
		return fmt.Errorf("max_video_size_mb must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(s.LogLevel)) {
	case "", "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("log_level must be one of trace, debug, info, warn, error, disabled")
	}
	mode := strings.ToLower(strings.TrimSpace(s.Staging.Mode))
	if mode != "" && mode != StagingModeOff && mode != StagingModeS3 {
		return fmt.Errorf("staging.mode must be %q or %q", StagingModeOff, StagingModeS3)
	}
	if mode == StagingModeS3 && strings.TrimSpace(s.Staging.Bucket) == "" {
		return fmt.Errorf("staging.bucket is required when staging.mode is %q", StagingModeS3)
	}
	return nil
}

// Keys lists the names accepted by Set, in display order.
func Keys() []string {
	return []string{
		"api_base_url",
		"api_token_env",
		"request_timeout_seconds",
		"upload_limit_mb_s",
		"max_video_size_mb",
		"state_dir",
		"log_file",
		"log_level",
		"staging.mode",
		"staging.bucket",
		"staging.region",
		"staging.endpoint",
		"staging.prefix",
	}
}

// Set assigns one setting from its string form.
func Set(s *Settings, key, value string) error {
	v := strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "api_base_url":
		s.APIBaseURL = v
	case "api_token_env":
		s.APITokenEnv = v
	case "request_timeout_seconds":
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("request_timeout_seconds: %w", err)
		}
		s.RequestTimeoutSeconds = n
	case "upload_limit_mb_s":
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("upload_limit_mb_s: %w", err)
		}
		s.UploadLimitMBps = n
	case "max_video_size_mb":
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("max_video_size_mb: %w", err)
		}
		s.MaxVideoSizeMB = n
	case "state_dir":
		s.StateDir = v
	case "log_file":
		s.LogFile = v
	case "log_level":
		s.LogLevel = v
	case "staging.mode":
		s.Staging.Mode = v
	case "staging.bucket":
		s.Staging.Bucket = v
	case "staging.region":
		s.Staging.Region = v
	case "staging.endpoint":
		s.Staging.Endpoint = v
	case "staging.prefix":
		s.Staging.Prefix = v
	default:
		return fmt.Errorf("%w %q (known: %s)", ErrUnknownSetting, key, strings.Join(Keys(), ", "))
	}
	return nil
}

// Get renders one setting as a string.
func Get(s Settings, key string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "api_base_url":
		return s.APIBaseURL, nil
	case "api_token_env":
		return s.APITokenEnv, nil
	case "request_timeout_seconds":
		return strconv.Itoa(s.RequestTimeoutSeconds), nil
	case "upload_limit_mb_s":
		return strconv.FormatFloat(s.UploadLimitMBps, 'f', -1, 64), nil
	case "max_video_size_mb":
		return strconv.Itoa(s.MaxVideoSizeMB), nil
	case "state_dir":
		return s.StateDir, nil
	case "log_file":
		return s.LogFile, nil
	case "log_level":
		return s.LogLevel, nil
	case "staging.mode":
		return s.Staging.Mode, nil
	case "staging.bucket":
		return s.Staging.Bucket, nil
	case "staging.region":
		return s.Staging.Region, nil
	case "staging.endpoint":
		return s.Staging.Endpoint, nil
	case "staging.prefix":
		return s.Staging.Prefix, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownSetting, key)
	}
}

func load(path string) (File, error) {
	var f File
	if err := store.ReadJSON(path, &f); err != nil {
		return File{}, err
	}
	if f.SchemaVersion == 0 {
		f.SchemaVersion = schemaVersion
	}
	if f.SchemaVersion != schemaVersion {
		return File{}, fmt.Errorf("unsupported config schema_version %d in %s", f.SchemaVersion, path)
	}
	f.Settings = normalizeSettings(f.Settings)
	return f, nil
}

func save(path string, f File) error {
	return store.WriteJSON(path, f)
}

func defaultIfEmpty(v, fallback string) string {
	if t := strings.TrimSpace(v); t != "" {
		return t
	}
	return fallback
}
