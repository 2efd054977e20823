package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"programme-studio/internal/store"
)

type DoctorOptions struct {
	ConfigPath string
	// Probe calls the API once to check reachability and credentials.
	Probe  bool
	Logger zerolog.Logger
}

type DoctorResult struct {
	OK     bool          `json:"ok"`
	Checks []DoctorCheck `json:"checks"`
}

type DoctorCheck struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type InitWorkspaceOptions struct {
	ConfigPath string
	Logger     zerolog.Logger
}

type InitWorkspaceResult struct {
	ConfigPath      string       `json:"config_path"`
	StateDir        string       `json:"state_dir"`
	CreatedConfig   bool         `json:"created_config"`
	CreatedStateDir bool         `json:"created_state_dir"`
	DoctorResult    DoctorResult `json:"doctor"`
}

func Doctor(ctx context.Context, opts DoctorOptions) (DoctorResult, error) {
	configPath := NormalizePath(opts.ConfigPath)
	checks := make([]DoctorCheck, 0, 7)

	settings, err := Read(configPath)
	if err != nil {
		checks = append(checks, DoctorCheck{Name: "config", OK: false, Message: err.Error()})
		settings = DefaultSettings()
	} else if _, statErr := os.Stat(configPath); statErr != nil {
		checks = append(checks, DoctorCheck{Name: "config", OK: true, Message: configPath + " missing, using defaults (run init)"})
	} else {
		checks = append(checks, DoctorCheck{Name: "config", OK: true, Message: configPath})
	}

	checks = append(checks, writableCheck("directory:config", filepath.Dir(configPath)))
	checks = append(checks, writableCheck("directory:state", settings.StateDir))

	if err := Validate(settings); err != nil {
		checks = append(checks, DoctorCheck{Name: "settings", OK: false, Message: err.Error()})
	} else {
		checks = append(checks, DoctorCheck{Name: "settings", OK: true, Message: "valid"})
	}

	if _, ok := ResolveToken(settings); ok {
		checks = append(checks, DoctorCheck{Name: "api:token", OK: true, Message: settings.APITokenEnv + " is set"})
	} else {
		checks = append(checks, DoctorCheck{Name: "api:token", OK: false, Message: settings.APITokenEnv + " is not set (export it or add it to .env)"})
	}

	if settings.Staging.Mode == StagingModeS3 {
		msg := "s3://" + settings.Staging.Bucket + "/" + settings.Staging.Prefix
		checks = append(checks, DoctorCheck{Name: "staging", OK: strings.TrimSpace(settings.Staging.Bucket) != "", Message: msg})
	}

	if opts.Probe {
		checks = append(checks, probeAPI(ctx, settings, opts.Logger))
	}

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}
	return DoctorResult{OK: ok, Checks: checks}, nil
}

func InitWorkspace(ctx context.Context, opts InitWorkspaceOptions) (InitWorkspaceResult, error) {
	configPath := NormalizePath(opts.ConfigPath)
	f, createdConfig, err := Ensure(configPath)
	if err != nil {
		return InitWorkspaceResult{}, err
	}

	stateDir := f.Settings.StateDir
	createdStateDir := false
	if _, err := os.Stat(stateDir); os.IsNotExist(err) {
		createdStateDir = true
	}
	if err := store.Mkdir(stateDir); err != nil {
		return InitWorkspaceResult{}, err
	}

	doc, err := Doctor(ctx, DoctorOptions{ConfigPath: configPath, Logger: opts.Logger})
	if err != nil {
		return InitWorkspaceResult{}, err
	}
	return InitWorkspaceResult{
		ConfigPath:      configPath,
		StateDir:        stateDir,
		CreatedConfig:   createdConfig,
		CreatedStateDir: createdStateDir,
		DoctorResult:    doc,
	}, nil
}

func probeAPI(ctx context.Context, s Settings, log zerolog.Logger) DoctorCheck {
	client, err := NewAPIClient(s, log)
	if err != nil {
		return DoctorCheck{Name: "api:reachable", OK: false, Message: err.Error()}
	}
	stats, err := client.FetchProgrammeStats(ctx)
	if err != nil {
		return DoctorCheck{Name: "api:reachable", OK: false, Message: err.Error()}
	}
	return DoctorCheck{
		Name:    "api:reachable",
		OK:      true,
		Message: s.APIBaseURL + " answered (" + strconv.Itoa(stats.TotalProgrammes) + " programmes)",
	}
}

func writableCheck(name, dir string) DoctorCheck {
	if strings.TrimSpace(dir) == "" {
		return DoctorCheck{Name: name, OK: false, Message: "empty path"}
	}
	if err := store.WritableDir(dir); err != nil {
		return DoctorCheck{Name: name, OK: false, Message: err.Error()}
	}
	return DoctorCheck{Name: name, OK: true, Message: dir + " writable"}
}
