package config

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"programme-studio/internal/logging"
	"programme-studio/internal/mockapi"
	"programme-studio/internal/programme"
	"programme-studio/internal/store"
)

func TestReadDefaultsWhenConfigMissing(t *testing.T) {
	s, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("read settings failed: %v", err)
	}
	if diff := cmp.Diff(DefaultSettings(), s); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if s.MaxVideoBytes() != 500*1024*1024 {
		t.Fatalf("max video bytes mismatch: got %d", s.MaxVideoBytes())
	}
}

func TestEnsureCreatesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "studio.json")
	_, created, err := Ensure(path)
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected config to be created")
	}
	_, created, err = Ensure(path)
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Fatal("second ensure must not recreate the config")
	}
}

func TestLoadNormalizesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.json")
	raw := File{
		SchemaVersion: 1,
		Settings: Settings{
			APIBaseURL:            " https://api.example.test/ ",
			RequestTimeoutSeconds: -4,
			UploadLimitMBps:       -1,
			Categories:            []string{" Yoga", "Sleep", "Yoga", ""},
			LogLevel:              "DEBUG",
			Staging:               Staging{Mode: "weird", Prefix: "/media/"},
		},
	}
	if err := store.WriteJSON(path, raw); err != nil {
		t.Fatal(err)
	}

	s, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.APIBaseURL != "https://api.example.test" {
		t.Fatalf("base URL mismatch: got %q", s.APIBaseURL)
	}
	if s.RequestTimeoutSeconds != DefaultTimeoutSeconds || s.UploadLimitMBps != 0 {
		t.Fatalf("numeric defaults not applied: %+v", s)
	}
	if diff := cmp.Diff([]string{"Sleep", "Yoga"}, s.Categories); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
	if s.LogLevel != "debug" || s.Staging.Mode != StagingModeOff || s.Staging.Prefix != "media" {
		t.Fatalf("unexpected normalization: %+v", s)
	}
}

func TestUpdateSetsAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.json")

	s, err := Update(path, func(s *Settings) error {
		if err := Set(s, "upload_limit_mb_s", "2.5"); err != nil {
			return err
		}
		return Set(s, "api_base_url", "https://programmes.example.test")
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if s.UploadLimitMBps != 2.5 || s.APIBaseURL != "https://programmes.example.test" {
		t.Fatalf("update not applied: %+v", s)
	}

	_, err = Update(path, func(s *Settings) error { return Set(s, "staging.mode", "s3") })
	if err == nil {
		t.Fatal("expected s3 staging without bucket to be rejected")
	}
	_, err = Update(path, func(s *Settings) error { return Set(s, "api_base_url", "ftp://nope") })
	if err == nil {
		t.Fatal("expected non-http base URL to be rejected")
	}
	_, err = Update(path, func(s *Settings) error { return Set(s, "colour", "blue") })
	if !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Staging.Mode != StagingModeOff {
		t.Fatalf("rejected update must not persist, got staging mode %q", got.Staging.Mode)
	}
}

func TestUpdateKeepsEmptyCategoryList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studio.json")
	if _, err := Update(path, func(s *Settings) error {
		s.Categories = []string{}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	s, err := Update(path, func(s *Settings) error { return Set(s, "log_level", "warn") })
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Categories) != 0 {
		t.Fatalf("cleared categories must stay cleared, got %v", s.Categories)
	}
}

func TestGetRoundTripsEveryKey(t *testing.T) {
	s := DefaultSettings()
	for _, key := range Keys() {
		v, err := Get(s, key)
		if err != nil {
			t.Fatalf("get %s: %v", key, err)
		}
		next := s
		if err := Set(&next, key, v); err != nil {
			t.Fatalf("set %s=%q: %v", key, v, err)
		}
		if diff := cmp.Diff(s, next); diff != "" {
			t.Fatalf("%s did not round trip (-want +got):\n%s", key, diff)
		}
	}
}

func TestResolveTokenAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("STUDIO_TEST_TOKEN=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STUDIO_TEST_TOKEN", "")
	os.Unsetenv("STUDIO_TEST_TOKEN")

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatal(err)
	}
	s := DefaultSettings()
	s.APITokenEnv = "STUDIO_TEST_TOKEN"
	token, ok := ResolveToken(s)
	if !ok || token != "from-dotenv" {
		t.Fatalf("token mismatch: got %q ok=%t", token, ok)
	}

	if err := LoadDotEnv(filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("missing .env must be ignored, got %v", err)
	}
}

func TestDotEnvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("STUDIO_TEST_TOKEN=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STUDIO_TEST_TOKEN", "from-shell")
	if err := LoadDotEnv(envPath); err != nil {
		t.Fatal(err)
	}
	s := DefaultSettings()
	s.APITokenEnv = "STUDIO_TEST_TOKEN"
	if token, _ := ResolveToken(s); token != "from-shell" {
		t.Fatalf("token mismatch: got %q want from-shell", token)
	}
}

func TestInitWorkspaceAndDoctorProbe(t *testing.T) {
	tmp := t.TempDir()
	srv := mockapi.New(mockapi.Options{Token: "tok"})
	srv.Seed(programme.Programme{ID: "p1", ProductID: "prod1", Title: "A"})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	configPath := filepath.Join(tmp, "config", "studio.json")
	stateDir := filepath.Join(tmp, "state")
	if _, err := Update(configPath, func(s *Settings) error {
		s.APIBaseURL = ts.URL
		s.StateDir = stateDir
		s.APITokenEnv = "STUDIO_DOCTOR_TOKEN"
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STUDIO_DOCTOR_TOKEN", "tok")

	res, err := InitWorkspace(context.Background(), InitWorkspaceOptions{ConfigPath: configPath, Logger: logging.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	if res.CreatedConfig || !res.CreatedStateDir {
		t.Fatalf("unexpected init result: %+v", res)
	}
	if !res.DoctorResult.OK {
		t.Fatalf("doctor should pass: %+v", res.DoctorResult.Checks)
	}

	doc, err := Doctor(context.Background(), DoctorOptions{ConfigPath: configPath, Probe: true, Logger: logging.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	last := doc.Checks[len(doc.Checks)-1]
	if last.Name != "api:reachable" || !last.OK {
		t.Fatalf("probe check failed: %+v", last)
	}

	t.Setenv("STUDIO_DOCTOR_TOKEN", "wrong")
	doc, err = Doctor(context.Background(), DoctorOptions{ConfigPath: configPath, Probe: true, Logger: logging.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	if doc.OK {
		t.Fatal("doctor must fail with a rejected token")
	}
}
