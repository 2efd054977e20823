package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"programme-studio/internal/authoring"
	"programme-studio/internal/config"
	"programme-studio/internal/mockapi"
	"programme-studio/internal/model"
	"programme-studio/internal/programme"
)

var (
	mp4Header = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2avc1mp41")
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

const testTokenEnv = "STUDIO_CLI_TEST_TOKEN"

type testWorkspace struct {
	dir        string
	configPath string
	server     *mockapi.Server
	out        *bytes.Buffer
}

func newTestWorkspace(t *testing.T, opts mockapi.Options) *testWorkspace {
	t.Helper()
	dir := t.TempDir()
	opts.Token = "secret"
	srv := mockapi.New(opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	configPath := filepath.Join(dir, "config", "studio.json")
	if _, err := config.Update(configPath, func(s *config.Settings) error {
		s.APIBaseURL = ts.URL
		s.APITokenEnv = testTokenEnv
		s.StateDir = filepath.Join(dir, "state")
		s.LogFile = filepath.Join(dir, "state", "studio.log")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	t.Setenv(testTokenEnv, "secret")

	return &testWorkspace{dir: dir, configPath: configPath, server: srv, out: captureOutput(t)}
}

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevErr := stdout, stderr
	stdout, stderr = &buf, io.Discard
	t.Cleanup(func() { stdout, stderr = prevOut, prevErr })
	return &buf
}

func (w *testWorkspace) run(t *testing.T, args ...string) error {
	t.Helper()
	w.out.Reset()
	full := append([]string{args[0], "--config", w.configPath}, args[1:]...)
	return Run(full)
}

func (w *testWorkspace) file(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(w.dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func (w *testWorkspace) drafts(t *testing.T, extra ...string) []model.DraftRecord {
	t.Helper()
	args := append([]string{"drafts", "--json"}, extra...)
	if err := w.run(t, args...); err != nil {
		t.Fatalf("drafts failed: %v", err)
	}
	var out struct {
		Drafts []model.DraftRecord `json:"drafts"`
	}
	if err := json.Unmarshal(w.out.Bytes(), &out); err != nil {
		t.Fatalf("decode drafts output: %v\n%s", err, w.out.String())
	}
	return out.Drafts
}

func TestRunCreateShowAndDelete(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{})
	video := ws.file(t, "flow.mp4", mp4Header)
	thumb := ws.file(t, "flow.png", pngHeader)

	err := ws.run(t, "create",
		"--title", "Morning Flow",
		"--video", video,
		"--description", "Gentle stretches",
		"--category", "Yoga",
		"--category", "Mindfulness",
		"--thumbnail", thumb,
		"--published",
		"--json",
	)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	var result authoring.UploadResult
	if err := json.Unmarshal(ws.out.Bytes(), &result); err != nil {
		t.Fatalf("decode create output: %v\n%s", err, ws.out.String())
	}
	if result.ProgrammeID == "" || result.ProductID == "" {
		t.Fatalf("create returned empty ids: %+v", result)
	}

	p, ok := ws.server.Programme(result.ProgrammeID)
	if !ok {
		t.Fatalf("programme %s missing on server", result.ProgrammeID)
	}
	if p.Title != "Morning Flow" || p.Description != "Gentle stretches" || !p.IsPublished || p.IsFeatured {
		t.Fatalf("unexpected programme: %+v", p)
	}
	if got := strings.Join(p.Categories, ","); got != "Mindfulness,Yoga" {
		t.Fatalf("categories mismatch: got %q want %q", got, "Mindfulness,Yoga")
	}
	calls := ws.server.DetailsCalls()
	if len(calls) != 1 || calls[0].ThumbnailName != "flow.png" {
		t.Fatalf("unexpected details calls: %+v", calls)
	}

	recs := ws.drafts(t)
	if len(recs) != 1 || recs[0].Status != model.DraftCompleted || recs[0].ProgrammeID != result.ProgrammeID {
		t.Fatalf("unexpected journal: %+v", recs)
	}

	if err := ws.run(t, "show", "--id", result.ProgrammeID, "--secure"); err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(ws.out.String(), "playback_url: https://stream.mux.com/") {
		t.Fatalf("show output missing playback url:\n%s", ws.out.String())
	}

	if err := ws.run(t, "delete", "--id", result.ProgrammeID, "--yes"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := ws.server.Programme(result.ProgrammeID); ok {
		t.Fatal("programme still present after delete")
	}
	if recs := ws.drafts(t); len(recs) != 0 {
		t.Fatalf("delete should prune the journal, got %+v", recs)
	}
}

func TestRunCreateRejectsNonVideo(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{})
	notes := ws.file(t, "notes.txt", []byte("not a video"))

	err := ws.run(t, "create", "--title", "Morning Flow", "--video", notes)
	if !errors.Is(err, authoring.ErrInvalidFileType) {
		t.Fatalf("expected ErrInvalidFileType, got %v", err)
	}
	if !strings.Contains(ws.out.String(), "error: Please select a valid video file") {
		t.Fatalf("missing notification in output:\n%s", ws.out.String())
	}
	if n := ws.server.DraftCount(); n != 0 {
		t.Fatalf("no draft may be created, got %d", n)
	}
}

func TestRunCreateReportsFailedUpload(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{FailUploads: "transcoder offline"})
	video := ws.file(t, "flow.mp4", mp4Header)

	err := ws.run(t, "create", "--title", "Morning Flow", "--video", video)
	if !errors.Is(err, authoring.ErrUploadMissing) {
		t.Fatalf("expected ErrUploadMissing, got %v", err)
	}
	if n := len(ws.server.DetailsCalls()); n != 0 {
		t.Fatalf("details must not be sent without an upload, got %d calls", n)
	}

	recs := ws.drafts(t)
	if len(recs) != 1 || recs[0].Status != model.DraftFailed || recs[0].LastError == "" {
		t.Fatalf("expected one failed record, got %+v", recs)
	}
	if orphans := ws.drafts(t, "--orphaned"); len(orphans) != 0 {
		t.Fatalf("failed uploads are not orphans, got %+v", orphans)
	}
}

func TestRunEditNeverUploads(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{})
	ws.server.Seed(programme.Programme{ID: "p1", ProductID: "prod1", Title: "Evening", Categories: []string{"Sleep"}})

	if err := ws.run(t, "edit", "--id", "p1", "--description", "Wind down", "--featured"); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if n := ws.server.DraftCount(); n != 0 {
		t.Fatalf("edit must not create drafts, got %d", n)
	}
	calls := ws.server.DetailsCalls()
	if len(calls) != 1 {
		t.Fatalf("expected one details call, got %d", len(calls))
	}
	c := calls[0]
	if c.ProductID != "prod1" || c.Description != "Wind down" || !c.IsFeatured || c.IsPublished {
		t.Fatalf("unexpected details call: %+v", c)
	}
	if strings.Join(c.Categories, ",") != "Sleep" {
		t.Fatalf("existing categories must be kept, got %v", c.Categories)
	}
	if !strings.Contains(ws.out.String(), "ok: Programme updated successfully") {
		t.Fatalf("missing success notification:\n%s", ws.out.String())
	}
}

func TestRunListFiltersPublished(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{})
	ws.server.Seed(programme.Programme{ID: "p1", ProductID: "prod1", Title: "Live", IsPublished: true})
	ws.server.Seed(programme.Programme{ID: "p2", ProductID: "prod2", Title: "Hidden"})

	if err := ws.run(t, "list", "--published"); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	out := ws.out.String()
	if !strings.Contains(out, "p1") || strings.Contains(out, "p2") {
		t.Fatalf("unexpected list output:\n%s", out)
	}

	if err := ws.run(t, "stats", "--json"); err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	var stats programme.Stats
	if err := json.Unmarshal(ws.out.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalProgrammes != 2 || stats.PublishedProgrammes != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRunRejectsWrongToken(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{})
	t.Setenv(testTokenEnv, "wrong")

	err := ws.run(t, "list")
	var apiErr *programme.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 401 {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
}

func TestRunSettingsCategories(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{})

	if err := Run([]string{"settings", "categories", "add", "--config", ws.configPath, "--value", "Pilates"}); err != nil {
		t.Fatalf("add category failed: %v", err)
	}
	s, err := config.Read(ws.configPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.Join(s.Categories, ","), "Pilates") {
		t.Fatalf("category not added: %v", s.Categories)
	}

	if err := Run([]string{"settings", "categories", "remove", "--config", ws.configPath, "--value", "Pilates"}); err != nil {
		t.Fatalf("remove category failed: %v", err)
	}
	if err := Run([]string{"settings", "categories", "remove", "--config", ws.configPath, "--value", "Pilates"}); err == nil {
		t.Fatal("removing an unknown category must fail")
	}
}

func TestRunSettingsSet(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{})

	if err := Run([]string{"settings", "set", "--config", ws.configPath, "upload_limit_mb_s=3", "log_level=debug"}); err != nil {
		t.Fatalf("settings set failed: %v", err)
	}
	s, err := config.Read(ws.configPath)
	if err != nil {
		t.Fatal(err)
	}
	if s.UploadLimitMBps != 3 || s.LogLevel != "debug" {
		t.Fatalf("settings not applied: %+v", s)
	}

	err = Run([]string{"settings", "set", "--config", ws.configPath, "colour=blue"})
	if !errors.Is(err, config.ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
}

func TestRunInitAndDoctor(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{})

	if err := ws.run(t, "init"); err != nil {
		t.Fatalf("init failed: %v\n%s", err, ws.out.String())
	}
	if err := ws.run(t, "doctor", "--json"); err != nil {
		t.Fatalf("doctor failed: %v\n%s", err, ws.out.String())
	}
	var res config.DoctorResult
	if err := json.Unmarshal(ws.out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.OK {
		t.Fatalf("doctor should pass: %+v", res.Checks)
	}
}

func TestRunUnknownCommand(t *testing.T) {
	captureOutput(t)
	if err := Run([]string{"publish"}); err == nil {
		t.Fatal("expected unknown command error")
	}
}

func TestRunRequiresID(t *testing.T) {
	ws := newTestWorkspace(t, mockapi.Options{})
	for _, cmd := range []string{"show", "edit", "delete"} {
		if err := ws.run(t, cmd); err == nil || !strings.Contains(err.Error(), "--id is required") {
			t.Fatalf("%s: expected --id error, got %v", cmd, err)
		}
	}
}
