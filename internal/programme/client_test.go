package programme_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"programme-studio/internal/media"
	"programme-studio/internal/mockapi"
	"programme-studio/internal/programme"
)

func newTestClient(t *testing.T, h http.Handler, token string) *programme.Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	c, err := programme.NewClient(programme.Options{BaseURL: ts.URL + "/", Token: token})
	require.NoError(t, err)
	return c
}

func videoFile(t *testing.T) media.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flow.mp4")
	data := append([]byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2"), make([]byte, 4096)...)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	f, err := media.Open(path)
	require.NoError(t, err)
	require.True(t, f.IsVideo(), "media type %q", f.MediaType)
	return f
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative", "ftp://host"} {
		_, err := programme.NewClient(programme.Options{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

func TestDraftAndDetailsRoundTrip(t *testing.T) {
	srv := mockapi.New(mockapi.Options{Token: "tok"})
	c := newTestClient(t, srv.Handler(), "tok")
	ctx := context.Background()

	video := videoFile(t)
	progress := media.NewProgress(video.Size)
	draft, err := c.CreateProgrammeDraft(ctx, programme.DraftRequest{Title: "Morning Flow", Video: video, Progress: progress})
	require.NoError(t, err)
	require.NotEmpty(t, draft.ProductID())
	assert.Equal(t, video.Size, progress.Snapshot().Done)

	err = c.UpdateProgrammeDetails(ctx, programme.DetailsUpdate{
		ProductID:   draft.ProductID(),
		Description: "Slow start",
		Categories:  []string{"yoga"},
		IsPublished: true,
	})
	require.NoError(t, err)

	got, err := c.FetchProgrammeForEdit(ctx, draft.Programme.ID)
	require.NoError(t, err)
	assert.Equal(t, "Slow start", got.Description)
	assert.Equal(t, []string{"yoga"}, got.Categories)
	assert.True(t, got.IsPublished)

	list, err := c.FetchProgrammes(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	stats, err := c.FetchProgrammeStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PublishedProgrammes)

	secure, err := c.FetchSecureProgrammeByID(ctx, draft.Programme.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, secure.PlaybackURL)

	require.NoError(t, c.DeleteProgramme(ctx, draft.Programme.ID))
	_, err = c.FetchProgrammeForEdit(ctx, draft.Programme.ID)
	assert.ErrorIs(t, err, programme.ErrNotFound)
}

func TestStagedKeyReplacesFilePart(t *testing.T) {
	srv := mockapi.New(mockapi.Options{})
	c := newTestClient(t, srv.Handler(), "")

	draft, err := c.CreateProgrammeDraft(context.Background(), programme.DraftRequest{Title: "Staged", StagedVideoKey: "uploads/abc/flow.mp4"})
	require.NoError(t, err)
	assert.NotEmpty(t, draft.ProductID())
}

func TestAPIErrorMessageSurfacesVerbatim(t *testing.T) {
	srv := mockapi.New(mockapi.Options{FailUploads: "Video codec not supported"})
	c := newTestClient(t, srv.Handler(), "")

	_, err := c.CreateProgrammeDraft(context.Background(), programme.DraftRequest{Title: "T", Video: videoFile(t)})
	var apiErr *programme.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Video codec not supported", apiErr.UserMessage())
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestAPIErrorFallbackAndShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "empty", body: "", want: "Failed to update programme details"},
		{name: "nested", body: `{"error":{"message":"Product locked"}}`, want: "Product locked"},
		{name: "string error", body: `{"error":"Bad categories"}`, want: "Bad categories"},
		{name: "errors array", body: `{"errors":[{"message":"Description too long"}]}`, want: "Description too long"},
		{name: "html", body: "<html>oops</html>", want: "Failed to update programme details"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(tc.body))
			})
			c := newTestClient(t, h, "")
			err := c.UpdateProgrammeDetails(context.Background(), programme.DetailsUpdate{ProductID: "prod1"})
			var apiErr *programme.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.want, apiErr.UserMessage())
		})
	}
}

func TestFetchProgrammesAcceptsBareArray(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"p1","productId":"prod1","title":"A","isFeatured":false,"isPublished":true}]`))
	})
	c := newTestClient(t, h, "")
	list, err := c.FetchProgrammes(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "prod1", list[0].ProductID)
}

func TestTransportErrorIsWrappedWithOperation(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	base := ts.URL
	ts.Close()

	c, err := programme.NewClient(programme.Options{BaseURL: base})
	require.NoError(t, err)
	_, err = c.FetchProgrammes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), programme.OpFetchList)
	var apiErr *programme.APIError
	assert.False(t, errors.As(err, &apiErr))
}
