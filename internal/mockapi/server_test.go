package mockapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"programme-studio/internal/programme"
)

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileField != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		h.Set("Content-Type", fileType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("payload"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCreateDraftThenUpdateDetails(t *testing.T) {
	srv := New(Options{})
	h := srv.Handler()

	body, ct := multipartBody(t, map[string]string{"title": "Morning Flow"}, "video", "flow.mp4", "video/mp4")
	req := httptest.NewRequest(http.MethodPost, "/programmes", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var draft programme.DraftResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &draft))
	require.NotEmpty(t, draft.ProductID())
	assert.Equal(t, "Morning Flow", draft.Programme.Title)
	assert.Equal(t, 1, srv.DraftCount())

	body, ct = multipartBody(t, map[string]string{
		"description": "Gentle stretches",
		"categories":  `["yoga","mobility"]`,
		"isFeatured":  "true",
		"isPublished": "false",
	}, "thumbnail", "thumb.png", "image/png")
	req = httptest.NewRequest(http.MethodPatch, "/products/"+draft.ProductID()+"/details", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	calls := srv.DetailsCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"yoga", "mobility"}, calls[0].Categories)
	assert.True(t, calls[0].IsFeatured)
	assert.Equal(t, "thumb.png", calls[0].ThumbnailName)

	p, ok := srv.Programme(draft.Programme.ID)
	require.True(t, ok)
	assert.Equal(t, "Gentle stretches", p.Description)
	assert.NotEmpty(t, p.ThumbnailURL)
}

func TestCreateDraftRejectsNonVideo(t *testing.T) {
	h := New(Options{}).Handler()
	body, ct := multipartBody(t, map[string]string{"title": "Notes"}, "video", "notes.txt", "text/plain")
	req := httptest.NewRequest(http.MethodPost, "/programmes", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Only video files are allowed"}`, rec.Body.String())
}

func TestCreateDraftFailureInjection(t *testing.T) {
	h := New(Options{FailUploads: "transcoder offline"}).Handler()
	body, ct := multipartBody(t, map[string]string{"title": "T"}, "video", "a.mp4", "video/mp4")
	req := httptest.NewRequest(http.MethodPost, "/programmes", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"message":"transcoder offline"}`, rec.Body.String())
}

func TestTokenRequired(t *testing.T) {
	h := New(Options{Token: "secret"}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/programmes", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/programmes", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsSecureAndDelete(t *testing.T) {
	srv := New(Options{})
	srv.Seed(programme.Programme{ID: "p1", ProductID: "prod1", Title: "A", IsPublished: true, IsFeatured: true, MuxPlaybackID: "play1"})
	srv.Seed(programme.Programme{ID: "p2", ProductID: "prod2", Title: "B"})
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/programmes/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var st programme.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, programme.Stats{TotalProgrammes: 2, PublishedProgrammes: 1, DraftProgrammes: 1, FeaturedProgrammes: 1}, st)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/programmes/p1/secure", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sec programme.SecureProgramme
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sec))
	assert.Contains(t, sec.PlaybackURL, "https://stream.mux.com/play1.m3u8?token=")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/programmes/p2/secure", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/programmes/p2", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/programmes/p2/edit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
