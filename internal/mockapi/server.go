// Package mockapi serves an in-memory Programme API for local development and tests.
package mockapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"programme-studio/internal/programme"
)

const maxFormMemory = 32 << 20

type Options struct {
	// Token, when set, is required as a bearer token on every request.
	Token string
	// UploadDelay holds draft creation open, simulating a slow transfer.
	UploadDelay time.Duration
	// FailUploads makes draft creation answer 502 with this message.
	FailUploads string
	Logger      zerolog.Logger
	Now         func() time.Time
}

// DetailsCall records one accepted details update.
type DetailsCall struct {
	ProductID     string
	Description   string
	Categories    []string
	IsFeatured    bool
	IsPublished   bool
	ThumbnailName string
}

type Server struct {
	opts Options
	log  zerolog.Logger
	now  func() time.Time

	mu           sync.Mutex
	programmes   map[string]programme.Programme
	productIndex map[string]string
	drafts       int
	details      []DetailsCall
}

func New(opts Options) *Server {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Server{
		opts:         opts,
		log:          opts.Logger.With().Str("component", "mockapi").Logger(),
		now:          now,
		programmes:   make(map[string]programme.Programme),
		productIndex: make(map[string]string),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": "programme-mockapi"})
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/programmes", s.handleList)
		r.Post("/programmes", s.handleCreateDraft)
		r.Get("/programmes/stats", s.handleStats)
		r.Get("/programmes/{id}/edit", s.handleForEdit)
		r.Get("/programmes/{id}/secure", s.handleSecure)
		r.Delete("/programmes/{id}", s.handleDelete)
		r.Patch("/products/{productID}/details", s.handleDetails)
	})
	return r
}

// Seed inserts or replaces a programme.
func (s *Server) Seed(p programme.Programme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	s.programmes[p.ID] = p
	if p.ProductID != "" {
		s.productIndex[p.ProductID] = p.ID
	}
}

func (s *Server) Programme(id string) (programme.Programme, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.programmes[id]
	return p, ok
}

func (s *Server) DraftCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts
}

func (s *Server) DetailsCalls() []DetailsCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]DetailsCall(nil), s.details...)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]programme.Programme, 0, len(s.programmes))
	for _, p := range s.programmes {
		list = append(list, p)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	writeJSON(w, http.StatusOK, map[string]any{"programmes": list})
}

func (s *Server) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload form")
		return
	}
	defer cleanupForm(r.MultipartForm)

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}
	videoKey := strings.TrimSpace(r.FormValue("videoKey"))
	if videoKey == "" {
		file, header, err := r.FormFile("video")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Video file is required")
			return
		}
		_, _ = io.Copy(io.Discard, file)
		_ = file.Close()
		if !strings.HasPrefix(header.Header.Get("Content-Type"), "video/") {
			writeError(w, http.StatusBadRequest, "Only video files are allowed")
			return
		}
	}

	if s.opts.UploadDelay > 0 {
		select {
		case <-time.After(s.opts.UploadDelay):
		case <-r.Context().Done():
			return
		}
	}
	if s.opts.FailUploads != "" {
		writeError(w, http.StatusBadGateway, s.opts.FailUploads)
		return
	}

	now := s.now()
	id := uuid.NewString()
	p := programme.Programme{
		ID:            id,
		ProductID:     "prod_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Title:         title,
		MuxAssetID:    "asset_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		MuxPlaybackID: "play_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.mu.Lock()
	s.programmes[p.ID] = p
	s.productIndex[p.ProductID] = p.ID
	s.drafts++
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, programme.DraftResponse{
		Programme: programme.DraftProgramme{
			ID:            p.ID,
			ProductID:     p.ProductID,
			Title:         p.Title,
			MuxAssetID:    p.MuxAssetID,
			MuxPlaybackID: p.MuxPlaybackID,
		},
		Product: programme.Product{ID: p.ProductID},
	})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid details form")
		return
	}
	defer cleanupForm(r.MultipartForm)

	call := DetailsCall{
		ProductID:   productID,
		Description: r.FormValue("description"),
		Categories:  []string{},
	}
	if raw := strings.TrimSpace(r.FormValue("categories")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &call.Categories); err != nil {
			writeError(w, http.StatusBadRequest, "Categories must be a JSON array")
			return
		}
	}
	var err error
	if call.IsFeatured, err = parseFormBool(r.FormValue("isFeatured")); err != nil {
		writeError(w, http.StatusBadRequest, "isFeatured must be a boolean")
		return
	}
	if call.IsPublished, err = parseFormBool(r.FormValue("isPublished")); err != nil {
		writeError(w, http.StatusBadRequest, "isPublished must be a boolean")
		return
	}
	if file, header, ferr := r.FormFile("thumbnail"); ferr == nil {
		_ = file.Close()
		if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
			writeError(w, http.StatusBadRequest, "Only image files are allowed")
			return
		}
		call.ThumbnailName = header.Filename
	}

	s.mu.Lock()
	id, ok := s.productIndex[productID]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	p := s.programmes[id]
	p.Description = call.Description
	p.Categories = call.Categories
	p.IsFeatured = call.IsFeatured
	p.IsPublished = call.IsPublished
	if call.ThumbnailName != "" {
		p.ThumbnailURL = fmt.Sprintf("https://cdn.example.test/thumbnails/%s/%s", p.ID, call.ThumbnailName)
	}
	p.UpdatedAt = s.now()
	s.programmes[id] = p
	s.details = append(s.details, call)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"programme": p})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	var st programme.Stats
	for _, p := range s.programmes {
		st.TotalProgrammes++
		if p.IsPublished {
			st.PublishedProgrammes++
		} else {
			st.DraftProgrammes++
		}
		if p.IsFeatured {
			st.FeaturedProgrammes++
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleForEdit(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Programme(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Programme not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"programme": p})
}

func (s *Server) handleSecure(w http.ResponseWriter, r *http.Request) {
	p, ok := s.Programme(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Programme not found")
		return
	}
	if p.MuxPlaybackID == "" {
		writeError(w, http.StatusConflict, "Programme video is still processing")
		return
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	writeJSON(w, http.StatusOK, programme.SecureProgramme{
		Programme:     p,
		PlaybackURL:   fmt.Sprintf("https://stream.mux.com/%s.m3u8?token=%s", p.MuxPlaybackID, token),
		PlaybackToken: token,
		ExpiresAt:     s.now().Add(time.Hour),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	p, ok := s.programmes[id]
	if ok {
		delete(s.programmes, id)
		delete(s.productIndex, p.ProductID)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Programme not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.opts.Token {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func parseFormBool(raw string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}

func cleanupForm(f *multipart.Form) {
	if f != nil {
		_ = f.RemoveAll()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
