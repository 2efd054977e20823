package programme

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"programme-studio/internal/media"
)

const (
	DefaultTimeout   = 30 * time.Second
	maxResponseBytes = 4 << 20
)

type Options struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	// Timeout bounds JSON requests; multipart uploads are bounded only by HTTPClient.
	Timeout         time.Duration
	UploadLimitMBps float64
	Logger          zerolog.Logger
}

type Client struct {
	baseURL     string
	token       string
	http        *http.Client
	timeout     time.Duration
	uploadLimit float64
	log         zerolog.Logger
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api base URL %q must be an absolute http(s) URL", base)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base URL %q must use http or https", base)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:     base,
		token:       strings.TrimSpace(opts.Token),
		http:        httpClient,
		timeout:     timeout,
		uploadLimit: opts.UploadLimitMBps,
		log:         opts.Logger.With().Str("component", "programme-api").Logger(),
	}, nil
}

func (c *Client) CreateProgrammeDraft(ctx context.Context, req DraftRequest) (DraftResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return DraftResponse{}, fmt.Errorf("%s: title is required", OpCreateDraft)
	}
	stagedKey := strings.TrimSpace(req.StagedVideoKey)
	if stagedKey == "" && req.Video.IsZero() {
		return DraftResponse{}, fmt.Errorf("%s: video file is required", OpCreateDraft)
	}

	body, contentType := streamMultipart(func(mw *multipart.Writer) error {
		if err := mw.WriteField("title", title); err != nil {
			return err
		}
		if stagedKey != "" {
			return mw.WriteField("videoKey", stagedKey)
		}
		return c.writeFilePart(ctx, mw, "video", req.Video, req.Progress)
	})
	defer body.Close()

	var out DraftResponse
	if err := c.do(ctx, OpCreateDraft, http.MethodPost, "/programmes", body, contentType, &out); err != nil {
		return DraftResponse{}, err
	}
	if out.ProductID() == "" {
		return DraftResponse{}, fmt.Errorf("%s: response has no product id", OpCreateDraft)
	}
	return out, nil
}

func (c *Client) UpdateProgrammeDetails(ctx context.Context, upd DetailsUpdate) error {
	productID := strings.TrimSpace(upd.ProductID)
	if productID == "" {
		return fmt.Errorf("%s: product id is required", OpUpdateDetails)
	}
	categories := upd.Categories
	if categories == nil {
		categories = []string{}
	}
	categoriesJSON, err := json.Marshal(categories)
	if err != nil {
		return fmt.Errorf("%s: encode categories: %w", OpUpdateDetails, err)
	}

	body, contentType := streamMultipart(func(mw *multipart.Writer) error {
		fields := [][2]string{
			{"description", upd.Description},
			{"categories", string(categoriesJSON)},
			{"isFeatured", strconv.FormatBool(upd.IsFeatured)},
			{"isPublished", strconv.FormatBool(upd.IsPublished)},
		}
		for _, f := range fields {
			if err := mw.WriteField(f[0], f[1]); err != nil {
				return err
			}
		}
		if upd.Thumbnail != nil && !upd.Thumbnail.IsZero() {
			return c.writeFilePart(ctx, mw, "thumbnail", *upd.Thumbnail, nil)
		}
		return nil
	})
	defer body.Close()

	return c.do(ctx, OpUpdateDetails, http.MethodPatch, "/products/"+url.PathEscape(productID)+"/details", body, contentType, nil)
}

func (c *Client) FetchProgrammes(ctx context.Context) ([]Programme, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var raw json.RawMessage
	if err := c.do(ctx, OpFetchList, http.MethodGet, "/programmes", nil, "", &raw); err != nil {
		return nil, err
	}
	list := []Programme{}
	payload := unwrap(raw, "programmes", "data")
	if len(bytes.TrimSpace(payload)) == 0 || string(bytes.TrimSpace(payload)) == "null" {
		return list, nil
	}
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", OpFetchList, err)
	}
	return list, nil
}

func (c *Client) FetchProgrammeForEdit(ctx context.Context, id string) (Programme, error) {
	var p Programme
	if err := c.getInto(ctx, OpFetchForEdit, "/programmes/"+url.PathEscape(strings.TrimSpace(id))+"/edit", id, &p, "programme", "data"); err != nil {
		return Programme{}, err
	}
	return p, nil
}

func (c *Client) FetchSecureProgrammeByID(ctx context.Context, id string) (SecureProgramme, error) {
	var p SecureProgramme
	if err := c.getInto(ctx, OpFetchSecure, "/programmes/"+url.PathEscape(strings.TrimSpace(id))+"/secure", id, &p, "data"); err != nil {
		return SecureProgramme{}, err
	}
	return p, nil
}

func (c *Client) DeleteProgramme(ctx context.Context, id string) error {
	target := strings.TrimSpace(id)
	if target == "" {
		return fmt.Errorf("%s: programme id is required", OpDelete)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.do(ctx, OpDelete, http.MethodDelete, "/programmes/"+url.PathEscape(target), nil, "", nil)
}

func (c *Client) FetchProgrammeStats(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var raw json.RawMessage
	if err := c.do(ctx, OpFetchStats, http.MethodGet, "/programmes/stats", nil, "", &raw); err != nil {
		return Stats{}, err
	}
	var s Stats
	if err := json.Unmarshal(unwrap(raw, "stats", "data"), &s); err != nil {
		return Stats{}, fmt.Errorf("%s: decode response: %w", OpFetchStats, err)
	}
	return s, nil
}

func (c *Client) getInto(ctx context.Context, op, path, id string, out any, envelopes ...string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: programme id is required", op)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var raw json.RawMessage
	if err := c.do(ctx, op, http.MethodGet, path, nil, "", &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(unwrap(raw, envelopes...), out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) error {
	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log := c.log.With().Str("request_id", requestID).Str("method", method).Str("path", path).Logger()
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Dur("duration", time.Since(start)).Msg("request failed")
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", op, err)
	}
	log.Debug().Int("status", resp.StatusCode).Dur("duration", time.Since(start)).Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Op:        op,
			Status:    resp.StatusCode,
			Message:   extractMessage(data),
			RequestID: requestID,
		}
		log.Warn().Int("status", resp.StatusCode).Str("message", apiErr.Message).Msg("api error")
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) writeFilePart(ctx context.Context, mw *multipart.Writer, field string, f media.File, progress *media.Progress) error {
	src, err := f.Reader()
	if err != nil {
		return err
	}
	defer src.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(f.Name)))
	mediaType := f.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	h.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}

	var r io.Reader = src
	if progress != nil {
		r = media.NewProgressReader(r, progress)
	}
	r = media.NewThrottledReader(ctx, r, c.uploadLimit)
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("stream %s: %w", f.Name, err)
	}
	return nil
}

// streamMultipart produces the body lazily so large files are never held in memory.
func streamMultipart(write func(*multipart.Writer) error) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := write(mw)
		if err == nil {
			err = mw.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, mw.FormDataContentType()
}

// unwrap returns the first present envelope member, or the document itself.
func unwrap(raw []byte, envelopes ...string) []byte {
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return raw
	}
	for _, key := range envelopes {
		if v := doc.Get(key); v.Exists() && (v.IsObject() || v.IsArray()) {
			return []byte(v.Raw)
		}
	}
	return raw
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
