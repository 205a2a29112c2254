package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// systemSlack is added on top of the capture duration for /predict/system,
// since the backend records for the full duration before it answers.
const systemSlack = 30 * time.Second

// Genre is a single genre/confidence pair.
type Genre struct {
	Genre      string  `json:"genre"`
	Confidence float64 `json:"confidence"`
}

// Result is a genre prediction as returned by the classification service.
// TopGenres is ordered by descending confidence.
type Result struct {
	Genre      string  `json:"genre"`
	Confidence float64 `json:"confidence"`
	TopGenres  []Genre `json:"top_genres"`
}

// Health is the body of GET /health.
type Health struct {
	Status string   `json:"status"`
	Model  string   `json:"model"`
	Genres []string `json:"genres"`
}

type errorResp struct {
	Error string `json:"error"`
}

// Client talks to the genre classification backend.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	http    *http.Client
}

// NewClient creates a backend client. timeout bounds every request except
// system captures, which get at least the capture duration plus slack.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetBaseURL points the client at a different backend (hot reload).
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = strings.TrimRight(baseURL, "/")
}

// BaseURL returns the current backend address.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Health performs the liveness request. Any non-2xx status is an error.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Genres returns the genres the backend model can predict.
func (c *Client) Genres(ctx context.Context) ([]string, error) {
	var r struct {
		Genres []string `json:"genres"`
	}
	if err := c.get(ctx, "/genres", &r); err != nil {
		return nil, err
	}
	return r.Genres, nil
}

// PredictFile uploads an audio file as multipart form field "file".
func (c *Client) PredictFile(ctx context.Context, filename string, data io.Reader) (*Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}
	return c.predict(ctx, c.http, "/predict", mw.FormDataContentType(), &body)
}

// PredictRecording sends a recorded payload as a raw binary body.
func (c *Client) PredictRecording(ctx context.Context, audio []byte) (*Result, error) {
	return c.predict(ctx, c.http, "/predict/record", "application/octet-stream", bytes.NewReader(audio))
}

// PredictSystem asks the backend to capture system audio for the given
// number of seconds and classify it.
func (c *Client) PredictSystem(ctx context.Context, seconds int) (*Result, error) {
	body, err := json.Marshal(map[string]int{"duration": seconds})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	hc := c.http
	need := time.Duration(seconds)*time.Second + systemSlack
	if hc.Timeout != 0 && hc.Timeout < need {
		cp := *hc
		cp.Timeout = need
		hc = &cp
	}
	return c.predict(ctx, hc, "/predict/system", "application/json", bytes.NewReader(body))
}

func (c *Client) predict(ctx context.Context, hc *http.Client, path, contentType string, body io.Reader) (*Result, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if err := checkStatus(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if res.Genre == "" {
		var e errorResp
		_ = json.Unmarshal(raw, &e)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	if len(res.TopGenres) == 0 {
		res.TopGenres = []Genre{{Genre: res.Genre, Confidence: res.Confidence}}
	}

	slog.Debug("prediction received", "path", path, "genre", res.Genre,
		"confidence", res.Confidence, "took", time.Since(start).Round(time.Millisecond),
		"request_id", req.Header.Get("X-Request-ID"))
	return &res, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := checkStatus(resp.StatusCode, raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL()+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func checkStatus(code int, raw []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}
	var e errorResp
	_ = json.Unmarshal(raw, &e)
	return &APIError{StatusCode: code, Message: e.Error}
}
