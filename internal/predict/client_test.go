package predict

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleResult = `{"genre":"rock","confidence":0.6,"top_genres":[{"genre":"rock","confidence":0.6},{"genre":"pop","confidence":0.3},{"genre":"jazz","confidence":0.1}]}`

func TestPredictFileSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("got %s %s, want POST /predict", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != "song.mp3" {
			t.Errorf("filename = %q, want song.mp3", hdr.Filename)
		}
		if string(data) != "ID3data" {
			t.Errorf("file body = %q, want ID3data", data)
		}
		io.WriteString(w, sampleResult)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	res, err := c.PredictFile(context.Background(), "song.mp3", strings.NewReader("ID3data"))
	if err != nil {
		t.Fatalf("PredictFile: %v", err)
	}
	if res.Genre != "rock" || res.Confidence != 0.6 {
		t.Errorf("result = %+v, want rock/0.6", res)
	}
	if len(res.TopGenres) != 3 || res.TopGenres[2].Genre != "jazz" {
		t.Errorf("TopGenres = %+v", res.TopGenres)
	}
}

func TestPredictRecordingSendsOctetStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict/record" {
			t.Errorf("path = %s, want /predict/record", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
			t.Errorf("Content-Type = %q, want application/octet-stream", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "RIFFxxxxWAVE" {
			t.Errorf("body = %q", body)
		}
		io.WriteString(w, sampleResult)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if _, err := c.PredictRecording(context.Background(), []byte("RIFFxxxxWAVE")); err != nil {
		t.Fatalf("PredictRecording: %v", err)
	}
}

func TestPredictSystemSendsDuration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict/system" {
			t.Errorf("path = %s, want /predict/system", r.URL.Path)
		}
		var body map[string]int
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["duration"] != 12 {
			t.Errorf("duration = %d, want 12", body["duration"])
		}
		io.WriteString(w, sampleResult)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 5*time.Second)
	if _, err := c.PredictSystem(context.Background(), 12); err != nil {
		t.Fatalf("PredictSystem: %v", err)
	}
}

func TestServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"Unsupported file type."}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.PredictFile(context.Background(), "notes.txt", strings.NewReader("x"))
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != 400 {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if got := Message(err); got != "Unsupported file type." {
		t.Errorf("Message = %q", got)
	}
}

func TestServerErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.PredictRecording(context.Background(), []byte{1})
	if got := Message(err); got != "Prediction failed (HTTP 502)" {
		t.Errorf("Message = %q", got)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, 2*time.Second)
	_, err := c.PredictSystem(context.Background(), 5)
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	if got := Message(err); !strings.Contains(got, "Cannot reach") {
		t.Errorf("Message = %q, want unreachable text", got)
	}
}

func TestMissingTopGenresFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"genre":"blues","confidence":1.0}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	res, err := c.PredictRecording(context.Background(), []byte{1})
	if err != nil {
		t.Fatalf("PredictRecording: %v", err)
	}
	if len(res.TopGenres) != 1 || res.TopGenres[0].Genre != "blues" {
		t.Errorf("TopGenres = %+v, want [blues]", res.TopGenres)
	}
}

func TestHealthAndGenres(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			io.WriteString(w, `{"status":"ok","model":"SVC","genres":["jazz","rock"]}`)
		case "/genres":
			io.WriteString(w, `{"genres":["jazz","rock"]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if h.Status != "ok" || h.Model != "SVC" || len(h.Genres) != 2 {
		t.Errorf("Health = %+v", h)
	}
	genres, err := c.Genres(context.Background())
	if err != nil {
		t.Fatalf("Genres: %v", err)
	}
	if len(genres) != 2 || genres[0] != "jazz" {
		t.Errorf("Genres = %v", genres)
	}
}

func TestMessageCancelled(t *testing.T) {
	if got := Message(context.Canceled); got != "" {
		t.Errorf("Message(Canceled) = %q, want empty", got)
	}
	if got := Message(nil); got != "" {
		t.Errorf("Message(nil) = %q, want empty", got)
	}
}

func TestSetBaseURL(t *testing.T) {
	c := NewClient("http://a:1/", time.Second)
	if c.BaseURL() != "http://a:1" {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
	c.SetBaseURL("http://b:2")
	if c.BaseURL() != "http://b:2" {
		t.Errorf("BaseURL after set = %q", c.BaseURL())
	}
}
