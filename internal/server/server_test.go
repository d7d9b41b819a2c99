package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cognicore/commentpulse/pkg/pulse"
	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
	"github.com/cognicore/commentpulse/pkg/pulse/classifier"
	"github.com/cognicore/commentpulse/pkg/pulse/config"
	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
	"github.com/cognicore/commentpulse/pkg/pulse/store"
	"github.com/cognicore/commentpulse/pkg/pulse/store/memstore"
)

func keywords() classifier.Classifier {
	return classifier.Func(func(_ context.Context, texts []string) ([]string, error) {
		out := make([]string, len(texts))
		for i, t := range texts {
			switch {
			case strings.Contains(t, "love"):
				out[i] = "positive"
			case strings.Contains(t, "hate"):
				out[i] = "-1"
			default:
				out[i] = "neutral"
			}
		}
		return out, nil
	})
}

func newTestServer(t *testing.T, clf classifier.Classifier, st store.ReportStore) *Server {
	t.Helper()
	opts := pulse.Options{Classifier: clf, MaxComments: 5}
	if st != nil {
		opts.Store = st
	}
	svc, err := pulse.New(opts)
	if err != nil {
		t.Fatalf("pulse.New: %v", err)
	}
	cfg := config.Default().Server
	cfg.MaxBodyBytes = 4096
	return NewServer(cfg, svc, zerolog.Nop())
}

func do(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %q", rec.Body.String())
	}
	return body["error"]
}

func TestWelcomeAndHealth(t *testing.T) {
	srv := newTestServer(t, keywords(), nil)

	rec := do(t, srv, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "Welcome") {
		t.Errorf("GET / = %d %q", rec.Code, rec.Body.String())
	}
	rec = do(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestPredict(t *testing.T) {
	srv := newTestServer(t, keywords(), nil)

	rec := do(t, srv, http.MethodPost, "/predict", `{"comments": ["I love it", "I hate it", "fine"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got []pulse.Prediction
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []pulse.Prediction{
		{Comment: "I love it", Sentiment: "1"},
		{Comment: "I hate it", Sentiment: "-1"},
		{Comment: "fine", Sentiment: "0"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d predictions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("prediction %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPredictWithTimestamps(t *testing.T) {
	srv := newTestServer(t, keywords(), nil)

	rec := do(t, srv, http.MethodPost, "/predict_with_timestamps",
		`{"comments": [{"text": "love", "timestamp": "2024-01-01T10:00:00Z"}, {"text": "meh"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got[0]["timestamp"] != "2024-01-01T10:00:00Z" || got[0]["sentiment"] != "1" {
		t.Errorf("first = %v", got[0])
	}
	if ts, ok := got[1]["timestamp"]; !ok || ts != nil {
		t.Errorf("absent timestamp should be null, got %v", got[1])
	}
}

func TestInsights(t *testing.T) {
	st := memstore.New()
	srv := newTestServer(t, keywords(), st)

	rec := do(t, srv, http.MethodPost, "/insights", `{"comments": [
		{"text": "I love this video", "timestamp": "2024-01-01T10:15:00Z", "authorId": "a"},
		{"text": "I hate this video", "timestamp": "2024-01-01T10:45:00Z", "authorId": "b"}
	]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	id := rec.Header().Get(ReportIDHeader)
	if id == "" {
		t.Fatal("missing report id header")
	}

	var res analytics.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Summary.Total != 2 || res.Summary.UniqueCommenters != 2 {
		t.Errorf("summary = %+v", res.Summary)
	}
	if res.Distribution != (analytics.Distribution{Negative: 1, Positive: 1}) {
		t.Errorf("distribution = %+v", res.Distribution)
	}
	if len(res.ByHour) != 24 {
		t.Errorf("by_hour has %d entries", len(res.ByHour))
	}

	rec = do(t, srv, http.MethodGet, "/reports/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET report status = %d", rec.Code)
	}
	var stored analytics.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode stored: %v", err)
	}
	if stored.Summary != res.Summary {
		t.Errorf("stored summary = %+v, want %+v", stored.Summary, res.Summary)
	}

	rec = do(t, srv, http.MethodGet, "/reports?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET reports status = %d", rec.Code)
	}
	var list []store.ReportSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || list[0].ID != id || list[0].Total != 2 {
		t.Errorf("list = %+v", list)
	}
}

func TestInsightsValidation(t *testing.T) {
	srv := newTestServer(t, keywords(), nil)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty list", `{"comments": []}`, http.StatusBadRequest},
		{"missing comments", `{}`, http.StatusBadRequest},
		{"null comments", `{"comments": null}`, http.StatusBadRequest},
		{"not an array", `{"comments": "love"}`, http.StatusBadRequest},
		{"malformed json", `{"comments": [`, http.StatusBadRequest},
		{"wrong element type", `{"comments": [1, 2]}`, http.StatusBadRequest},
		{"over the batch limit", `{"comments": [{"text":"a"},{"text":"b"},{"text":"c"},{"text":"d"},{"text":"e"},{"text":"f"}]}`, http.StatusBadRequest},
		{"body too large", `{"comments": ["` + strings.Repeat("x", 5000) + `"]}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/insights", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
			if errorMessage(t, rec) == "" {
				t.Error("error body should carry a message")
			}
		})
	}

	rec := do(t, srv, http.MethodPost, "/insights", `{"comments": []}`)
	if got := errorMessage(t, rec); got != "No comments provided" {
		t.Errorf("message = %q", got)
	}
}

func TestClassifierFailures(t *testing.T) {
	failing := classifier.Func(func(context.Context, []string) ([]string, error) {
		return nil, errors.New("model exploded")
	})
	rec := do(t, newTestServer(t, failing, nil), http.MethodPost, "/insights", `{"comments": [{"text": "hi"}]}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("classifier failure status = %d, want 502", rec.Code)
	}

	bogus := classifier.Func(func(_ context.Context, texts []string) ([]string, error) {
		out := make([]string, len(texts))
		for i := range out {
			out[i] = "maybe"
		}
		return out, nil
	})
	rec = do(t, newTestServer(t, bogus, nil), http.MethodPost, "/predict", `{"comments": ["hi"]}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("label failure status = %d, want 502", rec.Code)
	}
}

func TestChartData(t *testing.T) {
	srv := newTestServer(t, keywords(), nil)

	rec := do(t, srv, http.MethodPost, "/chart_data", `{"sentiment_counts": {"1": 2, "0": 1, "-1": 1}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var shares []analytics.Share
	if err := json.Unmarshal(rec.Body.Bytes(), &shares); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(shares) != 3 || shares[0].Label != "Positive" || shares[0].Share != 0.5 {
		t.Errorf("shares = %+v", shares)
	}

	rec = do(t, srv, http.MethodPost, "/chart_data", `{"sentiment_counts": {"1": 0, "0": 0, "-1": 0}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero counts status = %d, want 400", rec.Code)
	}
}

func TestTrendData(t *testing.T) {
	srv := newTestServer(t, keywords(), nil)

	rec := do(t, srv, http.MethodPost, "/trend_data", `{"sentiment_data": [
		{"timestamp": "2024-01-01T10:05:00Z", "sentiment": 1},
		{"timestamp": "2024-01-01T10:55:00Z", "sentiment": "-1"},
		{"timestamp": "2024-01-01T12:00:00Z", "sentiment": 1}
	]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var points []analytics.TimelinePoint
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(points) != 2 || points[0].Count != 2 || points[0].Value != 0 || points[1].Value != 1 {
		t.Errorf("points = %+v", points)
	}

	rec = do(t, srv, http.MethodPost, "/trend_data", `{"sentiment_data": []}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty data status = %d, want 400", rec.Code)
	}
}

func TestWordCloudData(t *testing.T) {
	srv := newTestServer(t, keywords(), nil)

	rec := do(t, srv, http.MethodPost, "/wordcloud_data?limit=1", `{"comments": ["great video", "great song"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var words []analytics.WordWeight
	if err := json.Unmarshal(rec.Body.Bytes(), &words); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(words) != 1 || words[0] != (analytics.WordWeight{Word: "great", Count: 2}) {
		t.Errorf("words = %+v", words)
	}

	rec = do(t, srv, http.MethodPost, "/wordcloud_data?limit=lots", `{"comments": ["x"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestReportsWithoutStore(t *testing.T) {
	srv := newTestServer(t, keywords(), nil)
	if rec := do(t, srv, http.MethodGet, "/reports", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("list status = %d, want 503", rec.Code)
	}
}

func TestReportNotFound(t *testing.T) {
	srv := newTestServer(t, keywords(), memstore.New())
	rec := do(t, srv, http.MethodGet, "/reports/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, keywords(), nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "chrome-extension://popup")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("CORS header missing for cross-origin request")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{internalerr.Validation("x"), http.StatusBadRequest},
		{&internalerr.LabelError{Label: "x", Index: 0}, http.StatusBadGateway},
		{&internalerr.ClassifierError{Op: "predict"}, http.StatusBadGateway},
		{fmt.Errorf("report: %w", internalerr.ErrNotFound), http.StatusNotFound},
		{internalerr.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{errBodyTooLarge, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
