package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/option"

	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
)

type fakeCompleter struct {
	calls  []Request
	answer func(req Request) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, req Request) (string, error) {
	f.calls = append(f.calls, req)
	return f.answer(req)
}

// echoLabels answers every input line; lines containing "love" are positive.
func echoLabels(req Request) (string, error) {
	var resp labelsResponse
	for _, line := range strings.Split(strings.TrimSpace(req.Input), "\n") {
		var idx int
		var text string
		parts := strings.SplitN(line, ": ", 2)
		fmt.Sscanf(parts[0], "%d", &idx)
		if len(parts) == 2 {
			text = parts[1]
		}
		label := "neutral"
		if strings.Contains(text, "love") {
			label = "positive"
		}
		resp.Labels = append(resp.Labels, itemLabel{Index: idx, Sentiment: label})
	}
	b, err := json.Marshal(resp)
	return string(b), err
}

func TestPredictBatchesInOrder(t *testing.T) {
	f := &fakeCompleter{answer: echoLabels}
	c := New(f, WithBatchSize(2))

	got, err := c.Predict(context.Background(), []string{"love it", "meh", "ok", "love love"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []string{"positive", "neutral", "neutral", "positive"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(f.calls) != 2 {
		t.Errorf("expected 2 model calls, got %d", len(f.calls))
	}
	if f.calls[0].Schema == nil || f.calls[0].SchemaName == "" {
		t.Error("request should carry the output schema")
	}
}

func TestPredictMissingLabel(t *testing.T) {
	f := &fakeCompleter{answer: func(Request) (string, error) {
		return `{"labels":[{"index":0,"sentiment":"positive"}]}`, nil
	}}
	_, err := New(f).Predict(context.Background(), []string{"a", "b"})
	if !errors.Is(err, internalerr.ErrClassifier) {
		t.Fatalf("expected ErrClassifier, got %v", err)
	}
}

func TestPredictCompleterError(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeCompleter{answer: func(Request) (string, error) { return "", boom }}
	_, err := New(f).Predict(context.Background(), []string{"a"})
	if !errors.Is(err, internalerr.ErrClassifier) || !errors.Is(err, boom) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDecodeModelJSON(t *testing.T) {
	var out labelsResponse
	if err := DecodeModelJSON("Sure! {\"labels\":[{\"index\":0,\"sentiment\":\"negative\"}]} Done.", &out); err != nil {
		t.Fatalf("DecodeModelJSON: %v", err)
	}
	if len(out.Labels) != 1 || out.Labels[0].Sentiment != "negative" {
		t.Errorf("unexpected %+v", out)
	}

	if err := DecodeModelJSON(`{"labels":[`, &out); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("truncated output should be ErrUnexpectedEOF, got %v", err)
	}
	if err := DecodeModelJSON("   ", &out); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("empty output should be ErrUnexpectedEOF, got %v", err)
	}
	if err := DecodeModelJSON("no json here", &out); err == nil {
		t.Error("expected error for prose-only output")
	}
}

func TestGenerateSchemaIsStrict(t *testing.T) {
	s := GenerateSchema[labelsResponse]()
	if s["type"] != "object" || s["additionalProperties"] != false {
		t.Fatalf("top-level schema not strict: %v", s)
	}
	props := s["properties"].(map[string]interface{})
	labels := props["labels"].(map[string]interface{})
	items := labels["items"].(map[string]interface{})
	if items["additionalProperties"] != false {
		t.Errorf("item schema not strict: %v", items)
	}
	if req, _ := items["required"].([]interface{}); len(req) != 2 {
		t.Errorf("item schema should require both fields, got %v", items["required"])
	}
}

type roundTrip func(*http.Request) *http.Response

func (rt roundTrip) RoundTrip(req *http.Request) (*http.Response, error) {
	return rt(req), nil
}

func TestChatCompleter(t *testing.T) {
	c := &ChatCompleter{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "local-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				body, _ := io.ReadAll(req.Body)
				if !strings.Contains(string(body), "json_object") {
					t.Errorf("expected json response format in payload: %s", body)
				}
				return &http.Response{
					StatusCode: 200,
					Body: io.NopCloser(strings.NewReader(
						`{"choices":[{"message":{"role":"assistant","content":"{\"labels\":[{\"index\":0,\"sentiment\":\"positive\"}]}"}}]}`)),
					Header: make(http.Header),
				}
			}),
		},
	}

	got, err := New(c).Predict(context.Background(), []string{"love"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got[0] != "positive" {
		t.Errorf("unexpected %v", got)
	}
}

func TestChatCompleterError(t *testing.T) {
	c := &ChatCompleter{
		BaseURL: "https://api.test/v1/chat/completions",
		Model:   "local-test",
		HTTPClient: &http.Client{
			Transport: roundTrip(func(req *http.Request) *http.Response {
				return &http.Response{
					StatusCode: 200,
					Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"bad"}}`)),
					Header:     make(http.Header),
				}
			}),
		},
	}
	if _, err := c.Complete(context.Background(), Request{Input: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := (&ChatCompleter{}).Complete(context.Background(), Request{}); err == nil {
		t.Fatal("missing base URL should fail")
	}
}

func TestResponsesCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "json_schema") {
			t.Errorf("expected json_schema format in payload")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
  "id": "resp_1",
  "object": "response",
  "created_at": 0,
  "status": "completed",
  "model": "gpt-test",
  "output": [{
    "type": "message",
    "id": "msg_1",
    "role": "assistant",
    "status": "completed",
    "content": [{"type": "output_text", "annotations": [], "text": "{\"labels\":[{\"index\":0,\"sentiment\":\"negative\"}]}"}]
  }]
}`)
	}))
	defer srv.Close()

	rc := NewResponsesCompleter("test-key", "gpt-test", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	got, err := New(rc).Predict(context.Background(), []string{"hate"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got[0] != "negative" {
		t.Errorf("unexpected %v", got)
	}
}

func TestResponsesCompleterCallsOnceOnServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
	}))
	defer srv.Close()

	rc := NewResponsesCompleter("test-key", "gpt-test", option.WithBaseURL(srv.URL))
	_, err := New(rc).Predict(context.Background(), []string{"love"})
	if !errors.Is(err, internalerr.ErrClassifier) {
		t.Fatalf("expected ErrClassifier, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("backend called %d times, want 1", n)
	}
}
