package classifier

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
)

func testModelFile() ModelFile {
	return ModelFile{
		Name: "test",
		Vectorizer: TFIDFParams{
			Vocabulary: map[string]int{"love": 0, "great": 1, "hate": 2, "bad": 3, "ok": 4},
			IDF:        []float64{1, 1, 1, 1, 1},
		},
		Model: LinearParams{
			Classes: []string{"-1", "0", "1"},
			Coef: [][]float64{
				{-1, -1, 2, 2, 0},
				{0, 0, 0, 0, 1},
				{2, 2, -1, -1, 0},
			},
			Intercept: []float64{0, 0.1, 0},
		},
	}
}

func testAdapter(t *testing.T, denseOnly bool) *Adapter {
	t.Helper()
	mf := testModelFile()
	mf.Model.DenseOnly = denseOnly
	vec, model, err := mf.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return NewAdapter(vec, model)
}

func TestAdapterPredict(t *testing.T) {
	a := testAdapter(t, false)

	got, err := a.Predict(context.Background(), []string{"love great", "hate bad", "", "ok"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []string{"1", "-1", "0", "0"}
	if len(got) != len(want) {
		t.Fatalf("got %d labels, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAdapterEmptyBatch(t *testing.T) {
	a := testAdapter(t, false)
	got, err := a.Predict(context.Background(), nil)
	if err != nil || len(got) != 0 {
		t.Errorf("empty batch = %v, %v", got, err)
	}
}

func TestAdapterRetriesDense(t *testing.T) {
	a := testAdapter(t, true)

	got, err := a.Predict(context.Background(), []string{"love", "hate"})
	if err != nil {
		t.Fatalf("dense retry should succeed: %v", err)
	}
	if got[0] != "1" || got[1] != "-1" {
		t.Errorf("unexpected labels %v", got)
	}
}

type countingModel struct {
	calls  int
	kinds  []string
	err    error
	labels []string
}

func (m *countingModel) PredictFeatures(_ context.Context, x Features) ([]string, error) {
	m.calls++
	switch x.(type) {
	case *Sparse:
		m.kinds = append(m.kinds, "sparse")
	case *Dense:
		m.kinds = append(m.kinds, "dense")
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.labels, nil
}

func testVectorizer(t *testing.T) *TFIDF {
	t.Helper()
	vec, err := NewTFIDF(testModelFile().Vectorizer)
	if err != nil {
		t.Fatalf("NewTFIDF: %v", err)
	}
	return vec
}

func TestAdapterRetriesExactlyOnce(t *testing.T) {
	boom := errors.New("boom")
	m := &countingModel{err: boom}
	a := NewAdapter(testVectorizer(t), m)

	_, err := a.Predict(context.Background(), []string{"love"})
	if !errors.Is(err, internalerr.ErrClassifier) {
		t.Fatalf("expected ErrClassifier, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause should be preserved, got %v", err)
	}
	if m.calls != 2 || m.kinds[0] != "sparse" || m.kinds[1] != "dense" {
		t.Errorf("expected sparse then dense attempt, got %v", m.kinds)
	}
}

func TestAdapterLengthMismatch(t *testing.T) {
	m := &countingModel{labels: []string{"1"}}
	a := NewAdapter(testVectorizer(t), m)

	_, err := a.Predict(context.Background(), []string{"love", "hate"})
	var ce *internalerr.ClassifierError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ClassifierError, got %v", err)
	}
}

func TestAdapterCanceledContextSkipsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := &countingModel{err: context.Canceled}
	a := NewAdapter(testVectorizer(t), m)

	_, err := a.Predict(ctx, []string{"love"})
	if !errors.Is(err, internalerr.ErrClassifier) || !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error %v", err)
	}
	if m.calls != 1 {
		t.Errorf("canceled request should not retry, got %d calls", m.calls)
	}
}

func TestFuncClassifier(t *testing.T) {
	var c Classifier = Func(func(_ context.Context, texts []string) ([]string, error) {
		out := make([]string, len(texts))
		for i := range out {
			out[i] = "neutral"
		}
		return out, nil
	})
	got, _ := c.Predict(context.Background(), []string{"a", "b"})
	if len(got) != 2 || got[1] != "neutral" {
		t.Errorf("unexpected %v", got)
	}
}

func TestSparseDense(t *testing.T) {
	x := &Sparse{
		NumRows: 2,
		NumCols: 3,
		Indptr:  []int{0, 2, 3},
		Indices: []int{0, 2, 1},
		Data:    []float64{1, 2, 3},
	}
	if err := x.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	d := x.Dense()
	want := [][]float64{{1, 0, 2}, {0, 3, 0}}
	if d.Rows() != 2 || d.Cols() != 3 {
		t.Fatalf("dense shape %dx%d", d.Rows(), d.Cols())
	}
	for i := range want {
		for j := range want[i] {
			if d.Data[i][j] != want[i][j] {
				t.Errorf("dense[%d][%d] = %v, want %v", i, j, d.Data[i][j], want[i][j])
			}
		}
	}

	bad := &Sparse{NumRows: 1, NumCols: 2, Indptr: []int{0, 1}, Indices: []int{5}, Data: []float64{1}}
	if bad.Validate() == nil {
		t.Error("out-of-range column should fail validation")
	}
}

func TestTFIDFTransform(t *testing.T) {
	vec, err := NewTFIDF(TFIDFParams{
		Vocabulary: map[string]int{"good": 0, "video": 1, "good video": 2},
		IDF:        []float64{1, 2, 1},
		NgramRange: [2]int{1, 2},
	})
	if err != nil {
		t.Fatalf("NewTFIDF: %v", err)
	}

	x, err := vec.Transform([]string{"Good video", "a unknown"})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if err := x.Validate(); err != nil {
		t.Fatalf("invalid output: %v", err)
	}

	idx, vals := x.Row(0)
	if len(idx) != 3 {
		t.Fatalf("row 0 has %d entries, want 3", len(idx))
	}
	var norm float64
	for _, v := range vals {
		norm += v * v
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Errorf("row should be l2-normalized, squared norm %v", norm)
	}
	if vals[1] <= vals[0] {
		t.Errorf("higher idf should weigh more: %v", vals)
	}

	if idx, _ := x.Row(1); len(idx) != 0 {
		t.Errorf("unknown terms should give an empty row, got %v", idx)
	}
}

func TestTFIDFRejectsBadParams(t *testing.T) {
	cases := []TFIDFParams{
		{},
		{Vocabulary: map[string]int{"a": 0}, IDF: []float64{1, 2}},
		{Vocabulary: map[string]int{"a": 3}, IDF: []float64{1}},
		{Vocabulary: map[string]int{"a": 0}, IDF: []float64{1}, NgramRange: [2]int{2, 1}},
		{Vocabulary: map[string]int{"a": 0}, IDF: []float64{1}, Norm: "l1"},
	}
	for i, p := range cases {
		if _, err := NewTFIDF(p); err == nil {
			t.Errorf("case %d should fail", i)
		}
	}
}

func TestLinearBinary(t *testing.T) {
	m, err := NewLinear(LinearParams{
		Classes:   []string{"negative", "positive"},
		Coef:      [][]float64{{1, -1}},
		Intercept: []float64{0},
	})
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}
	got, err := m.PredictFeatures(context.Background(), &Dense{NumCols: 2, Data: [][]float64{{1, 0}, {0, 1}}})
	if err != nil {
		t.Fatalf("PredictFeatures: %v", err)
	}
	if got[0] != "positive" || got[1] != "negative" {
		t.Errorf("unexpected %v", got)
	}

	if _, err := m.PredictFeatures(context.Background(), &Dense{NumCols: 3}); err == nil {
		t.Error("width mismatch should fail")
	}
}

func TestLoadModelFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	data := `{
  "name": "tiny",
  "vectorizer": {"vocabulary": {"love": 0, "hate": 1}, "idf": [1.0, 1.0]},
  "model": {"classes": ["-1", "0", "1"],
            "coef": [[-1, 1], [0, 0], [1, -1]],
            "intercept": [0, 0.1, 0]}
}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	vec, model, err := LoadModelFile(path)
	if err != nil {
		t.Fatalf("LoadModelFile: %v", err)
	}
	got, err := NewAdapter(vec, model).Predict(context.Background(), []string{"love", "hate", "meh"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got[0] != "1" || got[1] != "-1" || got[2] != "0" {
		t.Errorf("unexpected labels %v", got)
	}
}

func TestLoadModelFileWidthMismatch(t *testing.T) {
	mf := testModelFile()
	mf.Model.Coef = [][]float64{{1}, {1}, {1}}
	if _, _, err := mf.Build(); err == nil {
		t.Error("width mismatch between vectorizer and model should fail")
	}

	if _, _, err := LoadModelFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
}
