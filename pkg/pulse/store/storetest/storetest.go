// Package storetest holds behaviour checks shared by every ReportStore
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
	"github.com/cognicore/commentpulse/pkg/pulse/store"
)

// Run exercises save, get, replace and list against s.
func Run(t *testing.T, s store.ReportStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"r1", "r2", "r3"} {
		r := store.Report{
			ID:         id,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
			Total:      i + 1,
			ResultJSON: []byte(`{"summary":{"total":` + string(rune('1'+i)) + `}}`),
		}
		if err := s.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport(%s): %v", id, err)
		}
	}

	got, err := s.GetReport(ctx, "r2")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Total != 2 || string(got.ResultJSON) != `{"summary":{"total":2}}` {
		t.Errorf("unexpected report %+v", got)
	}
	if !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, base.Add(time.Minute))
	}

	if _, err := s.GetReport(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("missing report should be ErrNotFound, got %v", err)
	}

	list, err := s.ListReports(ctx, 2)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(list) != 2 || list[0].ID != "r3" || list[1].ID != "r2" {
		t.Errorf("expected newest first [r3 r2], got %+v", list)
	}

	// replace keeps one row per ID
	if err := s.SaveReport(ctx, store.Report{ID: "r1", CreatedAt: base.Add(time.Hour), Total: 9, ResultJSON: []byte(`{}`)}); err != nil {
		t.Fatalf("SaveReport replace: %v", err)
	}
	list, err = s.ListReports(ctx, 0)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(list) != 3 || list[0].ID != "r1" || list[0].Total != 9 {
		t.Errorf("replaced report should be newest, got %+v", list)
	}

	if err := s.SaveReport(ctx, store.Report{}); err == nil {
		t.Error("empty id should be rejected")
	}
}
