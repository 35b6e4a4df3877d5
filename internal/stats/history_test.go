package stats

import (
	"fmt"
	"testing"

	"github.com/randomizedcoder/go-reqtime-dash/internal/protocol"
)

func rec(i int) protocol.Record {
	return protocol.Record{Elapsed: float64(i), Origin: fmt.Sprintf("o%d", i)}
}

func TestHistory_RecentMostRecentFirst(t *testing.T) {
	h := NewHistory(100)
	for i := 1; i <= 10; i++ {
		h.Append(rec(i))
	}

	got := h.Recent(0)
	if len(got) != 10 {
		t.Fatalf("len(Recent(0)) = %d, want 10", len(got))
	}
	for i, r := range got {
		if want := rec(10 - i); r != want {
			t.Errorf("Recent[%d] = %+v, want %+v", i, r, want)
		}
	}
}

func TestHistory_RecentLimit(t *testing.T) {
	h := NewHistory(100)
	for i := 1; i <= 10; i++ {
		h.Append(rec(i))
	}

	got := h.Recent(3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0] != rec(10) || got[2] != rec(8) {
		t.Errorf("Recent(3) = %+v, want o10..o8", got)
	}

	if n := len(h.Recent(50)); n != 10 {
		t.Errorf("Recent beyond length returned %d records, want 10", n)
	}
}

func TestHistory_Wraparound(t *testing.T) {
	h := NewHistory(4)
	for i := 1; i <= 10; i++ {
		h.Append(rec(i))
	}

	if h.Len() != 4 {
		t.Errorf("Len = %d, want 4", h.Len())
	}
	if h.Cap() != 4 {
		t.Errorf("Cap = %d, want 4", h.Cap())
	}
	if h.Total() != 10 {
		t.Errorf("Total = %d, want 10", h.Total())
	}
	if h.Overwritten() != 6 {
		t.Errorf("Overwritten = %d, want 6", h.Overwritten())
	}

	got := h.Recent(0)
	for i, r := range got {
		if want := rec(10 - i); r != want {
			t.Errorf("Recent[%d] = %+v, want %+v", i, r, want)
		}
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(0)
	if h.Cap() != DefaultHistoryCapacity {
		t.Errorf("Cap = %d, want default %d", h.Cap(), DefaultHistoryCapacity)
	}
	if got := h.Recent(5); len(got) != 0 {
		t.Errorf("Recent on empty = %v, want empty", got)
	}
}
