package store

import (
	"testing"
	"time"
)

func TestLoanDocID(t *testing.T) {
	got := loanDocID("user-1", "3c9f")
	if got != "user-1#3c9f" {
		t.Fatalf("unexpected doc ID: %q", got)
	}
}

func TestDueWindow(t *testing.T) {
	ref := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	got := dueWindow(ref)
	if len(got) != 2 || got[0] != "2025-06-10" || got[1] != "2025-06-11" {
		t.Fatalf("unexpected window: %v", got)
	}
}

func TestDueWindowCrossesMonthEnd(t *testing.T) {
	ref := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	got := dueWindow(ref)
	if got[0] != "2025-06-30" || got[1] != "2025-07-01" {
		t.Fatalf("unexpected window: %v", got)
	}
}
