package store

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestCompositeCursor(t *testing.T) {
	tests := []struct {
		name        string
		lastMetric  string
		lastTweetID string
		want        int64
		wantErr     bool
	}{
		{"first page sentinel", MaxMetricSentinel, "0", math.MaxInt64, false},
		{"metric and short id concatenate", "82", "1234", 821234, false},
		{"id truncates to ten digits", "9", "12345678901234567890", 91234567890, false},
		{"zero metric", "0", "777", 777, false},
		{"overflow saturates below sentinel", "999999999999", "9999999999", math.MaxInt64 - 1, false},
		{"garbage metric", "high", "123", 0, true},
		{"garbage id", "10", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompositeCursor(tt.lastMetric, tt.lastTweetID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrBadCursor) {
				t.Errorf("error = %v, want ErrBadCursor (caller input)", err)
			}
			if got != tt.want {
				t.Errorf("cursor = %d, want %d", got, tt.want)
			}
		})
	}
}

// Cursor ordering must agree with metric ordering: a higher metric always
// produces a higher key than a lower metric with any same-length id, so
// keyset pages never skip or repeat across a metric boundary.
func TestCompositeCursorOrdering(t *testing.T) {
	high, err := CompositeCursor("100", "1111111111")
	if err != nil {
		t.Fatal(err)
	}
	low, err := CompositeCursor("99", "9999999999")
	if err != nil {
		t.Fatal(err)
	}
	if high <= low {
		t.Errorf("cursor(metric=100) = %d should exceed cursor(metric=99) = %d", high, low)
	}

	// equal metrics break ties on the id digits
	a, _ := CompositeCursor("50", "2000000000")
	b, _ := CompositeCursor("50", "1000000000")
	if a <= b {
		t.Errorf("tie-break failed: %d <= %d", a, b)
	}
}

// A saturated key must stay strictly below the first-page sentinel, or the
// "key < cursor" predicate would hide saturated rows from the first page.
func TestSaturatedKeyBelowSentinel(t *testing.T) {
	sentinel, err := CompositeCursor(MaxMetricSentinel, "0")
	if err != nil {
		t.Fatal(err)
	}
	saturated, err := CompositeCursor("99999999999", "9999999999")
	if err != nil {
		t.Fatal(err)
	}
	if saturated >= sentinel {
		t.Errorf("saturated key %d not below sentinel %d", saturated, sentinel)
	}
	if saturated != maxCompositeKey {
		t.Errorf("saturated key = %d, want clamp value %d", saturated, maxCompositeKey)
	}
}

func TestTimeCursor(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	got, err := timeCursor(MaxMetricSentinel, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(now.Add(time.Hour)) {
		t.Errorf("sentinel cursor = %s, want %s", got, now.Add(time.Hour))
	}

	got, err = timeCursor("2024-06-10T08:30:00Z", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(time.Date(2024, 6, 10, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("cursor = %s", got)
	}

	if _, err := timeCursor("last tuesday", now); !errors.Is(err, ErrBadCursor) {
		t.Errorf("error = %v, want ErrBadCursor for unparseable cursor", err)
	}
}
