package alertlog

import (
	"slices"
	"sync"
	"testing"

	"fleet-monitor/alerting/internal/domain"
)

func batch(eventID, driverID int64) domain.AlertBatch {
	return domain.AlertBatch{
		EventID:     eventID,
		DriverID:    driverID,
		PassengerID: 1,
		Alerts:      []domain.Alert{{Kind: domain.RuleSpeedExceeded, DriverMessage: "slow down"}},
	}
}

func eventIDs(seq func(func(domain.AlertBatch) bool)) []int64 {
	var ids []int64
	for b := range seq {
		ids = append(ids, b.EventID)
	}
	return ids
}

func TestAppendAndQuery(t *testing.T) {
	l := New()
	l.Append(batch(1, 7))
	l.Append(batch(2, 8))
	l.Append(batch(3, 7))

	if got := eventIDs(l.Query(7)); !slices.Equal(got, []int64{1, 3}) {
		t.Errorf("Query(7) = %v, want [1 3]", got)
	}
	if got := eventIDs(l.Query(8)); !slices.Equal(got, []int64{2}) {
		t.Errorf("Query(8) = %v, want [2]", got)
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
}

func TestAppendIgnoresEmptyBatch(t *testing.T) {
	l := New()
	if l.Append(domain.AlertBatch{EventID: 1, DriverID: 7}) {
		t.Error("Append() stored an empty batch")
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestQueryUnknownDriver(t *testing.T) {
	l := New()
	l.Append(batch(1, 7))

	if got := eventIDs(l.Query(99)); len(got) != 0 {
		t.Errorf("Query(99) = %v, want empty", got)
	}
}

func TestQueryIsRestartable(t *testing.T) {
	l := New()
	l.Append(batch(1, 7))
	l.Append(batch(2, 7))

	seq := l.Query(7)
	first := eventIDs(seq)
	second := eventIDs(seq)
	if !slices.Equal(first, second) {
		t.Errorf("second iteration = %v, want %v", second, first)
	}

	// A new append shows up on the next iteration of the same sequence.
	l.Append(batch(3, 7))
	if got := eventIDs(seq); !slices.Equal(got, []int64{1, 2, 3}) {
		t.Errorf("after append = %v, want [1 2 3]", got)
	}
}

func TestQueryStopsEarly(t *testing.T) {
	l := New()
	for i := int64(1); i <= 5; i++ {
		l.Append(batch(i, 7))
	}

	var seen int
	for range l.Query(7) {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("seen = %d, want 2", seen)
	}
}

func TestConcurrentAppendAndQuery(t *testing.T) {
	l := New()
	const writers, perWriter = 8, 200

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				l.Append(batch(int64(w*perWriter+i), int64(w%2)))
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				for range l.Query(0) {
				}
			}
		}()
	}
	wg.Wait()

	if l.Len() != writers*perWriter {
		t.Fatalf("Len() = %d, want %d", l.Len(), writers*perWriter)
	}
	if n := len(eventIDs(l.Query(0))) + len(eventIDs(l.Query(1))); n != writers*perWriter {
		t.Errorf("queried %d batches, want %d", n, writers*perWriter)
	}
}
