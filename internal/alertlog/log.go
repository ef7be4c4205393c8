package alertlog

import (
	"iter"
	"sync"

	"fleet-monitor/alerting/internal/domain"
)

// Log is the in-memory history of alert batches, indexed by driver. Batches
// live for the lifetime of the process.
type Log struct {
	mu       sync.RWMutex
	byDriver map[int64][]domain.AlertBatch
	total    int
}

func New() *Log {
	return &Log{byDriver: make(map[int64][]domain.AlertBatch)}
}

// Append stores b. Empty batches are ignored; the return value reports
// whether b was stored.
func (l *Log) Append(b domain.AlertBatch) bool {
	if b.Empty() {
		return false
	}

	l.mu.Lock()
	l.byDriver[b.DriverID] = append(l.byDriver[b.DriverID], b)
	l.total++
	l.mu.Unlock()
	return true
}

// Query yields the batches for driverID in append order. Each iteration
// works on the batches present when it starts; later appends are not seen.
func (l *Log) Query(driverID int64) iter.Seq[domain.AlertBatch] {
	return func(yield func(domain.AlertBatch) bool) {
		l.mu.RLock()
		// Stored elements are never rewritten, so the header is a stable view.
		batches := l.byDriver[driverID]
		l.mu.RUnlock()

		for _, b := range batches {
			if !yield(b) {
				return
			}
		}
	}
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
