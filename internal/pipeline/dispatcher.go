package pipeline

import (
	"sync/atomic"

	"fleet-monitor/alerting/internal/domain"
	"fleet-monitor/alerting/internal/metrics"
)

// Dispatcher hands alert batches to the external sinks. A nil channel means
// that sink is disabled. Sends never block the telemetry path; a full
// channel drops the batch and counts it.
type Dispatcher struct {
	ArchiveChan chan *domain.AlertBatch
	RedisChan   chan *domain.AlertBatch
	StreamChan  chan *domain.AlertBatch

	closed atomic.Bool
}

// NewDispatcher creates a channel for every sink with a positive size.
func NewDispatcher(archiveSize, redisSize, streamSize int) *Dispatcher {
	return &Dispatcher{
		ArchiveChan: newChan(archiveSize),
		RedisChan:   newChan(redisSize),
		StreamChan:  newChan(streamSize),
	}
}

func newChan(size int) chan *domain.AlertBatch {
	if size <= 0 {
		return nil
	}
	return make(chan *domain.AlertBatch, size)
}

func (d *Dispatcher) Dispatch(b *domain.AlertBatch) {
	if d.closed.Load() {
		return
	}
	offer(d.ArchiveChan, b, &metrics.ArchiveChannelDrops)
	offer(d.RedisChan, b, &metrics.RedisChannelDrops)
	offer(d.StreamChan, b, &metrics.StreamChannelDrops)
}

func offer(ch chan *domain.AlertBatch, b *domain.AlertBatch, drops *atomic.Int64) {
	if ch == nil {
		return
	}
	select {
	case ch <- b:
	default:
		drops.Add(1)
	}
}

// Close stops accepting batches and closes the sink channels so writers
// flush and exit. Call it only after the HTTP server has stopped.
func (d *Dispatcher) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	for _, ch := range []chan *domain.AlertBatch{d.ArchiveChan, d.RedisChan, d.StreamChan} {
		if ch != nil {
			close(ch)
		}
	}
}
