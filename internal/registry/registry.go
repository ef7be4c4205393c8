package registry

import (
	"log/slog"
	"sync"

	"fleet-monitor/alerting/internal/domain"
	"fleet-monitor/alerting/internal/metrics"
)

// Conn is one live subscriber channel. Send must not block on a slow peer and
// Close must be safe to call more than once.
type Conn interface {
	ID() string
	Send(msg string) error
	Close() error
}

// Key addresses a group of subscribers. Dispatcher keys never carry an ID.
type Key struct {
	Role domain.Role
	ID   int64
}

func KeyFor(role domain.Role, id int64) Key {
	if !role.HasIdentity() {
		id = 0
	}
	return Key{Role: role, ID: id}
}

func (k Key) LogValue() slog.Value {
	if !k.Role.HasIdentity() {
		return slog.StringValue(k.Role.String())
	}
	return slog.GroupValue(
		slog.String("role", k.Role.String()),
		slog.Int64("id", k.ID),
	)
}

// bucket holds the connections of one key. Once retired it is out of the
// map and must not be written to.
type bucket struct {
	mu      sync.Mutex
	conns   map[Conn]struct{}
	retired bool
}

// Registry tracks live connections per key. Each key has its own lock, so
// traffic for one driver never waits on another.
type Registry struct {
	buckets sync.Map // Key -> *bucket
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger.With("component", "registry")}
}

// Connect adds conn under key. Connecting the same conn twice is a no-op.
func (r *Registry) Connect(conn Conn, key Key) Conn {
	for {
		v, _ := r.buckets.LoadOrStore(key, &bucket{conns: make(map[Conn]struct{})})
		b := v.(*bucket)

		b.mu.Lock()
		if b.retired {
			// Lost a race with the last disconnect on this key; pick up the
			// replacement bucket.
			b.mu.Unlock()
			continue
		}
		if _, ok := b.conns[conn]; !ok {
			b.conns[conn] = struct{}{}
			metrics.ActiveConnections.Add(1)
		}
		b.mu.Unlock()

		r.logger.Debug("connected", "conn", conn.ID(), "key", key)
		return conn
	}
}

// Disconnect removes conn from key. Absent connections are ignored since a
// failed broadcast may already have pruned it.
func (r *Registry) Disconnect(conn Conn, key Key) {
	if r.remove(key, conn) > 0 {
		r.logger.Debug("disconnected", "conn", conn.ID(), "key", key)
	}
}

// Prune removes connections whose send failed and closes them.
func (r *Registry) Prune(key Key, conns ...Conn) {
	r.remove(key, conns...)
	for _, c := range conns {
		if err := c.Close(); err != nil {
			r.logger.Debug("close after prune failed", "conn", c.ID(), "error", err)
		}
	}
}

// Broadcast sends msg to every connection under key and returns how many
// accepted it. Failing connections are pruned; the rest still receive msg.
func (r *Registry) Broadcast(key Key, msg string) int {
	if msg == "" {
		return 0
	}

	targets := r.snapshot(key)
	if len(targets) == 0 {
		return 0
	}

	var failed []Conn
	delivered := 0
	for _, c := range targets {
		if err := c.Send(msg); err != nil {
			r.logger.Warn("send failed, dropping connection", "conn", c.ID(), "key", key, "error", err)
			failed = append(failed, c)
			continue
		}
		delivered++
	}

	if len(failed) > 0 {
		metrics.DeliveryFailures.Add(int64(len(failed)))
		r.Prune(key, failed...)
	}
	metrics.MessagesDelivered.Add(int64(delivered))
	return delivered
}

// Count returns the number of live connections under key.
func (r *Registry) Count(key Key) int {
	v, ok := r.buckets.Load(key)
	if !ok {
		return 0
	}
	b := v.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// CloseAll closes and forgets every connection. Used on shutdown.
func (r *Registry) CloseAll() {
	r.buckets.Range(func(k, v any) bool {
		b := v.(*bucket)
		b.mu.Lock()
		conns := make([]Conn, 0, len(b.conns))
		for c := range b.conns {
			conns = append(conns, c)
		}
		clear(b.conns)
		b.retired = true
		r.buckets.CompareAndDelete(k, b)
		b.mu.Unlock()

		metrics.ActiveConnections.Add(-int64(len(conns)))
		for _, c := range conns {
			c.Close()
		}
		return true
	})
}

func (r *Registry) snapshot(key Key) []Conn {
	v, ok := r.buckets.Load(key)
	if !ok {
		return nil
	}
	b := v.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()
	conns := make([]Conn, 0, len(b.conns))
	for c := range b.conns {
		conns = append(conns, c)
	}
	return conns
}

func (r *Registry) remove(key Key, conns ...Conn) int {
	v, ok := r.buckets.Load(key)
	if !ok {
		return 0
	}
	b := v.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for _, c := range conns {
		if _, ok := b.conns[c]; ok {
			delete(b.conns, c)
			removed++
		}
	}
	metrics.ActiveConnections.Add(-int64(removed))

	if len(b.conns) == 0 && !b.retired {
		b.retired = true
		r.buckets.CompareAndDelete(key, b)
	}
	return removed
}
