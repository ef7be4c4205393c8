package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	EventsReceived      atomic.Int64
	EventsMalformed     atomic.Int64
	AlertBatches        atomic.Int64
	AlertsRaised        atomic.Int64
	MessagesDelivered   atomic.Int64
	DeliveryFailures    atomic.Int64
	ActiveConnections   atomic.Int64
	ArchiveWriteSuccess atomic.Int64
	ArchiveWriteFailure atomic.Int64
	ArchiveChannelDrops atomic.Int64
	RedisChannelDrops   atomic.Int64
	StreamChannelDrops  atomic.Int64
)

func HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "alerting_events_received_total %d\n", EventsReceived.Load())
	fmt.Fprintf(w, "alerting_events_malformed_total %d\n", EventsMalformed.Load())
	fmt.Fprintf(w, "alerting_alert_batches_total %d\n", AlertBatches.Load())
	fmt.Fprintf(w, "alerting_alerts_raised_total %d\n", AlertsRaised.Load())
	fmt.Fprintf(w, "alerting_messages_delivered_total %d\n", MessagesDelivered.Load())
	fmt.Fprintf(w, "alerting_delivery_failures_total %d\n", DeliveryFailures.Load())
	fmt.Fprintf(w, "alerting_active_connections %d\n", ActiveConnections.Load())
	fmt.Fprintf(w, "alerting_archive_write_success_total %d\n", ArchiveWriteSuccess.Load())
	fmt.Fprintf(w, "alerting_archive_write_failures_total %d\n", ArchiveWriteFailure.Load())
	fmt.Fprintf(w, "alerting_archive_channel_drops_total %d\n", ArchiveChannelDrops.Load())
	fmt.Fprintf(w, "alerting_redis_channel_drops_total %d\n", RedisChannelDrops.Load())
	fmt.Fprintf(w, "alerting_stream_channel_drops_total %d\n", StreamChannelDrops.Load())
}
