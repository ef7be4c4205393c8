package store

import (
	"testing"
	"time"

	"fleet-monitor/alerting/internal/domain"
)

func TestAlertRows(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	batches := []*domain.AlertBatch{
		{
			EventID:     1,
			DriverID:    7,
			PassengerID: 3,
			CreatedAt:   at,
			Alerts: []domain.Alert{
				{Kind: domain.RuleSpeedExceeded, DriverMessage: "d", PassengerMessage: "p", DispatcherMessage: "x"},
				{Kind: domain.RuleHardBraking, DriverMessage: "d2", DispatcherMessage: "x2"},
			},
		},
		{EventID: 2, DriverID: 8},
	}

	rows := alertRows(batches)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for _, row := range rows {
		if len(row) != len(alertColumns) {
			t.Fatalf("row has %d values, want %d", len(row), len(alertColumns))
		}
	}
	if rows[1][4] != int16(1) || rows[1][5] != "HARD_BRAKING" || rows[1][7] != "" {
		t.Errorf("second row = %v", rows[1])
	}
	if rows[0][0] != at {
		t.Errorf("created_at = %v, want %v", rows[0][0], at)
	}
}

func TestAlertRowsEmpty(t *testing.T) {
	if rows := alertRows(nil); len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}

func TestRedisKeys(t *testing.T) {
	if got := DriverChannel(7); got != "driver:7:alerts" {
		t.Errorf("DriverChannel(7) = %q", got)
	}
	if got := lastAlertKey(7); got != "driver:7:last_alert" {
		t.Errorf("lastAlertKey(7) = %q", got)
	}
}

func TestLastAlertFields(t *testing.T) {
	b := &domain.AlertBatch{
		EventID:     9,
		PassengerID: 3,
		Alerts: []domain.Alert{
			{Kind: domain.RuleSpeedExceeded},
			{Kind: domain.RuleRouteDeviation},
		},
	}

	f := lastAlertFields(b)
	if f["kinds"] != `["SPEED_EXCEEDED","ROUTE_DEVIATION"]` {
		t.Errorf("kinds = %v", f["kinds"])
	}
	if f["event_id"] != int64(9) {
		t.Errorf("event_id = %v", f["event_id"])
	}
}
