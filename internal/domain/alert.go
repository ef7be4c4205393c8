package domain

import (
	"fmt"
	"time"
)

type RuleKind string

const (
	RuleSpeedExceeded    RuleKind = "SPEED_EXCEEDED"
	RuleHardAcceleration RuleKind = "HARD_ACCELERATION"
	RuleHardBraking      RuleKind = "HARD_BRAKING"
	RuleRouteDeviation   RuleKind = "ROUTE_DEVIATION"
)

const (
	HardAccelerationThreshold = 4.0
	HardBrakingThreshold      = 5.0
	RouteDeviationThreshold   = 50.0
)

// Alert is one triggered rule. An empty message means that audience is not
// notified for this rule.
type Alert struct {
	Kind              RuleKind `json:"kind"`
	DriverMessage     string   `json:"driver"`
	PassengerMessage  string   `json:"passenger"`
	DispatcherMessage string   `json:"dispatcher"`
}

// AlertBatch groups the alerts raised by a single telemetry event, in rule
// declaration order.
type AlertBatch struct {
	EventID     int64     `json:"id"`
	DriverID    int64     `json:"driverId"`
	PassengerID int64     `json:"passengerId"`
	Alerts      []Alert   `json:"alerts"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (b AlertBatch) Empty() bool {
	return len(b.Alerts) == 0
}

type AlertRule struct {
	Kind      RuleKind
	Triggered func(e *TelemetryEvent) bool
	Alert     func(e *TelemetryEvent) Alert
}

// DefaultAlertRules are evaluated in order; the order is visible to
// subscribers because it decides broadcast order.
var DefaultAlertRules = []AlertRule{
	{
		Kind: RuleSpeedExceeded,
		Triggered: func(e *TelemetryEvent) bool {
			return e.Speed > e.AllowedSpeed
		},
		Alert: func(e *TelemetryEvent) Alert {
			return Alert{
				Kind:              RuleSpeedExceeded,
				DriverMessage:     "⚠ Speed limit exceeded! Reduce your speed.",
				PassengerMessage:  "⚠ The driver has exceeded the speed limit!",
				DispatcherMessage: fmt.Sprintf("⚠ Route driver %d exceeded the speed limit!", e.DriverID),
			}
		},
	},
	{
		Kind: RuleHardAcceleration,
		Triggered: func(e *TelemetryEvent) bool {
			return e.Acceleration > HardAccelerationThreshold
		},
		Alert: func(e *TelemetryEvent) Alert {
			return Alert{
				Kind:              RuleHardAcceleration,
				DriverMessage:     "⚠ Hard acceleration! Be careful.",
				DispatcherMessage: fmt.Sprintf("⚠ Route driver %d accelerated sharply.", e.DriverID),
			}
		},
	},
	{
		Kind: RuleHardBraking,
		Triggered: func(e *TelemetryEvent) bool {
			return e.BrakingForce > HardBrakingThreshold
		},
		Alert: func(e *TelemetryEvent) Alert {
			return Alert{
				Kind:              RuleHardBraking,
				DriverMessage:     "⚠ Dangerous braking! Ease off your driving style.",
				DispatcherMessage: fmt.Sprintf("⚠ Route driver %d braked hard.", e.DriverID),
			}
		},
	},
	{
		Kind: RuleRouteDeviation,
		Triggered: func(e *TelemetryEvent) bool {
			return e.Deviation > RouteDeviationThreshold
		},
		Alert: func(e *TelemetryEvent) Alert {
			return Alert{
				Kind:              RuleRouteDeviation,
				DriverMessage:     "⚠ You have left the route!",
				PassengerMessage:  "⚠ The vehicle is leaving the route!",
				DispatcherMessage: fmt.Sprintf("⚠ Route driver %d changed the route.", e.DriverID),
			}
		},
	},
}

// Evaluate applies DefaultAlertRules to e. It has no side effects.
func Evaluate(e TelemetryEvent) []Alert {
	return EvaluateRules(DefaultAlertRules, e)
}

func EvaluateRules(rules []AlertRule, e TelemetryEvent) []Alert {
	var alerts []Alert
	for _, rule := range rules {
		if rule.Triggered(&e) {
			alerts = append(alerts, rule.Alert(&e))
		}
	}
	return alerts
}

// NewBatch wraps the alerts raised by e. The batch is empty when no rule
// triggered.
func NewBatch(e TelemetryEvent, alerts []Alert) AlertBatch {
	return AlertBatch{
		EventID:     e.ID,
		DriverID:    e.DriverID,
		PassengerID: e.PassengerID,
		Alerts:      alerts,
		CreatedAt:   time.Now().UTC(),
	}
}
