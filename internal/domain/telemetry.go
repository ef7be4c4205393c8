package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DefaultAllowedSpeed applies when a sample carries no speed limit.
const DefaultAllowedSpeed = 80.0

var ErrMalformedEvent = errors.New("malformed telemetry event")

// TelemetryEvent is one driving-behaviour sample. Treat it as a value: it is
// never modified after decoding.
type TelemetryEvent struct {
	ID          int64 `json:"id"`
	DriverID    int64 `json:"driverId"`
	PassengerID int64 `json:"passengerId"`

	Speed        float64 `json:"speed"`
	Acceleration float64 `json:"acceleration"`
	BrakingForce float64 `json:"brakingForce"`
	Deviation    float64 `json:"deviation"`
	AllowedSpeed float64 `json:"allowedSpeed"`
}

// telemetryPayload mirrors the wire format. Pointers let decoding tell a
// missing field from a zero reading; the snake_case names are accepted for
// older mobile clients.
type telemetryPayload struct {
	ID          *int64 `json:"id"`
	DriverID    *int64 `json:"driverId"`
	PassengerID *int64 `json:"passengerId"`

	Speed        *float64 `json:"speed"`
	Acceleration *float64 `json:"acceleration"`
	BrakingForce *float64 `json:"brakingForce"`
	Deviation    *float64 `json:"deviation"`
	AllowedSpeed *float64 `json:"allowedSpeed"`

	BrakingForceSnake *float64 `json:"braking_force"`
	AllowedSpeedSnake *float64 `json:"allowed_speed"`
}

// DecodeTelemetry reads one JSON telemetry sample. Every failure wraps
// ErrMalformedEvent.
func DecodeTelemetry(r io.Reader) (TelemetryEvent, error) {
	var p telemetryPayload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return TelemetryEvent{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return p.toEvent()
}

func (p *telemetryPayload) toEvent() (TelemetryEvent, error) {
	braking := firstSet(p.BrakingForce, p.BrakingForceSnake)
	allowed := firstSet(p.AllowedSpeed, p.AllowedSpeedSnake)

	required := []struct {
		name string
		ok   bool
	}{
		{"id", p.ID != nil},
		{"driverId", p.DriverID != nil},
		{"passengerId", p.PassengerID != nil},
		{"speed", p.Speed != nil},
		{"acceleration", p.Acceleration != nil},
		{"brakingForce", braking != nil},
		{"deviation", p.Deviation != nil},
	}
	for _, f := range required {
		if !f.ok {
			return TelemetryEvent{}, fmt.Errorf("%w: %s required", ErrMalformedEvent, f.name)
		}
	}

	ev := TelemetryEvent{
		ID:           *p.ID,
		DriverID:     *p.DriverID,
		PassengerID:  *p.PassengerID,
		Speed:        *p.Speed,
		Acceleration: *p.Acceleration,
		BrakingForce: *braking,
		Deviation:    *p.Deviation,
		AllowedSpeed: DefaultAllowedSpeed,
	}
	if allowed != nil {
		ev.AllowedSpeed = *allowed
	}

	if err := ev.Valid(); err != nil {
		return TelemetryEvent{}, err
	}
	return ev, nil
}

// Valid returns an error wrapping ErrMalformedEvent if the event cannot be
// routed.
func (e TelemetryEvent) Valid() error {
	if e.DriverID < 0 {
		return fmt.Errorf("%w: driverId cannot be negative", ErrMalformedEvent)
	}
	if e.PassengerID < 0 {
		return fmt.Errorf("%w: passengerId cannot be negative", ErrMalformedEvent)
	}
	return nil
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
