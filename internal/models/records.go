package models

import (
	"tracker.redline.org/internal/utils"
)

// UnknownText is shown wherever a value could not be resolved from the feed.
const UnknownText = "Unknown"

// Direction is the MBTA direction_id of a trip. Only 0 and 1 are meaningful.
type Direction int

// DirectionUnknown marks a record whose direction_id was missing or not an integer.
const DirectionUnknown Direction = -1

// Known reports whether d is 0 or 1.
func (d Direction) Known() bool {
	return d == 0 || d == 1
}

// ActivePeriod is one active window of an alert. End is absent for open-ended alerts.
type ActivePeriod struct {
	Start utils.Instant
	End   utils.Instant
}

// Alert is a normalized service alert.
type Alert struct {
	ID          string
	Severity    int
	HasSeverity bool
	Header      string
	ShortHeader string
	Description string
	Effect      string
	Lifecycle   string
	Periods     []ActivePeriod
}

// Prediction is a normalized prediction with its trip, stop and schedule inlined.
type Prediction struct {
	ID              string
	RouteID         string
	TripID          string
	StopID          string
	StopName        string
	ParentStationID string
	VehicleID       string
	Direction       Direction
	Headsign        string
	StopSequence    int

	ScheduledArrival   utils.Instant
	ScheduledDeparture utils.Instant
	PredictedArrival   utils.Instant
	PredictedDeparture utils.Instant

	Status    string
	Cancelled bool
}

// Scheduled is the scheduled arrival, or the scheduled departure at a first stop.
func (p Prediction) Scheduled() utils.Instant {
	return utils.FirstValid(p.ScheduledArrival, p.ScheduledDeparture)
}

// Predicted is the predicted arrival, or the predicted departure at a first stop.
func (p Prediction) Predicted() utils.Instant {
	return utils.FirstValid(p.PredictedArrival, p.PredictedDeparture)
}

// AtStop reports whether the prediction is for stopID directly or for one of its
// child platforms.
func (p Prediction) AtStop(stopID string) bool {
	return stopID != "" && (p.StopID == stopID || p.ParentStationID == stopID)
}

// VehicleSnapshot is one vehicle position with its trip and current stop inlined.
type VehicleSnapshot struct {
	ID              string
	Label           string
	RouteID         string
	Lat             float64
	Lon             float64
	Bearing         float64
	HasBearing      bool
	CurrentStatus   string
	CurrentStopID   string
	CurrentStopName string
	TripID          string
	Direction       Direction
	Destination     string
}

// EnrichedVehicle is a vehicle marker ready for the map, joined with its next stop.
type EnrichedVehicle struct {
	VehicleID      string        `json:"vehicle_id"`
	Label          string        `json:"label,omitempty"`
	Lat            float64       `json:"lat"`
	Lon            float64       `json:"lon"`
	Bearing        *float64      `json:"bearing"`
	DirectionLabel string        `json:"direction_label"`
	Destination    string        `json:"destination"`
	CurrentStop    string        `json:"current_stop"`
	NextStopName   string        `json:"next_stop_name"`
	NextStopTime   utils.Instant `json:"next_stop_time"`
	MinutesBehind  *float64      `json:"minutes_behind"`
}
