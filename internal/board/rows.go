// Package board builds the tabular records shown on the tracker board: alerts,
// departures, arrivals and the commute table.
package board

import (
	"tracker.redline.org/internal/status"
	"tracker.redline.org/internal/utils"
)

type AlertRow struct {
	ID          string        `json:"id"`
	Severity    string        `json:"severity"`
	Description string        `json:"description"`
	Start       utils.Instant `json:"start"`
	End         utils.Instant `json:"end"`
	Status      status.Status `json:"status"`
}

type DepartureRow struct {
	TripID      string        `json:"trip_id"`
	Destination string        `json:"destination"`
	Scheduled   utils.Instant `json:"scheduled"`
	Estimated   utils.Instant `json:"estimated"`
	Status      status.Status `json:"status"`
	Delta       *int          `json:"delta_minutes"`
}

type ArrivalRow struct {
	TripID      string        `json:"trip_id"`
	VehicleID   string        `json:"vehicle_id"`
	CurrentStop string        `json:"current_stop"`
	Scheduled   utils.Instant `json:"scheduled"`
	Estimated   utils.Instant `json:"estimated"`
	Status      status.Status `json:"status"`
	Delta       *int          `json:"delta_minutes"`
}

// CommuteRow is one trip from the origin stop to the commute destination.
type CommuteRow struct {
	TripID        string        `json:"trip_id"`
	Destination   string        `json:"destination"`
	Depart        utils.Instant `json:"depart"`
	Arrive        utils.Instant `json:"arrive"`
	TravelMinutes int           `json:"travel_minutes"`
}

func delta(r status.Result) *int {
	if !r.HasDelta {
		return nil
	}
	d := r.DeltaMinutes
	return &d
}
