// Package pipeline runs one refresh cycle: raw feed payloads in, a Snapshot out. It
// performs no I/O, keeps no state between calls and is safe to call concurrently.
package pipeline

import (
	"fmt"
	"time"

	"tracker.redline.org/internal/board"
	"tracker.redline.org/internal/feed"
	"tracker.redline.org/internal/jsonapi"
	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/nextstop"
	"tracker.redline.org/internal/status"
)

// Feed names, used in errors, stats and metric labels.
const (
	FeedAlerts           = "alerts"
	FeedStopPredictions  = "stop_predictions"
	FeedRoutePredictions = "route_predictions"
	FeedVehicles         = "vehicles"
	FeedShapes           = "shapes"
)

// FeedError reports a payload that could not be parsed at all.
type FeedError struct {
	Feed string
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s: %v", e.Feed, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// Inputs are the payloads of one cycle. A nil payload means the feed was not fetched
// and is treated as empty.
type Inputs struct {
	Alerts           []byte
	StopPredictions  []byte
	RoutePredictions []byte
	Vehicles         []byte

	// VehicleSnapshots replaces the Vehicles payload when non-nil, e.g. positions
	// read from a GTFS-RT feed.
	VehicleSnapshots []models.VehicleSnapshot

	// Lines are the merged map layers, rebuilt by Lines only when shapes change.
	Lines []models.LineGeometry
}

// Stats counts what the cycle had to drop or could not resolve.
type Stats struct {
	Skipped    map[string]int `json:"skipped"`
	Unresolved int            `json:"unresolved"`
}

// Snapshot is everything one cycle produces.
type Snapshot struct {
	Now              time.Time                `json:"now"`
	RouteID          string                   `json:"route_id"`
	StopID           string                   `json:"stop_id"`
	Alerts           []board.AlertRow         `json:"alerts"`
	Departures       []board.DepartureRow     `json:"departures"`
	NearTermArrivals []board.ArrivalRow       `json:"near_term_arrivals"`
	FutureArrivals   []board.ArrivalRow       `json:"future_arrivals"`
	Commute          []board.CommuteRow       `json:"commute"`
	Vehicles         []models.EnrichedVehicle `json:"vehicles"`
	Lines            []models.LineGeometry    `json:"lines"`
	Stats            Stats                    `json:"stats"`
}

// ActiveAlerts counts alerts active at Now.
func (s *Snapshot) ActiveAlerts() int {
	n := 0
	for _, a := range s.Alerts {
		if a.Status == status.Active {
			n++
		}
	}
	return n
}

// Correlated counts vehicles with a known next stop.
func (s *Snapshot) Correlated() int {
	n := 0
	for _, v := range s.Vehicles {
		if v.NextStopTime.Valid() {
			n++
		}
	}
	return n
}

// Run builds a Snapshot for now. Only a structurally invalid payload is an error, and
// it is returned as a *FeedError naming the feed.
func Run(in Inputs, tracker models.Tracker, now time.Time) (*Snapshot, error) {
	now = now.UTC()
	stats := Stats{Skipped: map[string]int{}}

	alertRecords, err := resolve(FeedAlerts, in.Alerts, &stats)
	if err != nil {
		return nil, err
	}
	stopRecords, err := resolve(FeedStopPredictions, in.StopPredictions, &stats)
	if err != nil {
		return nil, err
	}
	routeRecords, err := resolve(FeedRoutePredictions, in.RoutePredictions, &stats)
	if err != nil {
		return nil, err
	}

	alerts := feed.Alerts(alertRecords)
	stopPreds := feed.Predictions(stopRecords)
	routePreds := feed.Predictions(routeRecords)
	stats.Unresolved += jsonapi.Unresolved(stopRecords, feed.PredictionRelationships...)
	stats.Unresolved += jsonapi.Unresolved(routeRecords, feed.PredictionRelationships...)

	var vehicles []models.VehicleSnapshot
	if in.VehicleSnapshots != nil {
		known := append(append([]models.Prediction{}, routePreds...), stopPreds...)
		vehicles = fillNames(in.VehicleSnapshots, known)
	} else {
		vehicleRecords, err := resolve(FeedVehicles, in.Vehicles, &stats)
		if err != nil {
			return nil, err
		}
		var dropped int
		vehicles, dropped = feed.Vehicles(vehicleRecords)
		stats.Skipped[FeedVehicles] += dropped
		stats.Unresolved += jsonapi.Unresolved(vehicleRecords, feed.VehicleRelationships...)
	}

	builder := board.Builder{Classifier: status.Classifier{
		Tolerance: time.Duration(tracker.OnTimeToleranceSeconds) * time.Second,
	}}
	departures := builder.Departures(stopPreds, tracker.DepartureDirection, board.Window{})
	nearTerm := board.Next(now, time.Duration(tracker.NearTermMinutes)*time.Minute)
	future := board.Next(now, time.Duration(tracker.FutureMinutes)*time.Minute)

	lines := in.Lines
	if lines == nil {
		lines = []models.LineGeometry{}
	}

	return &Snapshot{
		Now:              now,
		RouteID:          tracker.RouteID,
		StopID:           tracker.StopID,
		Alerts:           board.Alerts(alerts, now),
		Departures:       departures,
		NearTermArrivals: builder.Arrivals(stopPreds, vehicles, tracker.ArrivalDirection, nearTerm),
		FutureArrivals:   builder.Arrivals(stopPreds, vehicles, tracker.ArrivalDirection, future),
		Commute:          board.Commute(departures, routePreds, tracker.Commute.DestinationStopID),
		Vehicles:         nextstop.Correlator{Labels: labels(tracker.DirectionLabels)}.Correlate(vehicles, routePreds, now),
		Lines:            lines,
		Stats:            stats,
	}, nil
}

func resolve(name string, payload []byte, stats *Stats) ([]jsonapi.Record, error) {
	if payload == nil {
		return []jsonapi.Record{}, nil
	}
	doc, err := jsonapi.Parse(payload)
	if err != nil {
		return nil, &FeedError{Feed: name, Err: err}
	}
	if doc.Skipped > 0 {
		stats.Skipped[name] += doc.Skipped
	}
	return doc.Resolve(), nil
}

func labels(configured []string) nextstop.DirectionLabels {
	if len(configured) != 2 {
		return nextstop.DefaultLabels
	}
	return nextstop.DirectionLabels{configured[0], configured[1]}
}

// fillNames completes vehicles from a source without stop names or headsigns, using
// what the predictions know about the same stops and trips. Inputs are not modified.
func fillNames(vehicles []models.VehicleSnapshot, preds []models.Prediction) []models.VehicleSnapshot {
	stopNames := map[string]string{}
	headsigns := map[string]string{}
	for _, p := range preds {
		if p.StopID != "" && p.StopName != "" && p.StopName != models.UnknownText {
			if _, ok := stopNames[p.StopID]; !ok {
				stopNames[p.StopID] = p.StopName
			}
		}
		if p.TripID != "" && p.Headsign != "" && p.Headsign != models.UnknownText {
			if _, ok := headsigns[p.TripID]; !ok {
				headsigns[p.TripID] = p.Headsign
			}
		}
	}

	out := make([]models.VehicleSnapshot, 0, len(vehicles))
	for _, v := range vehicles {
		if v.CurrentStopName == "" || v.CurrentStopName == models.UnknownText {
			v.CurrentStopName = models.UnknownText
			if name, ok := stopNames[v.CurrentStopID]; ok {
				v.CurrentStopName = name
			}
		}
		if v.Destination == "" || v.Destination == models.UnknownText {
			v.Destination = models.UnknownText
			if hs, ok := headsigns[v.TripID]; ok {
				v.Destination = hs
			}
		}
		out = append(out, v)
	}
	return out
}
