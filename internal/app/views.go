package app

import (
	"time"

	"tracker.redline.org/internal/board"
	"tracker.redline.org/internal/geo"
	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/pipeline"
	"tracker.redline.org/internal/status"
	"tracker.redline.org/internal/utils"
)

// alertTimeLayout renders alert periods, which can span days.
const alertTimeLayout = "2006-01-02 15:04"

type alertView struct {
	ID          string        `json:"id"`
	Severity    string        `json:"severity"`
	Description string        `json:"description"`
	Start       string        `json:"start"`
	End         string        `json:"end"`
	Status      status.Status `json:"status"`
}

type departureView struct {
	TripID      string        `json:"trip_id"`
	Destination string        `json:"destination"`
	Scheduled   string        `json:"scheduled"`
	Estimated   string        `json:"estimated"`
	Status      status.Status `json:"status"`
	Delta       *int          `json:"delta_minutes"`
}

type arrivalView struct {
	TripID      string        `json:"trip_id"`
	VehicleID   string        `json:"vehicle_id"`
	CurrentStop string        `json:"current_stop"`
	Scheduled   string        `json:"scheduled"`
	Estimated   string        `json:"estimated"`
	Status      status.Status `json:"status"`
	Delta       *int          `json:"delta_minutes"`
}

type boardView struct {
	GeneratedAt      string          `json:"generated_at"`
	RouteID          string          `json:"route_id"`
	StopID           string          `json:"stop_id"`
	Alerts           []alertView     `json:"alerts"`
	Departures       []departureView `json:"departures"`
	NearTermArrivals []arrivalView   `json:"near_term_arrivals"`
	FutureArrivals   []arrivalView   `json:"future_arrivals"`
}

type vehicleView struct {
	models.EnrichedVehicle
	NextStopClock string `json:"next_stop_clock"`
}

type mapView struct {
	GeneratedAt string                `json:"generated_at"`
	Vehicles    []vehicleView         `json:"vehicles"`
	Lines       []models.LineGeometry `json:"lines"`

	// Bounds covers the lines and every vehicle. It is absent when no line has a
	// drawable point.
	Bounds *geo.BoundingBox `json:"bounds,omitempty"`
}

type commuteRowView struct {
	TripID        string `json:"trip_id"`
	Destination   string `json:"destination"`
	Depart        string `json:"depart"`
	Arrive        string `json:"arrive"`
	TravelMinutes int    `json:"travel_minutes"`
}

type commuteView struct {
	GeneratedAt   string           `json:"generated_at"`
	OriginStopID  string           `json:"origin_stop_id"`
	DestinationID string           `json:"destination_stop_id"`
	Trips         []commuteRowView `json:"trips"`
}

func formatDateTime(i utils.Instant, loc *time.Location) string {
	if !i.Valid() {
		return utils.NoTime
	}
	return i.Time().In(loc).Format(alertTimeLayout)
}

func generatedAt(snap *pipeline.Snapshot, loc *time.Location) string {
	return snap.Now.In(loc).Format(time.RFC3339)
}

func newBoardView(snap *pipeline.Snapshot, loc *time.Location) boardView {
	v := boardView{
		GeneratedAt:      generatedAt(snap, loc),
		RouteID:          snap.RouteID,
		StopID:           snap.StopID,
		Alerts:           make([]alertView, 0, len(snap.Alerts)),
		Departures:       make([]departureView, 0, len(snap.Departures)),
		NearTermArrivals: arrivalViews(snap.NearTermArrivals, loc),
		FutureArrivals:   arrivalViews(snap.FutureArrivals, loc),
	}
	for _, a := range snap.Alerts {
		v.Alerts = append(v.Alerts, alertView{
			ID:          a.ID,
			Severity:    a.Severity,
			Description: a.Description,
			Start:       formatDateTime(a.Start, loc),
			End:         formatDateTime(a.End, loc),
			Status:      a.Status,
		})
	}
	for _, d := range snap.Departures {
		v.Departures = append(v.Departures, departureView{
			TripID:      d.TripID,
			Destination: d.Destination,
			Scheduled:   utils.FormatClock(d.Scheduled, loc),
			Estimated:   utils.FormatClock(d.Estimated, loc),
			Status:      d.Status,
			Delta:       d.Delta,
		})
	}
	return v
}

func arrivalViews(rows []board.ArrivalRow, loc *time.Location) []arrivalView {
	out := make([]arrivalView, 0, len(rows))
	for _, a := range rows {
		out = append(out, arrivalView{
			TripID:      a.TripID,
			VehicleID:   a.VehicleID,
			CurrentStop: a.CurrentStop,
			Scheduled:   utils.FormatClock(a.Scheduled, loc),
			Estimated:   utils.FormatClock(a.Estimated, loc),
			Status:      a.Status,
			Delta:       a.Delta,
		})
	}
	return out
}

func newMapView(snap *pipeline.Snapshot, loc *time.Location) mapView {
	v := mapView{
		GeneratedAt: generatedAt(snap, loc),
		Vehicles:    make([]vehicleView, 0, len(snap.Vehicles)),
		Lines:       snap.Lines,
	}
	if v.Lines == nil {
		v.Lines = []models.LineGeometry{}
	}
	for _, vehicle := range snap.Vehicles {
		v.Vehicles = append(v.Vehicles, vehicleView{
			EnrichedVehicle: vehicle,
			NextStopClock:   utils.FormatClock(vehicle.NextStopTime, loc),
		})
	}

	var routes []models.RouteGeometry
	for _, line := range v.Lines {
		routes = append(routes, line.Routes...)
	}
	if box, err := geo.ComputeBoundingBox(routes); err == nil {
		for _, vehicle := range snap.Vehicles {
			box.Extend(vehicle.Lat, vehicle.Lon)
		}
		v.Bounds = &box
	}
	return v
}

func newCommuteView(snap *pipeline.Snapshot, destination string, loc *time.Location) commuteView {
	v := commuteView{
		GeneratedAt:   generatedAt(snap, loc),
		OriginStopID:  snap.StopID,
		DestinationID: destination,
		Trips:         make([]commuteRowView, 0, len(snap.Commute)),
	}
	for _, c := range snap.Commute {
		v.Trips = append(v.Trips, commuteRowView{
			TripID:        c.TripID,
			Destination:   c.Destination,
			Depart:        utils.FormatClock(c.Depart, loc),
			Arrive:        utils.FormatClock(c.Arrive, loc),
			TravelMinutes: c.TravelMinutes,
		})
	}
	return v
}
