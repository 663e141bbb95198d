package models

// Line is a map layer: a display name, the MBTA routes drawn under it and their colour.
type Line struct {
	Name     string   `json:"name" yaml:"name" validate:"required"`
	RouteIDs []string `json:"route_ids" yaml:"route_ids" validate:"required,min=1,dive,required"`
	Color    string   `json:"color" yaml:"color" validate:"required,hexcolor"`
}

// Commute configures the origin to destination travel table. The origin is the
// tracker's stop.
type Commute struct {
	DestinationStopID string `json:"destination_stop_id" yaml:"destination_stop_id"`
}

// Tracker is the user-facing configuration of what to follow. It is loaded from a
// JSON or YAML document on top of DefaultTracker.
type Tracker struct {
	RouteID                string    `json:"route_id" yaml:"route_id" validate:"required"`
	StopID                 string    `json:"stop_id" yaml:"stop_id" validate:"required"`
	DepartureDirection     Direction `json:"departure_direction" yaml:"departure_direction" validate:"oneof=0 1"`
	ArrivalDirection       Direction `json:"arrival_direction" yaml:"arrival_direction" validate:"oneof=0 1"`
	NearTermMinutes        int       `json:"near_term_minutes" yaml:"near_term_minutes" validate:"min=1"`
	FutureMinutes          int       `json:"future_minutes" yaml:"future_minutes" validate:"gtefield=NearTermMinutes"`
	DirectionLabels        []string  `json:"direction_labels" yaml:"direction_labels" validate:"len=2,dive,required"`
	OnTimeToleranceSeconds int       `json:"on_time_tolerance_seconds" yaml:"on_time_tolerance_seconds" validate:"min=0,max=59"`
	Lines                  []Line    `json:"lines" yaml:"lines" validate:"dive"`
	Commute                Commute   `json:"commute" yaml:"commute"`
	VehiclePositionsURL    string    `json:"vehicle_positions_url" yaml:"vehicle_positions_url" validate:"omitempty,url"`
	ShapesRefreshHours     int       `json:"shapes_refresh_hours" yaml:"shapes_refresh_hours" validate:"min=1"`
}

// DefaultTracker follows the Red Line at Alewife.
func DefaultTracker() Tracker {
	return Tracker{
		RouteID:            "Red",
		StopID:             "place-alfcl",
		DepartureDirection: 0,
		ArrivalDirection:   1,
		NearTermMinutes:    10,
		FutureMinutes:      60,
		DirectionLabels:    []string{"Southbound", "Northbound"},
		Lines: []Line{
			{Name: "Red", RouteIDs: []string{"Red"}, Color: "#DA291C"},
			{Name: "Green", RouteIDs: []string{"Green-B", "Green-C", "Green-D", "Green-E"}, Color: "#00843D"},
			{Name: "Blue", RouteIDs: []string{"Blue"}, Color: "#003DA5"},
			{Name: "Orange", RouteIDs: []string{"Orange"}, Color: "#ED8B00"},
			{Name: "Silver", RouteIDs: []string{"Silver"}, Color: "#7C8793"},
		},
		Commute:            Commute{DestinationStopID: "place-cntsq"},
		ShapesRefreshHours: 24,
	}
}

// RouteIDs returns every route drawn on the map, in line order, without duplicates.
func (t Tracker) RouteIDs() []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, line := range t.Lines {
		for _, id := range line.RouteIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
