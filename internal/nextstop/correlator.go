// Package nextstop joins vehicle positions with route-wide predictions to find where
// each vehicle is headed next.
package nextstop

import (
	"math"
	"time"

	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/utils"
)

// DirectionLabels names direction 0 and direction 1.
type DirectionLabels [2]string

// DefaultLabels fit the Red Line.
var DefaultLabels = DirectionLabels{"Southbound", "Northbound"}

// Label maps a direction to its label. Directions other than 0 and 1, and directions
// with an empty label, are Unknown.
func (l DirectionLabels) Label(d models.Direction) string {
	if !d.Known() || l[d] == "" {
		return models.UnknownText
	}
	return l[d]
}

// Correlator enriches vehicles with their next stop. The zero value uses DefaultLabels.
type Correlator struct {
	Labels DirectionLabels
}

type candidate struct {
	pred models.Prediction
	when utils.Instant
}

// Correlate returns exactly one EnrichedVehicle per vehicle, in input order.
//
// A vehicle's candidates are its predictions for a stop other than its current one
// whose time (predicted arrival, else predicted departure, else scheduled) is strictly
// after now. The earliest candidate wins, ties going to the smaller stop id. Cancelled
// and skipped stops are never candidates. Without a candidate the next-stop fields are
// Unknown or absent.
func (c Correlator) Correlate(vehicles []models.VehicleSnapshot, preds []models.Prediction, now time.Time) []models.EnrichedVehicle {
	labels := c.Labels
	if labels == (DirectionLabels{}) {
		labels = DefaultLabels
	}

	byVehicle := make(map[string][]models.Prediction)
	for _, p := range preds {
		if p.VehicleID == "" || p.Cancelled {
			continue
		}
		byVehicle[p.VehicleID] = append(byVehicle[p.VehicleID], p)
	}

	out := make([]models.EnrichedVehicle, 0, len(vehicles))
	for _, v := range vehicles {
		ev := models.EnrichedVehicle{
			VehicleID:      v.ID,
			Label:          v.Label,
			Lat:            v.Lat,
			Lon:            v.Lon,
			DirectionLabel: labels.Label(v.Direction),
			Destination:    orUnknown(v.Destination),
			CurrentStop:    orUnknown(v.CurrentStopName),
			NextStopName:   models.UnknownText,
		}
		if v.HasBearing {
			bearing := v.Bearing
			ev.Bearing = &bearing
		}

		if best, ok := nextFor(v, byVehicle[v.ID], now); ok {
			ev.NextStopName = orUnknown(best.pred.StopName)
			ev.NextStopTime = best.when
			if behind, ok := best.pred.Predicted().Sub(best.pred.Scheduled()); ok {
				minutes := math.Round(behind.Minutes()*10) / 10
				ev.MinutesBehind = &minutes
			}
		}
		out = append(out, ev)
	}
	return out
}

func nextFor(v models.VehicleSnapshot, preds []models.Prediction, now time.Time) (candidate, bool) {
	var best candidate
	found := false
	for _, p := range preds {
		if p.StopID == v.CurrentStopID {
			continue
		}
		when := utils.FirstValid(p.Predicted(), p.Scheduled())
		if !when.Valid() || !when.Time().After(now) {
			continue
		}
		if !found || earlier(when, p.StopID, best) {
			best = candidate{pred: p, when: when}
			found = true
		}
	}
	return best, found
}

func earlier(when utils.Instant, stopID string, than candidate) bool {
	if !when.Time().Equal(than.when.Time()) {
		return when.Time().Before(than.when.Time())
	}
	return stopID < than.pred.StopID
}

func orUnknown(s string) string {
	if s == "" {
		return models.UnknownText
	}
	return s
}
