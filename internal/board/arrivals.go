package board

import (
	"sort"

	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/utils"
)

// Arrivals lists predictions arriving in the given direction within window, soonest
// first. The arrival time is the predicted arrival, else scheduled arrival, else
// predicted departure. Current stop comes from the vehicle snapshot; untracked
// vehicles show Unknown.
func (b Builder) Arrivals(preds []models.Prediction, vehicles []models.VehicleSnapshot, dir models.Direction, window Window) []ArrivalRow {
	currentStop := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		currentStop[v.ID] = v.CurrentStopName
	}

	type keyed struct {
		row  ArrivalRow
		when utils.Instant
	}
	var keyedRows []keyed
	for _, p := range preds {
		if p.Direction != dir {
			continue
		}
		when := utils.FirstValid(p.PredictedArrival, p.ScheduledArrival, p.PredictedDeparture)
		if !window.Contains(when) {
			continue
		}
		estimated := utils.FirstValid(p.PredictedArrival, p.PredictedDeparture)
		res := b.Classifier.Classify(p.ScheduledArrival, estimated, p.Cancelled)
		stop, ok := currentStop[p.VehicleID]
		if !ok || p.VehicleID == "" {
			stop = models.UnknownText
		}
		keyedRows = append(keyedRows, keyed{
			row: ArrivalRow{
				TripID:      p.TripID,
				VehicleID:   p.VehicleID,
				CurrentStop: stop,
				Scheduled:   p.ScheduledArrival,
				Estimated:   estimated,
				Status:      res.Status,
				Delta:       delta(res),
			},
			when: when,
		})
	}

	sort.SliceStable(keyedRows, func(i, j int) bool {
		ti, tj := keyedRows[i].when.Time(), keyedRows[j].when.Time()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return keyedRows[i].row.TripID < keyedRows[j].row.TripID
	})

	rows := make([]ArrivalRow, 0, len(keyedRows))
	for _, k := range keyedRows {
		rows = append(rows, k.row)
	}
	return rows
}

// Arrivals uses a zero-tolerance classifier.
func Arrivals(preds []models.Prediction, vehicles []models.VehicleSnapshot, dir models.Direction, window Window) []ArrivalRow {
	return Builder{}.Arrivals(preds, vehicles, dir, window)
}
