package board

import (
	"sort"

	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/status"
	"tracker.redline.org/internal/utils"
)

// Builder builds board rows with a configured status classifier.
type Builder struct {
	Classifier status.Classifier
}

// Departures lists predictions leaving in the given direction, soonest first. The
// sort time is the predicted departure, else predicted arrival, else scheduled
// departure; rows with none of them are left out, as are rows outside window.
func (b Builder) Departures(preds []models.Prediction, dir models.Direction, window Window) []DepartureRow {
	type keyed struct {
		row  DepartureRow
		sort utils.Instant
	}
	var keyedRows []keyed
	for _, p := range preds {
		if p.Direction != dir {
			continue
		}
		estimated := utils.FirstValid(p.PredictedDeparture, p.PredictedArrival)
		sortTime := utils.FirstValid(estimated, p.ScheduledDeparture)
		if !sortTime.Valid() || !window.Contains(sortTime) {
			continue
		}
		res := b.Classifier.Classify(p.ScheduledDeparture, estimated, p.Cancelled)
		keyedRows = append(keyedRows, keyed{
			row: DepartureRow{
				TripID:      p.TripID,
				Destination: p.Headsign,
				Scheduled:   p.ScheduledDeparture,
				Estimated:   estimated,
				Status:      res.Status,
				Delta:       delta(res),
			},
			sort: sortTime,
		})
	}

	sort.SliceStable(keyedRows, func(i, j int) bool {
		ti, tj := keyedRows[i].sort.Time(), keyedRows[j].sort.Time()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return keyedRows[i].row.TripID < keyedRows[j].row.TripID
	})

	rows := make([]DepartureRow, 0, len(keyedRows))
	for _, k := range keyedRows {
		rows = append(rows, k.row)
	}
	return rows
}

// Departures uses a zero-tolerance classifier.
func Departures(preds []models.Prediction, dir models.Direction, window Window) []DepartureRow {
	return Builder{}.Departures(preds, dir, window)
}
