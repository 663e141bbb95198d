package board

import (
	"math"

	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/status"
	"tracker.redline.org/internal/utils"
)

// Commute pairs each origin departure with the same trip's arrival at the destination,
// taken from route-wide predictions. The destination matches a stop id or a parent
// station id. Cancelled departures are skipped, as are trips with no usable arrival
// there.
func Commute(departures []DepartureRow, routePreds []models.Prediction, destinationStopID string) []CommuteRow {
	rows := []CommuteRow{}
	if destinationStopID == "" {
		return rows
	}

	arrivals := map[string]utils.Instant{}
	for _, p := range routePreds {
		if p.TripID == "" || !p.AtStop(destinationStopID) {
			continue
		}
		arrive := utils.FirstValid(p.Predicted(), p.Scheduled())
		if arrive.Valid() {
			arrivals[p.TripID] = arrive
		}
	}

	for _, d := range departures {
		if d.Status == status.Cancelled {
			continue
		}
		arrive, ok := arrivals[d.TripID]
		if !ok {
			continue
		}
		depart := utils.FirstValid(d.Estimated, d.Scheduled)
		travel, ok := arrive.Sub(depart)
		if !ok || travel < 0 {
			continue
		}
		rows = append(rows, CommuteRow{
			TripID:        d.TripID,
			Destination:   d.Destination,
			Depart:        depart,
			Arrive:        arrive,
			TravelMinutes: int(math.Round(travel.Minutes())),
		})
	}
	return rows
}
