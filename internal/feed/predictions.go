package feed

import (
	"tracker.redline.org/internal/jsonapi"
	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/status"
	"tracker.redline.org/internal/utils"
)

// Predictions maps prediction resources fetched with include=schedule,trip,stop,vehicle.
// Schedule times come from the included schedule; older payloads name them
// arrival/departure instead of arrival_time/departure_time.
func Predictions(records []jsonapi.Record) []models.Prediction {
	preds := make([]models.Prediction, 0, len(records))
	for _, rec := range records {
		attrs := rec.Attributes
		trip := rec.Rel("trip")
		stop := rec.Rel("stop")
		schedule := rec.Rel("schedule")

		p := models.Prediction{
			ID:                 rec.ID,
			Direction:          firstDirection(attrs, trip),
			Headsign:           trip.StringOr("headsign", models.UnknownText),
			StopName:           stopName(stop),
			PredictedArrival:   attrs.Instant("arrival_time"),
			PredictedDeparture: attrs.Instant("departure_time"),
			ScheduledArrival:   utils.FirstValid(schedule.Instant("arrival_time"), schedule.Instant("arrival")),
			ScheduledDeparture: utils.FirstValid(schedule.Instant("departure_time"), schedule.Instant("departure")),
			Status:             attrs.StringOr("status", ""),
		}
		p.RouteID, _ = rec.RelID("route")
		p.TripID, _ = rec.RelID("trip")
		p.StopID, _ = rec.RelID("stop")
		p.VehicleID, _ = rec.RelID("vehicle")
		p.ParentStationID, _ = stop.RefID("parent_station")
		p.StopSequence, _ = attrs.Int("stop_sequence")
		rel, _ := attrs.String("schedule_relationship")
		p.Cancelled = status.IsCancelled(rel, p.Status)

		preds = append(preds, p)
	}
	return preds
}
