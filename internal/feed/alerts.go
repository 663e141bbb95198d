package feed

import (
	"tracker.redline.org/internal/jsonapi"
	"tracker.redline.org/internal/models"
)

// Alerts maps alert resources.
func Alerts(records []jsonapi.Record) []models.Alert {
	alerts := make([]models.Alert, 0, len(records))
	for _, rec := range records {
		attrs := rec.Attributes
		alert := models.Alert{
			ID:          rec.ID,
			Header:      attrs.StringOr("header", ""),
			ShortHeader: attrs.StringOr("short_header", ""),
			Description: attrs.StringOr("description", ""),
			Effect:      attrs.StringOr("effect", ""),
			Lifecycle:   attrs.StringOr("lifecycle", ""),
			Periods:     []models.ActivePeriod{},
		}
		alert.Severity, alert.HasSeverity = attrs.Int("severity")
		for _, p := range attrs.List("active_period") {
			alert.Periods = append(alert.Periods, models.ActivePeriod{
				Start: p.Instant("start"),
				End:   p.Instant("end"),
			})
		}
		alerts = append(alerts, alert)
	}
	return alerts
}
