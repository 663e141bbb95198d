package board

import (
	"strconv"
	"time"

	"tracker.redline.org/internal/models"
	"tracker.redline.org/internal/status"
)

const maxDescriptionRunes = 200

var severityLabels = map[int]string{
	1: "Information",
	2: "Warning",
	3: "Emergency",
}

// SeverityLabel names the MBTA severity levels the board knows; other levels are
// shown as their number.
func SeverityLabel(alert models.Alert) string {
	if !alert.HasSeverity {
		return models.UnknownText
	}
	if label, ok := severityLabels[alert.Severity]; ok {
		return label
	}
	return strconv.Itoa(alert.Severity)
}

// Alerts builds one row per alert. The row shows the period active at now, or the
// first period when none is.
func Alerts(alerts []models.Alert, now time.Time) []AlertRow {
	rows := make([]AlertRow, 0, len(alerts))
	for _, a := range alerts {
		row := AlertRow{
			ID:          a.ID,
			Severity:    SeverityLabel(a),
			Description: description(a),
			Status:      status.Inactive,
		}
		for i, p := range a.Periods {
			if i == 0 {
				row.Start, row.End = p.Start, p.End
			}
			if status.AlertStatus(p.Start, p.End, now) == status.Active {
				row.Start, row.End, row.Status = p.Start, p.End, status.Active
				break
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func description(a models.Alert) string {
	text := a.Description
	if text == "" {
		text = a.ShortHeader
	}
	if text == "" {
		text = a.Header
	}
	if r := []rune(text); len(r) > maxDescriptionRunes {
		return string(r[:maxDescriptionRunes])
	}
	return text
}
