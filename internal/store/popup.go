package store

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/simfleet/fleetview/internal/backend"
)

// popupTemplate renders the fixed key/value table shown in a marker popup.
// Values are escaped; entity ids come straight from the backend.
var popupTemplate = template.Must(template.New("popup").Parse(
	`<table class='table'><tbody>{{range .}}<tr><th>{{.Key}}</th><td>{{.Value}}</td></tr>{{end}}</tbody></table>`,
))

type popupRow struct {
	Key   string
	Value string
}

const missing = "-"

func renderPopup(rows []popupRow) string {
	var sb strings.Builder
	if err := popupTemplate.Execute(&sb, rows); err != nil {
		return ""
	}
	return sb.String()
}

func transportPopup(u *backend.UnitPayload) string {
	return renderPopup([]popupRow{
		{"NAME", u.ID},
		{"STATUS", u.Status.String()},
		{"FLEETNAME", orMissing(u.Fleet)},
		{"TYPE", orMissing(u.Service)},
		{"CUSTOMER", strPtr(u.Customer)},
		{"POSITION", formatLatLng(&u.Position)},
		{"DEST", formatLatLng(u.Dest)},
		{"ASSIGNMENTS", u.Assignments.String()},
		{"SPEED", floatPtr(u.Speed)},
		{"DISTANCE", u.Distance.String()},
		{"AUTONOMY", floatPtr(u.Autonomy) + " / " + floatPtr(u.MaxAutonomy)},
	})
}

func customerPopup(c *backend.RequesterPayload) string {
	return renderPopup([]popupRow{
		{"NAME", c.ID},
		{"STATUS", c.Status.String()},
		{"POSITION", formatLatLng(&c.Position)},
		{"DEST", formatLatLng(c.Dest)},
		{"TRANSPORT", strPtr(c.Transport)},
		{"WAITING", floatPtr(c.Waiting)},
	})
}

func stationPopup(s *backend.StationPayload) string {
	return renderPopup([]popupRow{
		{"NAME", s.ID},
		{"STATUS", s.Status.String()},
		{"POSITION", formatLatLng(&s.Position)},
		{"POWERCHARGE", s.Power.String() + "kW"},
		{"PLACES", s.Places.String()},
	})
}

func formatLatLng(p *backend.LatLng) string {
	if p == nil {
		return missing
	}
	return formatFloat(p[0]) + "," + formatFloat(p[1])
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func floatPtr(f *float64) string {
	if f == nil {
		return missing
	}
	return formatFloat(*f)
}

func strPtr(s *string) string {
	if s == nil || *s == "" {
		return missing
	}
	return *s
}

func orMissing(s string) string {
	if s == "" {
		return missing
	}
	return s
}
