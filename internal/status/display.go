package status

// pathColors colours the path overlay of a moving unit
var pathColors = map[Code]string{
	TransportMovingToCustomer:    "rgb(255, 170, 0)",
	TransportMovingToDestination: "rgb(0, 149, 255)",
	TransportMovingToStation:     "rgb(0, 255, 15)",
	VehicleMovingToDestination:   "rgb(0, 149, 255)",
}

// PathColor returns the overlay colour for a unit status.
// ok is false when the renderer should fall back to its default stroke.
func PathColor(c Code) (color string, ok bool) {
	color, ok = pathColors[c]
	return color, ok
}

// Indicator describes the sidebar status dot next to an entity
type Indicator struct {
	State string `json:"state"` // "", "positive", "intermediary", "active"
	Pulse bool   `json:"pulse"`
}

// Indicator states
const (
	IndicatorDefault      = ""
	IndicatorPositive     = "positive"
	IndicatorIntermediary = "intermediary"
	IndicatorActive       = "active"
)

var indicators = map[Code]Indicator{
	TransportWaiting:             {State: IndicatorPositive},
	TransportWaitingForApproval:  {State: IndicatorIntermediary},
	TransportMovingToCustomer:    {State: IndicatorIntermediary, Pulse: true},
	TransportMovingToDestination: {State: IndicatorActive, Pulse: true},
	CustomerWaiting:              {State: IndicatorDefault},
	CustomerAssigned:             {State: IndicatorIntermediary},
	CustomerInTransport:          {State: IndicatorActive, Pulse: true},
	CustomerInDest:               {State: IndicatorPositive},

	TransportArrivedAtCustomer:    {State: IndicatorIntermediary},
	TransportArrivedAtDestination: {State: IndicatorPositive},
	TransportNeedsCharging:        {State: IndicatorIntermediary},
	CustomerMovingToDest:          {State: IndicatorActive, Pulse: true},
	CustomerInStop:                {State: IndicatorIntermediary},
	VehicleWaiting:                {State: IndicatorPositive},
	VehicleMovingToDestination:    {State: IndicatorActive, Pulse: true},
	VehicleInDest:                 {State: IndicatorPositive},
}

// IndicatorFor returns the sidebar dot for a status; ok is false when none is drawn
func IndicatorFor(c Code) (Indicator, bool) {
	ind, ok := indicators[c]
	return ind, ok
}

// Resolved reports whether a requester no longer needs a marker of its own
// (it is riding, delivered, or parked at its final location).
func Resolved(c Code) bool {
	switch c {
	case CustomerInTransport, CustomerMovingToDest, CustomerInDest, CustomerLocation:
		return true
	}
	return false
}

// EntityKind is the collection an entity is reconciled into
type EntityKind string

const (
	EntityTransport EntityKind = "transport"
	EntityVehicle   EntityKind = "vehicle"
	EntityCustomer  EntityKind = "customer"
	EntityStation   EntityKind = "station"
)

// Visible computes marker visibility for an entity of the given kind
func Visible(kind EntityKind, c Code) bool {
	switch kind {
	case EntityCustomer:
		return !Resolved(c)
	case EntityTransport, EntityVehicle:
		return c != TransportLoading
	}
	return true
}
