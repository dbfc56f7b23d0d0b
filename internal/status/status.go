// Package status holds the canonical status enumeration reported by the
// simulation backend and the static display tables keyed by it.
package status

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Code is the canonical status of a unit, requester or station
type Code int

const (
	Unknown Code = 0

	TransportWaiting                   Code = 10
	TransportMovingToCustomer          Code = 11
	TransportInCustomerPlace           Code = 12
	TransportMovingToDestination       Code = 13
	TransportWaitingForApproval        Code = 14
	TransportMovingToStation           Code = 15
	TransportInStationPlace            Code = 16
	TransportWaitingForStationApproval Code = 17
	TransportLoading                   Code = 18
	TransportLoaded                    Code = 19

	CustomerWaiting     Code = 20
	CustomerInTransport Code = 21
	CustomerInDest      Code = 22
	CustomerLocation    Code = 23
	CustomerAssigned    Code = 24

	FreeStation Code = 30
	BusyStation Code = 31

	// Codes 40 and up are only ever reported by name.
	TransportArrivedAtCustomer    Code = 40
	TransportArrivedAtDestination Code = 41
	TransportInWaitingList        Code = 42
	TransportNeedsCharging        Code = 43
	TransportInDest               Code = 44
	TransportBoarding             Code = 45

	CustomerWaitingToMove      Code = 50
	CustomerMovingToDest       Code = 51
	CustomerInStop             Code = 52
	CustomerWaitingForApproval Code = 53

	VehicleWaiting             Code = 60
	VehicleMovingToDestination Code = 61
	VehicleInDest              Code = 62
)

// lastNumeric is the highest code the backend sends as a number
const lastNumeric = BusyStation

// Kind groups codes by the entity family they describe
type Kind string

const (
	KindUnknown   Kind = ""
	KindTransport Kind = "transport"
	KindCustomer  Kind = "customer"
	KindStation   Kind = "station"
	KindVehicle   Kind = "vehicle"
)

var names = map[Code]string{
	Unknown:                            "UNKNOWN",
	TransportWaiting:                   "TRANSPORT_WAITING",
	TransportMovingToCustomer:          "TRANSPORT_MOVING_TO_CUSTOMER",
	TransportInCustomerPlace:           "TRANSPORT_IN_CUSTOMER_PLACE",
	TransportMovingToDestination:       "TRANSPORT_MOVING_TO_DESTINATION",
	TransportWaitingForApproval:        "TRANSPORT_WAITING_FOR_APPROVAL",
	TransportMovingToStation:           "TRANSPORT_MOVING_TO_STATION",
	TransportInStationPlace:            "TRANSPORT_IN_STATION_PLACE",
	TransportWaitingForStationApproval: "TRANSPORT_WAITING_FOR_STATION_APPROVAL",
	TransportLoading:                   "TRANSPORT_LOADING",
	TransportLoaded:                    "TRANSPORT_LOADED",
	CustomerWaiting:                    "CUSTOMER_WAITING",
	CustomerInTransport:                "CUSTOMER_IN_TRANSPORT",
	CustomerInDest:                     "CUSTOMER_IN_DEST",
	CustomerLocation:                   "CUSTOMER_LOCATION",
	CustomerAssigned:                   "CUSTOMER_ASSIGNED",
	FreeStation:                        "FREE_STATION",
	BusyStation:                        "BUSY_STATION",

	TransportArrivedAtCustomer:    "TRANSPORT_ARRIVED_AT_CUSTOMER",
	TransportArrivedAtDestination: "TRANSPORT_ARRIVED_AT_DESTINATION",
	TransportInWaitingList:        "TRANSPORT_IN_WAITING_LIST",
	TransportNeedsCharging:        "TRANSPORT_NEEDS_CHARGING",
	TransportInDest:               "TRANSPORT_IN_DEST",
	TransportBoarding:             "TRANSPORT_BOARDING",
	CustomerWaitingToMove:         "CUSTOMER_WAITING_TO_MOVE",
	CustomerMovingToDest:          "CUSTOMER_MOVING_TO_DEST",
	CustomerInStop:                "CUSTOMER_IN_STOP",
	CustomerWaitingForApproval:    "CUSTOMER_WAITING_FOR_APPROVAL",
	VehicleWaiting:                "VEHICLE_WAITING",
	VehicleMovingToDestination:    "VEHICLE_MOVING_TO_DESTINATION",
	VehicleInDest:                 "VEHICLE_IN_DEST",
}

// byName is the single translation table from backend status names
// (current and historical taxi/passenger spellings) to canonical codes.
var byName = map[string]Code{
	"TRANSPORT_MOVING_TO_DESTINY": TransportMovingToDestination,
	"TRANSPORT_CHARGING":          TransportLoading,
	"TRANSPORT_CHARGED":           TransportLoaded,
	"CUSTOMER_IN_DESTINATION":     CustomerInDest,

	"TAXI_WAITING":               TransportWaiting,
	"TAXI_MOVING_TO_PASSENGER":   TransportMovingToCustomer,
	"TAXI_IN_PASSENGER_PLACE":    TransportInCustomerPlace,
	"TAXI_MOVING_TO_DESTINATION": TransportMovingToDestination,
	"TAXI_MOVING_TO_DESTINY":     TransportMovingToDestination,
	"TAXI_WAITING_FOR_APPROVAL":  TransportWaitingForApproval,

	"PASSENGER_WAITING":        CustomerWaiting,
	"PASSENGER_IN_TAXI":        CustomerInTransport,
	"PASSENGER_IN_DEST":        CustomerInDest,
	"PASSENGER_IN_DESTINATION": CustomerInDest,
	"PASSENGER_LOCATION":       CustomerLocation,
	"PASSENGER_ASSIGNED":       CustomerAssigned,
}

func init() {
	for code, name := range names {
		byName[name] = code
	}
}

// String returns the canonical status name
func (c Code) String() string {
	if name, ok := names[c]; ok {
		return name
	}
	return names[Unknown]
}

// Known reports whether c is one of the canonical codes
func (c Code) Known() bool {
	_, ok := names[c]
	return ok && c != Unknown
}

// Kind returns the entity family a code belongs to
func (c Code) Kind() Kind {
	switch {
	case !c.Known():
		return KindUnknown
	case c >= TransportWaiting && c <= TransportLoaded,
		c >= TransportArrivedAtCustomer && c <= TransportBoarding:
		return KindTransport
	case c >= CustomerWaiting && c <= CustomerAssigned,
		c >= CustomerWaitingToMove && c <= CustomerWaitingForApproval:
		return KindCustomer
	case c == FreeStation || c == BusyStation:
		return KindStation
	case c >= VehicleWaiting && c <= VehicleInDest:
		return KindVehicle
	}
	return KindUnknown
}

// FromInt translates a numeric backend code
func FromInt(n int) Code {
	c := Code(n)
	if c.Known() && c <= lastNumeric {
		return c
	}
	return Unknown
}

// FromName translates a backend status name, case-insensitively
func FromName(name string) Code {
	key := strings.ToUpper(strings.TrimSpace(name))
	if c, ok := byName[key]; ok {
		return c
	}
	if n, err := strconv.Atoi(key); err == nil {
		return FromInt(n)
	}
	return Unknown
}

// Parse translates a raw JSON status value (number, string or null)
func Parse(raw []byte) Code {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Unknown
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Unknown
		}
		return FromName(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return Unknown
	}
	return FromInt(int(f))
}

// MarshalJSON encodes the canonical name
func (c Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts every spelling Parse does
func (c *Code) UnmarshalJSON(data []byte) error {
	*c = Parse(data)
	return nil
}
