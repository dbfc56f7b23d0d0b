package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/simfleet/fleetview/internal/status"
)

// LatLng is a [lat, lon] pair as the backend encodes it
type LatLng [2]float64

// Flex is a number the backend sometimes sends as a string ("3.25") or null
type Flex float64

// UnmarshalJSON accepts numbers, numeric strings and null
func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid numeric string %q: %w", s, err)
		}
		*f = Flex(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Flex(v)
	return nil
}

// Float returns the value as float64
func (f Flex) Float() float64 { return float64(f) }

// String formats without trailing zeros
func (f Flex) String() string {
	return strconv.FormatFloat(float64(f), 'f', -1, 64)
}

// InitPayload is the response of GET /init
type InitPayload struct {
	Coords LatLng `json:"coords"`
	Zoom   int    `json:"zoom"`
}

// UnitPayload is a transport, taxi or vehicle as reported by GET /entities
type UnitPayload struct {
	ID          string       `json:"id"`
	Position    LatLng       `json:"position"`
	Dest        *LatLng      `json:"dest"`
	Status      status.Code  `json:"status"`
	Speed       *float64     `json:"speed"`
	Path        [][2]float64 `json:"path"`
	Customer    *string      `json:"customer"`
	Assignments Flex         `json:"assignments"`
	Distance    Flex         `json:"distance"`
	Autonomy    *float64     `json:"autonomy"`
	MaxAutonomy *float64     `json:"max_autonomy"`
	Service     string       `json:"service"`
	Fleet       string       `json:"fleet"`
	Icon        string       `json:"icon"`
}

// RequesterPayload is a customer or passenger as reported by GET /entities
type RequesterPayload struct {
	ID        string      `json:"id"`
	Position  LatLng      `json:"position"`
	Dest      *LatLng     `json:"dest"`
	Status    status.Code `json:"status"`
	Transport *string     `json:"transport"`
	Waiting   *float64    `json:"waiting"`
	Icon      string      `json:"icon"`
}

// StationPayload is a charging station as reported by GET /entities
type StationPayload struct {
	ID       string      `json:"id"`
	Position LatLng      `json:"position"`
	Status   status.Code `json:"status"`
	Power    Flex        `json:"power"`
	Places   Flex        `json:"places"`
	Icon     string      `json:"icon"`
}

// StatsPayload carries the aggregate simulation stats
type StatsPayload struct {
	Waiting   Flex `json:"waiting"`
	TotalTime Flex `json:"totaltime"`
	IsRunning bool `json:"is_running"`
	Finished  bool `json:"finished"`
}

// EntitiesPayload is the response of GET /entities.
// A nil collection means the key was absent from the response; a non-nil
// empty one means the backend reported the collection as cleared.
type EntitiesPayload struct {
	Transports *[]UnitPayload
	Customers  *[]RequesterPayload
	Stations   *[]StationPayload
	Vehicles   *[]UnitPayload
	Stats      *StatsPayload
	Tree       json.RawMessage
}

// UnmarshalJSON folds the taxi/passenger spellings into transports/customers
func (p *EntitiesPayload) UnmarshalJSON(data []byte) error {
	var raw struct {
		Transports *[]UnitPayload      `json:"transports"`
		Taxis      *[]UnitPayload      `json:"taxis"`
		Customers  *[]RequesterPayload `json:"customers"`
		Passengers *[]RequesterPayload `json:"passengers"`
		Stations   *[]StationPayload   `json:"stations"`
		Vehicles   *[]UnitPayload      `json:"vehicles"`
		Stats      *StatsPayload       `json:"stats"`
		Tree       json.RawMessage     `json:"tree"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.Transports = raw.Transports
	if p.Transports == nil {
		p.Transports = raw.Taxis
	}
	p.Customers = raw.Customers
	if p.Customers == nil {
		p.Customers = raw.Passengers
	}
	p.Stations = raw.Stations
	p.Vehicles = raw.Vehicles
	p.Stats = raw.Stats
	if len(raw.Tree) > 0 && !bytes.Equal(bytes.TrimSpace(raw.Tree), []byte("null")) {
		p.Tree = raw.Tree
	}
	return nil
}
