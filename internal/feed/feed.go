// Package feed exports the live fleet as a GTFS-realtime VehiclePositions feed
// so standard transit tooling can consume the simulation.
package feed

import (
	"fmt"
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/simfleet/fleetview/internal/status"
	"github.com/simfleet/fleetview/models"
)

const gtfsRealtimeVersion = "2.0"

// stopStatus maps unit statuses onto the GTFS-RT VehicleStopStatus enum.
// Statuses not listed leave current_status unset.
var stopStatus = map[status.Code]gtfs.VehiclePosition_VehicleStopStatus{
	status.TransportMovingToCustomer:          gtfs.VehiclePosition_IN_TRANSIT_TO,
	status.TransportMovingToDestination:       gtfs.VehiclePosition_IN_TRANSIT_TO,
	status.TransportMovingToStation:           gtfs.VehiclePosition_IN_TRANSIT_TO,
	status.TransportInCustomerPlace:           gtfs.VehiclePosition_STOPPED_AT,
	status.TransportInStationPlace:            gtfs.VehiclePosition_STOPPED_AT,
	status.TransportLoading:                   gtfs.VehiclePosition_STOPPED_AT,
	status.TransportLoaded:                    gtfs.VehiclePosition_STOPPED_AT,
	status.TransportWaitingForApproval:        gtfs.VehiclePosition_INCOMING_AT,
	status.TransportWaitingForStationApproval: gtfs.VehiclePosition_INCOMING_AT,
	status.VehicleMovingToDestination:         gtfs.VehiclePosition_IN_TRANSIT_TO,
	status.TransportArrivedAtCustomer:         gtfs.VehiclePosition_STOPPED_AT,
	status.TransportArrivedAtDestination:      gtfs.VehiclePosition_STOPPED_AT,
	status.TransportInDest:                    gtfs.VehiclePosition_STOPPED_AT,
	status.TransportBoarding:                  gtfs.VehiclePosition_STOPPED_AT,
	status.VehicleInDest:                      gtfs.VehiclePosition_STOPPED_AT,
	status.TransportInWaitingList:             gtfs.VehiclePosition_INCOMING_AT,
}

// VehiclePositions builds a FULL_DATASET feed with one entity per visible
// transport and vehicle in state. now is used when state has never been updated.
func VehiclePositions(state models.DashboardState, now time.Time) *gtfs.FeedMessage {
	ts := now
	if state.UpdatedAt != nil {
		ts = *state.UpdatedAt
	}
	stamp := uint64(ts.Unix())

	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(gtfsRealtimeVersion),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(stamp),
		},
	}

	for _, group := range [][]models.Marker{state.Transports, state.Vehicles} {
		for _, m := range group {
			if !m.Visible {
				continue
			}
			msg.Entity = append(msg.Entity, entity(m, stamp))
		}
	}
	return msg
}

func entity(m models.Marker, stamp uint64) *gtfs.FeedEntity {
	label := m.ID
	if m.Fleet != "" {
		label = m.Fleet + "/" + m.ID
	}

	pos := &gtfs.Position{
		Latitude:  proto.Float32(float32(m.LatLng[0])),
		Longitude: proto.Float32(float32(m.LatLng[1])),
	}
	if m.Speed != nil {
		pos.Speed = proto.Float32(float32(*m.Speed))
	}

	vp := &gtfs.VehiclePosition{
		Vehicle: &gtfs.VehicleDescriptor{
			Id:    proto.String(m.ID),
			Label: proto.String(label),
		},
		Position:  pos,
		Timestamp: proto.Uint64(stamp),
	}
	if s, ok := stopStatus[m.Status]; ok {
		vp.CurrentStatus = s.Enum()
	}

	return &gtfs.FeedEntity{
		Id:      proto.String(string(m.Kind) + ":" + m.ID),
		Vehicle: vp,
	}
}

// Marshal encodes the feed in protobuf wire format
func Marshal(msg *gtfs.FeedMessage) ([]byte, error) {
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed: %w", err)
	}
	return data, nil
}

// MarshalJSON encodes the feed as indented protojson, for debugging
func MarshalJSON(msg *gtfs.FeedMessage) ([]byte, error) {
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal feed as json: %w", err)
	}
	return data, nil
}
