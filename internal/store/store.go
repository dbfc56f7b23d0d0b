// Package store holds the reconciled dashboard state. It merges backend
// snapshots by entity id and derives everything the map and sidebar draw.
package store

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/simfleet/fleetview/internal/backend"
	"github.com/simfleet/fleetview/internal/metrics"
	"github.com/simfleet/fleetview/internal/status"
	"github.com/simfleet/fleetview/models"
)

// ErrNotFound is returned when no collection holds the requested id
var ErrNotFound = errors.New("entity not found")

// Default marker icons, used when the backend does not name one
var DefaultIcons = map[status.EntityKind]string{
	status.EntityTransport: "assets/img/transport.png",
	status.EntityVehicle:   "assets/img/transport.png",
	status.EntityCustomer:  "assets/img/customer.png",
	status.EntityStation:   "assets/img/station.png",
}

// Options configure a Store
type Options struct {
	Map   models.MapSettings
	Icons map[status.EntityKind]string
	Now   func() time.Time
}

type collection struct {
	kind  status.EntityKind
	items map[string]*models.Marker
	paths []models.Path // rebuilt on every apply, never mutated in place
}

func newCollection(kind status.EntityKind) *collection {
	return &collection{kind: kind, items: make(map[string]*models.Marker)}
}

func (c *collection) clear() {
	c.items = make(map[string]*models.Marker)
	c.paths = nil
}

// Store is the single owner of dashboard state. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	transports *collection
	vehicles   *collection
	customers  *collection
	stations   *collection

	stats       models.Stats
	tree        json.RawMessage
	mapSettings models.MapSettings
	version     uint64
	updatedAt   *time.Time

	subs    map[int]func(models.DashboardState)
	nextSub int

	icons map[status.EntityKind]string
	now   func() time.Time
}

// New creates an empty Store
func New(opts Options) *Store {
	icons := make(map[status.EntityKind]string, len(DefaultIcons))
	for k, v := range DefaultIcons {
		icons[k] = v
	}
	for k, v := range opts.Icons {
		icons[k] = v
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		transports:  newCollection(status.EntityTransport),
		vehicles:    newCollection(status.EntityVehicle),
		customers:   newCollection(status.EntityCustomer),
		stations:    newCollection(status.EntityStation),
		mapSettings: opts.Map,
		subs:        make(map[int]func(models.DashboardState)),
		icons:       icons,
		now:         now,
	}
}

// Apply reconciles a full /entities payload. Collections absent from the
// payload are left untouched. Subscribers are notified once.
func (s *Store) Apply(p *backend.EntitiesPayload) {
	if p == nil {
		return
	}
	s.mutate(func() {
		if p.Transports != nil {
			s.applyUnits(s.transports, *p.Transports)
		}
		if p.Vehicles != nil {
			s.applyUnits(s.vehicles, *p.Vehicles)
		}
		if p.Customers != nil {
			s.applyRequesters(*p.Customers)
		}
		if p.Stations != nil {
			s.applyStations(*p.Stations)
		}
		if p.Stats != nil {
			s.updateStats(*p.Stats)
		}
		if p.Tree != nil {
			s.tree = p.Tree
		}
	})
}

// ApplyUnits reconciles one unit collection (transports or vehicles)
func (s *Store) ApplyUnits(kind status.EntityKind, list []backend.UnitPayload) {
	s.mutate(func() {
		if kind == status.EntityVehicle {
			s.applyUnits(s.vehicles, list)
			return
		}
		s.applyUnits(s.transports, list)
	})
}

// ApplyRequesters reconciles the customer collection
func (s *Store) ApplyRequesters(list []backend.RequesterPayload) {
	s.mutate(func() { s.applyRequesters(list) })
}

// ApplyStations reconciles the station collection
func (s *Store) ApplyStations(list []backend.StationPayload) {
	s.mutate(func() { s.applyStations(list) })
}

// UpdateStats replaces the aggregate stats
func (s *Store) UpdateStats(stats backend.StatsPayload) {
	s.mutate(func() { s.updateStats(stats) })
}

// UpdateTree replaces the opaque sidebar tree
func (s *Store) UpdateTree(tree json.RawMessage) {
	s.mutate(func() { s.tree = tree })
}

// SetMap stores the map centre and zoom reported by /init
func (s *Store) SetMap(settings models.MapSettings) {
	s.mu.Lock()
	s.mapSettings = settings
	s.mu.Unlock()
}

// Map returns the current map settings
func (s *Store) Map() models.MapSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mapSettings
}

// Subscribe registers fn to receive the state after every mutation.
// fn runs on the mutating goroutine and must not call back into mutations.
func (s *Store) Subscribe(fn func(models.DashboardState)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.version++
	now := s.now().UTC()
	s.updatedAt = &now

	var state models.DashboardState
	subs := make([]func(models.DashboardState), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	if len(subs) > 0 {
		state = s.stateLocked()
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(state)
	}
}

func (s *Store) applyUnits(c *collection, list []backend.UnitPayload) {
	if len(list) == 0 {
		c.clear()
		return
	}

	paths := make([]models.Path, 0)
	pathIndex := make(map[string]int)
	for i := range list {
		u := &list[i]
		m, ok := c.items[u.ID]
		if !ok {
			m = &models.Marker{ID: u.ID, Kind: c.kind, IconURL: s.icons[c.kind]}
			c.items[u.ID] = m
		}
		if u.Icon != "" {
			m.IconURL = u.Icon
		}
		m.LatLng = models.LatLng(u.Position)
		m.Dest = toLatLng(u.Dest)
		setStatus(m, u.Status)
		m.Visible = status.Visible(c.kind, u.Status)
		m.Popup = transportPopup(u)
		m.Speed = cloneFloat(u.Speed)
		m.Customer = cloneString(u.Customer)
		m.Assignments = flexPtr(u.Assignments)
		m.Distance = flexPtr(u.Distance)
		m.Autonomy = cloneFloat(u.Autonomy)
		m.MaxAutonomy = cloneFloat(u.MaxAutonomy)
		m.Fleet = u.Fleet
		m.Service = u.Service

		if len(u.Path) > 0 {
			latlngs := make([]models.LatLng, len(u.Path))
			for j, pt := range u.Path {
				latlngs[j] = models.LatLng(pt)
			}
			color, _ := status.PathColor(u.Status)
			p := models.Path{UnitID: u.ID, Kind: c.kind, LatLngs: latlngs, Color: color}
			if idx, dup := pathIndex[u.ID]; dup {
				paths[idx] = p
			} else {
				pathIndex[u.ID] = len(paths)
				paths = append(paths, p)
			}
		}
	}
	c.paths = paths
}

func (s *Store) applyRequesters(list []backend.RequesterPayload) {
	c := s.customers
	if len(list) == 0 {
		c.clear()
		s.stats.Waiting = metrics.Summary{}
		return
	}

	for i := range list {
		r := &list[i]
		m, ok := c.items[r.ID]
		if !ok {
			m = &models.Marker{ID: r.ID, Kind: c.kind, IconURL: s.icons[c.kind]}
			c.items[r.ID] = m
		}
		if r.Icon != "" {
			m.IconURL = r.Icon
		}
		m.LatLng = models.LatLng(r.Position)
		m.Dest = toLatLng(r.Dest)
		setStatus(m, r.Status)
		m.Visible = status.Visible(c.kind, r.Status)
		m.Popup = customerPopup(r)
		m.Transport = cloneString(r.Transport)
		m.Waiting = cloneFloat(r.Waiting)
	}

	var waiting metrics.Running
	for _, m := range c.items {
		if m.Waiting != nil {
			waiting.Add(*m.Waiting)
		}
	}
	s.stats.Waiting = waiting.Summary()
}

func (s *Store) applyStations(list []backend.StationPayload) {
	c := s.stations
	if len(list) == 0 {
		c.clear()
		return
	}

	for i := range list {
		st := &list[i]
		m, ok := c.items[st.ID]
		if !ok {
			// Stations do not move; position is only taken on first sight.
			m = &models.Marker{
				ID:      st.ID,
				Kind:    c.kind,
				LatLng:  models.LatLng(st.Position),
				IconURL: s.icons[c.kind],
				Visible: true,
			}
			c.items[st.ID] = m
		}
		if st.Icon != "" {
			m.IconURL = st.Icon
		}
		setStatus(m, st.Status)
		m.Popup = stationPopup(st)
		m.Power = flexPtr(st.Power)
		m.Places = flexPtr(st.Places)
	}
}

func (s *Store) updateStats(stats backend.StatsPayload) {
	s.stats.WaitingTime = stats.Waiting.Float()
	s.stats.TotalTime = stats.TotalTime.Float()
	s.stats.IsRunning = stats.IsRunning
	s.stats.Finished = stats.Finished
	s.stats.Running = stats.IsRunning && !stats.Finished
}

func setStatus(m *models.Marker, code status.Code) {
	m.Status = code
	m.StatusCode = int(code)
	if ind, ok := status.IndicatorFor(code); ok {
		m.Indicator = &ind
	} else {
		m.Indicator = nil
	}
}

// State returns a deep copy of the whole dashboard state
func (s *Store) State() models.DashboardState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() models.DashboardState {
	state := models.DashboardState{
		Version:    s.version,
		Map:        s.mapSettings,
		Transports: s.transports.markers(),
		Customers:  s.customers.markers(),
		Stations:   s.stations.markers(),
		Vehicles:   s.vehicles.markers(),
		Paths:      s.pathsLocked(),
		Stats:      s.stats,
		Tree:       cloneRaw(s.tree),
		Active:     s.activeLocked(),
	}
	if s.updatedAt != nil {
		t := *s.updatedAt
		state.UpdatedAt = &t
	}
	return state
}

// Transports returns the transport markers sorted by id
func (s *Store) Transports() []models.Marker { return s.read(s.transports) }

// Vehicles returns the vehicle markers sorted by id
func (s *Store) Vehicles() []models.Marker { return s.read(s.vehicles) }

// Customers returns the customer markers sorted by id
func (s *Store) Customers() []models.Marker { return s.read(s.customers) }

// Stations returns the station markers sorted by id
func (s *Store) Stations() []models.Marker { return s.read(s.stations) }

func (s *Store) read(c *collection) []models.Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.markers()
}

// Paths returns every path overlay, transports first
func (s *Store) Paths() []models.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pathsLocked()
}

func (s *Store) pathsLocked() []models.Path {
	out := make([]models.Path, 0, len(s.transports.paths)+len(s.vehicles.paths))
	seen := make(map[string]bool, len(s.transports.paths))
	for _, p := range s.transports.paths {
		seen[p.UnitID] = true
		out = append(out, p)
	}
	// The backend lists vehicles under both keys; draw each unit once.
	for _, p := range s.vehicles.paths {
		if !seen[p.UnitID] {
			out = append(out, p)
		}
	}
	return out
}

// Stats returns the aggregate stats
func (s *Store) Stats() models.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Tree returns a copy of the opaque sidebar tree
func (s *Store) Tree() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRaw(s.tree)
}

// Active reports whether a simulation is running with something on the map
func (s *Store) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLocked()
}

func (s *Store) activeLocked() bool {
	return s.stats.Running && (len(s.customers.items) > 0 || len(s.transports.items) > 0)
}

// Marker looks an id up across all collections
func (s *Store) Marker(id string) (models.Marker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range []*collection{s.transports, s.vehicles, s.customers, s.stations} {
		if m, ok := c.items[id]; ok {
			return copyMarker(m), nil
		}
	}
	return models.Marker{}, ErrNotFound
}

// Version increments on every applied mutation
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// LastUpdated returns when the last mutation was applied, nil before the first
func (s *Store) LastUpdated() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.updatedAt == nil {
		return nil
	}
	t := *s.updatedAt
	return &t
}

// EntityCount is the number of entities across all collections
func (s *Store) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.transports.items) + len(s.vehicles.items) + len(s.customers.items) + len(s.stations.items)
}

func (c *collection) markers() []models.Marker {
	out := make([]models.Marker, 0, len(c.items))
	for _, m := range c.items {
		out = append(out, copyMarker(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyMarker(m *models.Marker) models.Marker {
	cp := *m
	cp.Dest = cloneLatLng(m.Dest)
	if m.Indicator != nil {
		ind := *m.Indicator
		cp.Indicator = &ind
	}
	cp.Speed = cloneFloat(m.Speed)
	cp.Customer = cloneString(m.Customer)
	cp.Assignments = cloneFloat(m.Assignments)
	cp.Distance = cloneFloat(m.Distance)
	cp.Autonomy = cloneFloat(m.Autonomy)
	cp.MaxAutonomy = cloneFloat(m.MaxAutonomy)
	cp.Transport = cloneString(m.Transport)
	cp.Waiting = cloneFloat(m.Waiting)
	cp.Power = cloneFloat(m.Power)
	cp.Places = cloneFloat(m.Places)
	return cp
}

func toLatLng(p *backend.LatLng) *models.LatLng {
	if p == nil {
		return nil
	}
	ll := models.LatLng(*p)
	return &ll
}

func cloneLatLng(p *models.LatLng) *models.LatLng {
	if p == nil {
		return nil
	}
	ll := *p
	return &ll
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func flexPtr(f backend.Flex) *float64 {
	v := f.Float()
	return &v
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
