package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/simfleet/fleetview/internal/backend"
	"github.com/simfleet/fleetview/internal/store"
	"github.com/simfleet/fleetview/models"
)

// EntitySource is the part of the backend client the poller needs
type EntitySource interface {
	Init(ctx context.Context) (*backend.InitPayload, error)
	Entities(ctx context.Context) (*backend.EntitiesPayload, error)
}

// Recorder persists snapshots of the dashboard state
type Recorder interface {
	RecordSnapshot(ctx context.Context, polledAt time.Time, state models.DashboardState) (string, error)
	Cleanup(ctx context.Context, retention time.Duration) error
}

// Options configure a Poller
type Options struct {
	Interval        time.Duration
	RecordEvery     int
	Retention       time.Duration
	CleanupInterval time.Duration
}

// Status is the poller's bookkeeping, read by the health endpoint
type Status struct {
	LastSuccess         *time.Time
	LastError           string
	ConsecutiveFailures int
	Polls               uint64
}

// Poller fetches /entities on a fixed interval and feeds the store
type Poller struct {
	source   EntitySource
	store    *store.Store
	recorder Recorder
	opts     Options

	mu       sync.Mutex
	status   Status
	sinceRec int
}

// NewPoller creates a poller. recorder may be nil to disable history.
func NewPoller(source EntitySource, st *store.Store, recorder Recorder, opts Options) *Poller {
	if opts.RecordEvery < 1 {
		opts.RecordEvery = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = 500 * time.Millisecond
	}
	return &Poller{
		source:   source,
		store:    st,
		recorder: recorder,
		opts:     opts,
	}
}

// LoadInit fetches the map centre and zoom once. On failure the store keeps
// its configured defaults.
func (p *Poller) LoadInit(ctx context.Context) {
	payload, err := p.source.Init(ctx)
	if err != nil {
		log.WithError(err).Warn("Init: failed to load map settings, keeping defaults")
		return
	}
	p.store.SetMap(models.MapSettings{Coords: models.LatLng(payload.Coords), Zoom: payload.Zoom})
	log.Printf("Init: map centred on %v (zoom %d)", payload.Coords, payload.Zoom)
}

// Poll fetches one snapshot and applies it to the store
func (p *Poller) Poll(ctx context.Context) error {
	polledAt := time.Now().UTC()

	payload, err := p.source.Entities(ctx)
	if err != nil {
		p.markFailure(err)
		return fmt.Errorf("failed to fetch entities: %w", err)
	}

	p.store.Apply(payload)
	record := p.markSuccess(polledAt)

	if record && p.recorder != nil {
		if _, err := p.recorder.RecordSnapshot(ctx, polledAt, p.store.State()); err != nil {
			// History is best-effort; the live view is already updated.
			log.WithError(err).Warn("History: failed to record snapshot")
		}
	}
	return nil
}

// Run polls immediately and then on every tick until ctx is cancelled.
// Failures are logged and the next tick tries again.
func (p *Poller) Run(ctx context.Context) {
	if err := p.Poll(ctx); err != nil {
		log.WithError(err).Debug("Poller: initial poll failed")
	}

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				log.WithError(err).Debug("Poller: poll failed")
			}
		case <-ctx.Done():
			log.Println("Polling loop stopped")
			return
		}
	}
}

// RunCleanup periodically trims recorded history until ctx is cancelled
func (p *Poller) RunCleanup(ctx context.Context) {
	if p.recorder == nil || p.opts.CleanupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(p.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.recorder.Cleanup(ctx, p.opts.Retention); err != nil {
				log.WithError(err).Warn("Cleanup: failed to trim history")
			}
		case <-ctx.Done():
			log.Println("Cleanup loop stopped")
			return
		}
	}
}

// Status returns a copy of the poll bookkeeping
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.status
	if st.LastSuccess != nil {
		t := *st.LastSuccess
		st.LastSuccess = &t
	}
	return st
}

func (p *Poller) markFailure(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Polls++
	p.status.ConsecutiveFailures++
	p.status.LastError = err.Error()
	if p.status.ConsecutiveFailures == 1 {
		log.WithError(err).Warn("Poller: backend unreachable, keeping last state")
	}
}

// markSuccess records a good poll and reports whether this one should be recorded
func (p *Poller) markSuccess(at time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.ConsecutiveFailures > 0 {
		log.Printf("Poller: backend reachable again after %d failed polls", p.status.ConsecutiveFailures)
	}
	p.status.Polls++
	p.status.ConsecutiveFailures = 0
	p.status.LastError = ""
	p.status.LastSuccess = &at

	p.sinceRec++
	if p.sinceRec >= p.opts.RecordEvery {
		p.sinceRec = 0
		return true
	}
	return false
}
