package control

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/simfleet/fleetview/internal/backend"
)

// ErrInvalidCount is returned for negative generate counts
var ErrInvalidCount = errors.New("agent counts must be non-negative")

// Action names accepted by Do
const (
	ActionRun      = "run"
	ActionStop     = "stop"
	ActionClean    = "clean"
	ActionGenerate = "generate"
)

// ErrUnknownAction is returned by Do for names it does not relay
var ErrUnknownAction = errors.New("unknown control action")

// ActionClient issues one control request against the backend
type ActionClient interface {
	Action(ctx context.Context, path string) error
}

// Relay forwards control-panel actions to the backend without waiting for them.
// Failures are logged; the next poll shows whatever the backend did.
type Relay struct {
	client  ActionClient
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRelay creates a relay that gives each action up to timeout to complete
func NewRelay(client ActionClient, timeout time.Duration) *Relay {
	return &Relay{client: client, timeout: timeout}
}

// Run starts the simulation
func (r *Relay) Run() { r.fire("/run") }

// Stop stops the simulation
func (r *Relay) Stop() { r.fire("/stop") }

// Clean clears all agents
func (r *Relay) Clean() { r.fire("/clean") }

// Generate asks the backend to spawn taxis and passengers
func (r *Relay) Generate(taxis, passengers int) error {
	if taxis < 0 || passengers < 0 {
		return ErrInvalidCount
	}
	r.fire(backend.GeneratePath(taxis, passengers))
	return nil
}

// Do dispatches an action by name; counts are only used by generate
func (r *Relay) Do(action string, taxis, passengers int) error {
	switch action {
	case ActionRun:
		r.Run()
	case ActionStop:
		r.Stop()
	case ActionClean:
		r.Clean()
	case ActionGenerate:
		return r.Generate(taxis, passengers)
	default:
		return ErrUnknownAction
	}
	return nil
}

// Wait blocks until every in-flight action has finished
func (r *Relay) Wait() {
	r.wg.Wait()
}

func (r *Relay) fire(path string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.client.Action(ctx, path); err != nil {
			log.WithError(err).WithField("action", path).Warn("Control: action failed")
			return
		}
		log.WithField("action", path).Info("Control: action sent")
	}()
}
