package schedule

import (
	"slices"
	"sync"
	"time"

	"github.com/kilianp07/dispatchboard/core/model"
	"github.com/kilianp07/dispatchboard/internal/eventbus"
)

// Ticket orders fetches. A response is applied only if no later ticket has
// already resolved.
type Ticket uint64

// State of the board view derived from the last resolved fetch.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// View describes what the presentation may render.
type View struct {
	State     State           `json:"state"`
	Version   uint64          `json:"version"`
	Range     model.DateRange `json:"range"`
	FetchedAt time.Time       `json:"fetchedAt,omitempty"`
	Err       string          `json:"error,omitempty"`
}

// Update is published after every applied Replace or Fail.
type Update struct {
	Version uint64
	State   State
	Err     error
}

// Store is the single owned copy of the schedule snapshot. It is replaced
// wholesale and never edited in place; Version increases on every Replace.
type Store struct {
	mu       sync.RWMutex
	snap     model.Snapshot
	has      bool
	version  uint64
	issued   Ticket
	resolved Ticket
	err      error
	bus      *eventbus.TypedBus[Update]
}

func NewStore() *Store {
	return &Store{bus: eventbus.NewTyped[Update]()}
}

// Begin issues the ticket for a new fetch.
func (s *Store) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Replace installs snap if t is newer than every resolved ticket. It
// reports whether the snapshot was applied.
func (s *Store) Replace(t Ticket, snap model.Snapshot) bool {
	s.mu.Lock()
	if !s.accept(t) {
		s.mu.Unlock()
		return false
	}
	snap.Technicians = slices.Clone(snap.Technicians)
	snap.WorkOrders = slices.Clone(snap.WorkOrders)
	s.snap = snap
	s.has = true
	s.err = nil
	s.version++
	u := Update{Version: s.version, State: StateReady}
	s.mu.Unlock()
	s.bus.Publish(u)
	return true
}

// Fail records a fetch failure for t under the same ordering rule as
// Replace. The last snapshot is kept but the view switches to StateError.
func (s *Store) Fail(t Ticket, err error) bool {
	s.mu.Lock()
	if !s.accept(t) {
		s.mu.Unlock()
		return false
	}
	s.err = err
	u := Update{Version: s.version, State: StateError, Err: err}
	s.mu.Unlock()
	s.bus.Publish(u)
	return true
}

func (s *Store) accept(t Ticket) bool {
	if t == 0 || t > s.issued || t <= s.resolved {
		return false
	}
	s.resolved = t
	return true
}

// Snapshot returns the last applied snapshot and its version. Callers must
// treat the returned slices as read-only.
func (s *Store) Snapshot() (model.Snapshot, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.version, s.has
}

// Err returns the error of the last resolved fetch, if it failed.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{Version: s.version, Range: s.snap.Range, FetchedAt: s.snap.FetchedAt}
	switch {
	case s.err != nil:
		v.State = StateError
		v.Err = s.err.Error()
	case s.has:
		v.State = StateReady
	default:
		v.State = StateLoading
	}
	return v
}

// Subscribe returns a channel of store updates.
func (s *Store) Subscribe() <-chan Update { return s.bus.Subscribe() }

func (s *Store) Unsubscribe(ch <-chan Update) { s.bus.Unsubscribe(ch) }

// Close releases subscribers.
func (s *Store) Close() { s.bus.Close() }
