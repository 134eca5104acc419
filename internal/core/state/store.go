// Package state holds the observable application state that the UI polls or
// subscribes to.
package state

import (
	"sync"
	"time"

	"github.com/kyotoapp/nextdest/internal/core/domain"
	"github.com/kyotoapp/nextdest/internal/core/location"
)

// View is a copy of the current state. Mutating it does not affect the store.
type View struct {
	Location   location.Snapshot `json:"location"`
	Selected   *domain.Point     `json:"selected,omitempty"`
	Message    string            `json:"message"`
	Candidates int               `json:"candidates"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Store is safe for concurrent use. Subscribers receive a fresh View after
// every change; a subscriber whose buffer is full misses that change.
type Store struct {
	mu     sync.RWMutex
	view   View
	subs   map[int]chan View
	nextID int
	now    func() time.Time
}

func NewStore() *Store {
	return &Store{
		subs: make(map[int]chan View),
		now:  time.Now,
	}
}

func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyView(s.view)
}

func (s *Store) SetLocation(snap location.Snapshot) {
	s.update(func(v *View) { v.Location = snap })
}

func (s *Store) SetSelected(p domain.Point) {
	s.update(func(v *View) { v.Selected = &p })
}

func (s *Store) SetMessage(msg string) {
	s.update(func(v *View) { v.Message = msg })
}

func (s *Store) SetCandidates(n int) {
	s.update(func(v *View) { v.Candidates = n })
}

// Subscribe returns a channel of views, primed with the current one, and a
// cancel func that closes it. buffer < 1 is treated as 1.
func (s *Store) Subscribe(buffer int) (<-chan View, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan View, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- copyView(s.view)
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			close(ch)
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

func (s *Store) update(fn func(*View)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.view)
	s.view.UpdatedAt = s.now()

	for _, ch := range s.subs {
		select {
		case ch <- copyView(s.view):
		default:
		}
	}
}

func copyView(v View) View {
	out := v
	if v.Selected != nil {
		p := *v.Selected
		out.Selected = &p
	}
	if v.Location.Position != nil {
		pos := *v.Location.Position
		out.Location.Position = &pos
	}
	if v.Location.FixedAt != nil {
		at := *v.Location.FixedAt
		out.Location.FixedAt = &at
	}
	return out
}
