// Package location models the device location source: the authorization
// state machine and the latest fix, kept apart from the selection core.
package location

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// Authorization is the permission state for location use.
type Authorization string

const (
	AuthNotRequested Authorization = "not_requested"
	AuthRequested    Authorization = "requested"
	AuthGranted      Authorization = "granted"
	AuthDenied       Authorization = "denied"
	AuthRestricted   Authorization = "restricted"
)

// Status is what the rest of the app observes about location availability.
type Status string

const (
	StatusNotRequested Status = "not_requested"
	StatusDenied       Status = "denied"
	StatusRestricted   Status = "restricted"
	StatusUpdating     Status = "updating"
	StatusUpdated      Status = "updated"
	StatusFailed       Status = "failed"
)

const (
	MsgAcquiring   = "acquiring current location..."
	MsgStarting    = "starting location updates"
	MsgNotAllowed  = "location use is not permitted"
	MsgUnavailable = "location services are unavailable"
	MsgAcquired    = "location acquired"
	MsgFailed      = "failed to acquire location"
)

var (
	ErrNotAuthorized   = errors.New("location use is not authorized")
	ErrInvalidFix      = errors.New("invalid location fix")
	ErrUnknownDecision = errors.New("unknown authorization decision")
)

// Snapshot is an immutable view of the tracker.
type Snapshot struct {
	Authorization Authorization    `json:"authorization"`
	Status        Status           `json:"status"`
	Message       string           `json:"message"`
	Position      *domain.GeoPoint `json:"position,omitempty"`
	FixedAt       *time.Time       `json:"fixed_at,omitempty"`
	Failure       string           `json:"failure,omitempty"`
}

// Tracker is safe for concurrent use. Every transition is reported to the
// change callback outside the lock. Callbacks never go backwards: a snapshot
// older than one already delivered is dropped.
type Tracker struct {
	mu       sync.Mutex
	auth     Authorization
	position *domain.Position
	failed   bool
	failure  string
	message  string
	onChange func(Snapshot)
	seq      uint64

	notifyMu  sync.Mutex // serializes callbacks; never held with mu
	delivered uint64

	beforeNotify func() // test hook
}

// NewTracker creates a tracker in the NotRequested state.
func NewTracker() *Tracker {
	return &Tracker{auth: AuthNotRequested, message: MsgAcquiring}
}

// OnChange registers the callback that receives every new snapshot.
func (t *Tracker) OnChange(fn func(Snapshot)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// ParseDecision maps a platform decision string onto an Authorization.
func ParseDecision(s string) (Authorization, error) {
	switch Authorization(strings.ToLower(strings.TrimSpace(s))) {
	case AuthGranted, "authorized", "authorized_when_in_use", "authorized_always":
		return AuthGranted, nil
	case AuthDenied:
		return AuthDenied, nil
	case AuthRestricted:
		return AuthRestricted, nil
	case AuthNotRequested, "not_determined":
		return AuthNotRequested, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDecision, s)
}

// RequestAuthorization moves NotRequested to Requested. Other states are kept.
func (t *Tracker) RequestAuthorization() Snapshot {
	return t.mutate(func() error {
		if t.auth == AuthNotRequested {
			t.auth = AuthRequested
			t.message = MsgAcquiring
		}
		return nil
	})
}

// Authorize applies the platform's decision. A revoked permission drops the
// current fix.
func (t *Tracker) Authorize(decision Authorization) (Snapshot, error) {
	var err error
	snap := t.mutate(func() error {
		switch decision {
		case AuthGranted:
			if t.auth != AuthGranted {
				t.failed = false
				t.failure = ""
			}
			t.auth = AuthGranted
			t.message = MsgStarting
		case AuthDenied, AuthRestricted:
			t.auth = decision
			t.position = nil
			t.failed = false
			t.failure = ""
			t.message = MsgNotAllowed
		case AuthNotRequested:
			// The platform has not decided yet; ask again.
			t.auth = AuthRequested
			t.message = MsgAcquiring
		default:
			err = fmt.Errorf("%w: %q", ErrUnknownDecision, decision)
			return err
		}
		return nil
	})
	return snap, err
}

// ReportFix records a new position. It is only accepted once location use is granted.
func (t *Tracker) ReportFix(p domain.GeoPoint, at time.Time) (Snapshot, error) {
	var err error
	snap := t.mutate(func() error {
		if t.auth != AuthGranted {
			err = ErrNotAuthorized
			return err
		}
		if !p.Valid() {
			err = fmt.Errorf("%w: %+v", ErrInvalidFix, p)
			return err
		}
		if at.IsZero() {
			at = time.Now()
		}
		t.position = &domain.Position{Location: p, FixedAt: at.UTC()}
		t.failed = false
		t.failure = ""
		t.message = MsgAcquired
		return nil
	})
	return snap, err
}

// ReportFailure marks acquisition as failed. The last fix is kept for display
// but is no longer consumable until the next fix arrives.
func (t *Tracker) ReportFailure(reason string) Snapshot {
	return t.mutate(func() error {
		if t.auth != AuthGranted {
			t.message = MsgUnavailable
			t.failure = reason
			return nil
		}
		t.failed = true
		t.failure = reason
		t.message = MsgFailed
		return nil
	})
}

// Current returns the position when the status is Updated.
func (t *Tracker) Current() (domain.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.statusLocked() != StatusUpdated {
		return domain.Position{}, false
	}
	return *t.position, true
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) mutate(fn func() error) Snapshot {
	t.mu.Lock()
	err := fn()
	snap := t.snapshotLocked()
	cb := t.onChange
	if err == nil {
		t.seq++
	}
	seq := t.seq
	t.mu.Unlock()

	if err != nil || cb == nil {
		return snap
	}
	if t.beforeNotify != nil {
		t.beforeNotify()
	}

	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	if seq > t.delivered {
		t.delivered = seq
		cb(snap)
	}
	return snap
}

func (t *Tracker) statusLocked() Status {
	switch t.auth {
	case AuthDenied:
		return StatusDenied
	case AuthRestricted:
		return StatusRestricted
	case AuthGranted:
		switch {
		case t.failed:
			return StatusFailed
		case t.position == nil:
			return StatusUpdating
		default:
			return StatusUpdated
		}
	default:
		return StatusNotRequested
	}
}

func (t *Tracker) snapshotLocked() Snapshot {
	snap := Snapshot{
		Authorization: t.auth,
		Status:        t.statusLocked(),
		Message:       t.message,
		Failure:       t.failure,
	}
	if t.position != nil {
		loc := t.position.Location
		at := t.position.FixedAt
		snap.Position = &loc
		snap.FixedAt = &at
	}
	return snap
}
