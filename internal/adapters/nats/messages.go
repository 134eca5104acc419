package natsadapter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kyotoapp/nextdest/internal/core/domain"
)

// Subjects.
const (
	SubjectSelected      = "destination.selected"
	SubjectAuthorization = "location.authorization"
	SubjectFix           = "location.fix"
	SubjectFailure       = "location.failure"
)

// AuthorizationMessage carries a platform permission decision.
type AuthorizationMessage struct {
	Decision string `json:"decision"`
}

// FixMessage carries one location fix. A zero Time means "now".
type FixMessage struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Time time.Time `json:"time,omitempty"`
}

// FailureMessage reports that the device could not produce a fix.
type FailureMessage struct {
	Reason string `json:"reason"`
}

func decodeAuthorization(data []byte) (string, error) {
	var m AuthorizationMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("decode authorization: %w", err)
	}
	if strings.TrimSpace(m.Decision) == "" {
		return "", fmt.Errorf("decode authorization: empty decision")
	}
	return m.Decision, nil
}

func decodeFix(data []byte, now func() time.Time) (domain.GeoPoint, time.Time, error) {
	var m FixMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.GeoPoint{}, time.Time{}, fmt.Errorf("decode fix: %w", err)
	}
	at := m.Time
	if at.IsZero() {
		at = now()
	}
	return domain.GeoPoint{Lat: m.Lat, Lon: m.Lon}, at, nil
}

func decodeFailure(data []byte) string {
	var m FailureMessage
	if err := json.Unmarshal(data, &m); err != nil || m.Reason == "" {
		return strings.TrimSpace(string(data))
	}
	return m.Reason
}
