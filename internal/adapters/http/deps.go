package http

import (
	"github.com/nats-io/nats.go"

	"github.com/kyotoapp/nextdest/internal/adapters/postgres"
	"github.com/kyotoapp/nextdest/internal/adapters/valkey"
	"github.com/kyotoapp/nextdest/internal/core/state"
	"github.com/kyotoapp/nextdest/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. NATS, DB and Cache
// are nil when the backend is disabled.
type Dependencies struct {
	Destinations *usecases.DestinationService
	Location     *usecases.LocationService
	State        *state.Store
	NATS         *nats.Conn
	DB           *postgres.DB
	Cache        *valkey.Cache
	DocsPath     string
}
