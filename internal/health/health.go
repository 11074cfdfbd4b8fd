// Package health aggregates every store and vendor dependency's
// liveness check into the single /healthz surface cmd/ariad exposes.
// Each dependency implements goa.design/clue/health.Pinger directly
// (see internal/store/mongo and internal/streamhub/redishub); this
// package only wires them together.
package health

import (
	"net/http"

	"goa.design/clue/health"
)

// Pinger re-exports clue's Pinger so callers that only need the
// interface do not have to import goa.design/clue/health directly.
type Pinger = health.Pinger

// Handler builds the aggregate /healthz http.Handler: clue's checker
// pings every registered dependency and reports 200 only if all of them
// succeed, 503 with the failing names otherwise.
func Handler(pingers ...Pinger) http.HandlerFunc {
	return health.Handler(health.NewChecker(pingers...))
}
