package notify

import "github.com/rs/zerolog"

// Event kinds emitted by the engines.
const (
	EventBalanceCredited = "balance.credited"
	EventAssetAssigned   = "asset.assigned"
	EventAssetSold       = "asset.sold"
	EventGrowthApplied   = "growth.applied"
)

// Gateway delivers fire-and-forget notifications. Delivery failures are
// the implementation's problem; they must never surface into, or roll
// back, a ledger mutation. Engines call Notify only after commit.
type Gateway interface {
	Notify(eventKind string, payload map[string]any)
}

// LogGateway writes notifications to the structured log. Stands in for
// the mail/push delivery that lives outside this service.
type LogGateway struct {
	log zerolog.Logger
}

// NewLogGateway creates a log-backed notification gateway.
func NewLogGateway(log zerolog.Logger) *LogGateway {
	return &LogGateway{log: log.With().Str("component", "notify").Logger()}
}

// Notify implements Gateway.
func (g *LogGateway) Notify(eventKind string, payload map[string]any) {
	g.log.Info().Str("event", eventKind).Fields(payload).Msg("Notification")
}

// NopGateway discards all notifications.
type NopGateway struct{}

// Notify implements Gateway.
func (NopGateway) Notify(string, map[string]any) {}
