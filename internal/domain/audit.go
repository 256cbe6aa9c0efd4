package domain

// EventKind names an audit-logged lifecycle event.
type EventKind string

const (
	EventOpened          EventKind = "opened"
	EventClaimed         EventKind = "claimed"
	EventClosed          EventKind = "closed"
	EventDeleted         EventKind = "deleted"
	EventReopened        EventKind = "reopened"
	EventTranscriptSaved EventKind = "transcript_saved"
)

// EventKinds lists every audit event kind.
var EventKinds = []EventKind{
	EventOpened,
	EventClaimed,
	EventClosed,
	EventDeleted,
	EventReopened,
	EventTranscriptSaved,
}

// AuditConfig selects the log channel and which events reach it.
type AuditConfig struct {
	ChannelID string             `json:"channel_id,omitempty"`
	Events    map[EventKind]bool `json:"events"`
}

// DefaultAuditConfig enables every kind with no channel set.
func DefaultAuditConfig() AuditConfig {
	events := make(map[EventKind]bool, len(EventKinds))
	for _, kind := range EventKinds {
		events[kind] = true
	}
	return AuditConfig{Events: events}
}

// Enabled reports whether kind should be posted. Kinds missing from the map
// are enabled.
func (c AuditConfig) Enabled(kind EventKind) bool {
	if c.ChannelID == "" {
		return false
	}
	enabled, ok := c.Events[kind]
	return !ok || enabled
}
