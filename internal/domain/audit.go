package domain

import "time"

// AuditEntry records one mutating action taken by an agent.
// Entries are append-only.
type AuditEntry struct {
	ID        string         `json:"id"`
	Goal      string         `json:"goal"`
	AgentName string         `json:"agent_name"`
	Action    string         `json:"action"`
	Diff      map[string]any `json:"diff,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
