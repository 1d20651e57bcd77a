package deplog

import "time"

type Type string

const (
	TypeCreated     Type = "created"
	TypeUpdated     Type = "updated"
	TypeHealthCheck Type = "health_check"
	TypeDeleted     Type = "deleted"
)

// Log is an immutable audit event owned by exactly one deployment.
// Rows are inserted once and never updated or deleted by this service.
type Log struct {
	ID           int64          `json:"id"`
	DeploymentID int64          `json:"deployment_id"`
	LogType      Type           `json:"log_type"`
	Message      string         `json:"message"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
