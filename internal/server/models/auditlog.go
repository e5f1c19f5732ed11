package models

import "time"

type AuditStatus string

const (
	AuditSuccess AuditStatus = "SUCCESS"
	AuditFailed  AuditStatus = "FAILED"
)

// AuditLog is one recorded security event.
type AuditLog struct {
	ID           string         `json:"id"`
	ActorUserID  string         `json:"actorUserId,omitempty"`
	ActorEmail   string         `json:"actorEmail,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId,omitempty"`
	ResourceName string         `json:"resourceName,omitempty"`
	Changes      map[string]any `json:"changes,omitempty"`
	Status       AuditStatus    `json:"status"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	IPAddress    string         `json:"ipAddress,omitempty"`
	UserAgent    string         `json:"userAgent,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}
