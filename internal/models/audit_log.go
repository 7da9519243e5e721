package models

// AuditLog records an actor's action against a resource. ActorID is a user
// ID, or a "system:" name for background jobs.
type AuditLog struct {
	Base
	ActorID      string `gorm:"size:64;not null;index" json:"actor_id"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null;index:idx_audit_resource" json:"resource_type"`
	ResourceID   string `gorm:"index:idx_audit_resource" json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
