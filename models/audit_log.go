// models/audit_log.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuditLog is an append-only trail of lifecycle mutations.
type AuditLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CompanyName string             `bson:"companyName" json:"companyName"`
	ActorEmail  string             `bson:"actorEmail" json:"actorEmail"`
	Action      string             `bson:"action" json:"action"`
	EntityType  string             `bson:"entityType" json:"entityType"`
	EntityID    primitive.ObjectID `bson:"entityId,omitempty" json:"entityId,omitempty"`
	Details     bson.M             `bson:"details,omitempty" json:"details,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}
