// models/asset.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AssetReturnable    = "returnable"
	AssetNonReturnable = "non-returnable"
)

// Asset is one inventory line owned by an HR account. AvailableQuantity is
// the only counter mutated after creation and always satisfies
// 0 <= availableQuantity <= quantity.
type Asset struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name              string             `bson:"name" json:"name"`
	Type              string             `bson:"type" json:"type"`
	Image             string             `bson:"image,omitempty" json:"image,omitempty"`
	Quantity          int                `bson:"quantity" json:"quantity"`
	AvailableQuantity int                `bson:"availableQuantity" json:"availableQuantity"`
	HREmail           string             `bson:"hrEmail" json:"hrEmail"`
	CompanyName       string             `bson:"companyName" json:"companyName"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
}
