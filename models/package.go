// models/package.go
package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Package is a read-only catalog entry for an employee-seat tier.
type Package struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Price         int64              `bson:"price" json:"price"` // smallest currency unit
	EmployeeLimit int                `bson:"employeeLimit" json:"employeeLimit"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
}
