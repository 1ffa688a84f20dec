// models/payment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment is one row of the append-only payment ledger. TransactionID is the
// external processor's id and is unique: a retried confirmation for the same
// transaction is a no-op.
type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	HREmail       string             `bson:"hrEmail" json:"hrEmail"`
	PackageName   string             `bson:"packageName" json:"packageName"`
	EmployeeLimit int                `bson:"employeeLimit" json:"employeeLimit"`
	Amount        int64              `bson:"amount" json:"amount"`
	TransactionID string             `bson:"transactionId" json:"transactionId"`
	PaymentDate   time.Time          `bson:"paymentDate" json:"paymentDate"`
	Status        string             `bson:"status" json:"status"` // always "completed"
}
