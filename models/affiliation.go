// models/affiliation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmployeeAffiliation records that an employee belongs to an HR account's
// company. Created on the employee's first approved request per HR, never
// deleted: removal sets status inactive and a later approval reactivates it.
type EmployeeAffiliation struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EmployeeEmail   string             `bson:"employeeEmail" json:"employeeEmail"`
	EmployeeName    string             `bson:"employeeName" json:"employeeName"`
	HREmail         string             `bson:"hrEmail" json:"hrEmail"`
	CompanyName     string             `bson:"companyName" json:"companyName"`
	Status          AffiliationStatus  `bson:"status" json:"status"`
	AffiliationDate time.Time          `bson:"affiliationDate" json:"affiliationDate"`
}
