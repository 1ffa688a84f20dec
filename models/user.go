// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleHR       = "hr"
	RoleEmployee = "employee"
)

// User is a principal known to the system, keyed by verified email.
// PackageLimit and CurrentEmployees are meaningful only for role=hr.
type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Email            string               `bson:"email" json:"email"`
	Name             string               `bson:"name" json:"name"`
	Role             string               `bson:"role" json:"role"`
	DateOfBirth      string               `bson:"dateOfBirth,omitempty" json:"dateOfBirth,omitempty"`
	ProfileImage     string               `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	CompanyName      string               `bson:"companyName,omitempty" json:"companyName,omitempty"`
	CompanyLogo      string               `bson:"companyLogo,omitempty" json:"companyLogo,omitempty"`
	PackageLimit     int                  `bson:"packageLimit" json:"packageLimit"`
	CurrentEmployees int                  `bson:"currentEmployees" json:"currentEmployees"`
	Affiliations     []CompanyAffiliation `bson:"companyAffiliations,omitempty" json:"companyAffiliations,omitempty"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
}

// CompanyAffiliation is the denormalized entry kept on an employee's user
// document for each company that has approved an asset for them.
type CompanyAffiliation struct {
	CompanyName string    `bson:"companyName" json:"companyName"`
	ApprovedBy  string    `bson:"approvedBy" json:"approvedBy"`
	ApprovedAt  time.Time `bson:"approvedAt" json:"approvedAt"`
}
