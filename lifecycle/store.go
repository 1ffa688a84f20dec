package lifecycle

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"assetverse/models"
)

// Store is the persistence surface the engine runs on. Counter mutations
// (ReserveAssetUnit, ReleaseAssetUnit, GrowEmployeeCount) are conditional:
// they succeed only if the resulting value stays within its bound and fail
// with the engine's sentinel errors otherwise, so two concurrent approvals of
// the last unit cannot both pass.
type Store interface {
	InsertAsset(ctx context.Context, asset *models.Asset) error
	AssetByID(ctx context.Context, id primitive.ObjectID) (*models.Asset, error)
	// ReserveAssetUnit decrements availableQuantity iff it is >= 1;
	// returns ErrUnavailable otherwise.
	ReserveAssetUnit(ctx context.Context, id primitive.ObjectID) error
	// ReleaseAssetUnit increments availableQuantity iff it is < quantity;
	// returns ErrNotFound when the asset no longer exists.
	ReleaseAssetUnit(ctx context.Context, id primitive.ObjectID) error

	InsertRequest(ctx context.Context, req *models.Request) error
	RequestByID(ctx context.Context, id primitive.ObjectID) (*models.Request, error)
	PendingRequestExists(ctx context.Context, assetID primitive.ObjectID, requesterEmail string) (bool, error)
	// UpdateRequestStatus moves a request from one status to another with a
	// compare-and-swap on the current status; returns ErrInvalidState when
	// the request is no longer in the expected state.
	UpdateRequestStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus, processedBy string, at time.Time) error

	InsertAssignedAsset(ctx context.Context, a *models.AssignedAsset) error
	AssignedAssetByID(ctx context.Context, id primitive.ObjectID) (*models.AssignedAsset, error)
	ActiveAssignmentExists(ctx context.Context, assetID primitive.ObjectID, employeeEmail string) (bool, error)
	// MarkAssignmentReturned flips an assignment owned by employeeEmail from
	// assigned to returned; returns ErrInvalidState otherwise.
	MarkAssignmentReturned(ctx context.Context, id primitive.ObjectID, employeeEmail string, at time.Time) error

	ActiveAffiliationExists(ctx context.Context, employeeEmail, hrEmail string) (bool, error)
	// ActivateAffiliation inserts the affiliation, or reactivates the
	// existing inactive record for the same (employee, hr) pair.
	ActivateAffiliation(ctx context.Context, aff *models.EmployeeAffiliation) error
	// DeactivateAffiliation flips an active affiliation to inactive; returns
	// ErrNotFound when no active affiliation exists.
	DeactivateAffiliation(ctx context.Context, employeeEmail, hrEmail string) error

	// GrowEmployeeCount increments the HR account's currentEmployees iff the
	// result stays within packageLimit; returns ErrLimitReached otherwise.
	GrowEmployeeCount(ctx context.Context, hrEmail string) error
	ShrinkEmployeeCount(ctx context.Context, hrEmail string) error

	AddCompanyAffiliation(ctx context.Context, employeeEmail string, entry models.CompanyAffiliation) error
	PullCompanyAffiliation(ctx context.Context, employeeEmail, companyName string) error

	// InsertPaymentOnce appends the ledger row unless one already exists for
	// the same transaction id; reports whether this call inserted it.
	InsertPaymentOnce(ctx context.Context, p *models.Payment) (bool, error)
	// SetPackageLimit sets the HR account's seat limit and returns the
	// updated user; returns ErrNotFound for a missing HR account.
	SetPackageLimit(ctx context.Context, hrEmail string, limit int) (*models.User, error)

	// InTransaction runs fn atomically: either every write inside fn is
	// applied or none are. The context passed to fn must be used for all
	// store calls made within.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
