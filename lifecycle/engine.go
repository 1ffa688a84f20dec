// Package lifecycle implements the asset request/approval/assignment/return
// state machine together with its inventory accounting and affiliation
// bookkeeping. All multi-document sequences run inside a store transaction so
// a failure partway through leaves no partial state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"assetverse/models"
)

// Engine orchestrates lifecycle operations against a Store. Role checks
// happen upstream: callers pass the already-authorized user.
type Engine struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger.Named("lifecycle"),
		now:    time.Now,
	}
}

// CreateAssetInput carries the HR-supplied fields for a new inventory line.
type CreateAssetInput struct {
	Name     string
	Type     string
	Image    string
	Quantity int
}

// CreateAsset registers a new asset with availableQuantity = quantity.
func (e *Engine) CreateAsset(ctx context.Context, hr *models.User, in CreateAssetInput) (*models.Asset, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: asset name is required", ErrInvalidInput)
	}
	if in.Type != models.AssetReturnable && in.Type != models.AssetNonReturnable {
		return nil, fmt.Errorf("%w: asset type must be %q or %q", ErrInvalidInput, models.AssetReturnable, models.AssetNonReturnable)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	asset := &models.Asset{
		ID:                primitive.NewObjectID(),
		Name:              name,
		Type:              in.Type,
		Image:             in.Image,
		Quantity:          in.Quantity,
		AvailableQuantity: in.Quantity,
		HREmail:           hr.Email,
		CompanyName:       hr.CompanyName,
		CreatedAt:         e.now().UTC(),
	}
	if err := e.store.InsertAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}

	e.logger.Info("asset created",
		zap.String("asset_id", asset.ID.Hex()),
		zap.String("hr_email", hr.Email),
		zap.Int("quantity", in.Quantity),
	)
	return asset, nil
}

// SubmitRequest files a pending request for one unit of the asset. Inventory
// is not reserved here; availability is rechecked at approval.
func (e *Engine) SubmitRequest(ctx context.Context, employee *models.User, assetID primitive.ObjectID, note string) (*models.Request, error) {
	asset, err := e.store.AssetByID(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if asset.AvailableQuantity < 1 {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, asset.Name)
	}

	exists, err := e.store.PendingRequestExists(ctx, assetID, employee.Email)
	if err != nil {
		return nil, fmt.Errorf("check pending request: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: request already pending for this asset", ErrConflict)
	}

	req := &models.Request{
		ID:             primitive.NewObjectID(),
		AssetID:        asset.ID,
		AssetName:      asset.Name,
		AssetType:      asset.Type,
		AssetImage:     asset.Image,
		RequesterEmail: employee.Email,
		RequesterName:  employee.Name,
		HREmail:        asset.HREmail,
		CompanyName:    asset.CompanyName,
		Note:           note,
		Status:         models.RequestPending,
		RequestDate:    e.now().UTC(),
	}
	if err := e.store.InsertRequest(ctx, req); err != nil {
		return nil, err
	}

	e.logger.Info("request submitted",
		zap.String("request_id", req.ID.Hex()),
		zap.String("asset_id", assetID.Hex()),
		zap.String("requester", employee.Email),
	)
	return req, nil
}

// ApproveRequest resolves a pending request in the caller's favor: one unit
// of inventory is reserved, an assignment is created, and the employee is
// affiliated with the HR account if this is their first assignment for it.
// The whole sequence is transactional; the checks are ordered to fail fast
// (availability before duplicate assignment before seat limit).
func (e *Engine) ApproveRequest(ctx context.Context, hr *models.User, requestID primitive.ObjectID) (*models.Request, error) {
	var approved *models.Request

	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		req, err := e.store.RequestByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.HREmail != hr.Email {
			return ErrNotFound
		}
		if !req.Status.CanTransition(models.RequestApproved) {
			return fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
		}

		if _, err := e.store.AssetByID(ctx, req.AssetID); err != nil {
			return err
		}

		// Conditional decrement enforces availableQuantity >= 0 even when
		// two approvals race for the last unit. Exhausted inventory surfaces
		// before a duplicate assignment; a failure after this point rolls
		// the reservation back with the transaction.
		if err := e.store.ReserveAssetUnit(ctx, req.AssetID); err != nil {
			return err
		}

		assigned, err := e.store.ActiveAssignmentExists(ctx, req.AssetID, req.RequesterEmail)
		if err != nil {
			return fmt.Errorf("check assignment: %w", err)
		}
		if assigned {
			return fmt.Errorf("%w: asset already assigned to requester", ErrConflict)
		}

		now := e.now().UTC()

		affiliated, err := e.store.ActiveAffiliationExists(ctx, req.RequesterEmail, hr.Email)
		if err != nil {
			return fmt.Errorf("check affiliation: %w", err)
		}
		if !affiliated {
			if err := e.store.GrowEmployeeCount(ctx, hr.Email); err != nil {
				return err
			}
			if err := e.store.ActivateAffiliation(ctx, &models.EmployeeAffiliation{
				ID:              primitive.NewObjectID(),
				EmployeeEmail:   req.RequesterEmail,
				EmployeeName:    req.RequesterName,
				HREmail:         hr.Email,
				CompanyName:     hr.CompanyName,
				Status:          models.AffiliationActive,
				AffiliationDate: now,
			}); err != nil {
				return fmt.Errorf("activate affiliation: %w", err)
			}
			if err := e.store.AddCompanyAffiliation(ctx, req.RequesterEmail, models.CompanyAffiliation{
				CompanyName: hr.CompanyName,
				ApprovedBy:  hr.Email,
				ApprovedAt:  now,
			}); err != nil {
				return fmt.Errorf("record company affiliation: %w", err)
			}
		}

		if err := e.store.UpdateRequestStatus(ctx, req.ID, models.RequestPending, models.RequestApproved, hr.Email, now); err != nil {
			return err
		}

		if err := e.store.InsertAssignedAsset(ctx, &models.AssignedAsset{
			ID:             primitive.NewObjectID(),
			AssetID:        req.AssetID,
			RequestID:      req.ID,
			AssetName:      req.AssetName,
			AssetType:      req.AssetType,
			EmployeeEmail:  req.RequesterEmail,
			EmployeeName:   req.RequesterName,
			HREmail:        hr.Email,
			CompanyName:    hr.CompanyName,
			Status:         models.AssignmentAssigned,
			AssignmentDate: now,
		}); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}

		req.Status = models.RequestApproved
		req.ApprovalDate = &now
		req.ProcessedBy = hr.Email
		approved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("request approved",
		zap.String("request_id", requestID.Hex()),
		zap.String("hr_email", hr.Email),
		zap.String("requester", approved.RequesterEmail),
	)
	return approved, nil
}

// RejectRequest resolves a pending request against the requester. No
// inventory effect.
func (e *Engine) RejectRequest(ctx context.Context, hr *models.User, requestID primitive.ObjectID) (*models.Request, error) {
	req, err := e.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.HREmail != hr.Email {
		return nil, ErrNotFound
	}
	if !req.Status.CanTransition(models.RequestRejected) {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidState, req.Status)
	}

	now := e.now().UTC()
	if err := e.store.UpdateRequestStatus(ctx, req.ID, models.RequestPending, models.RequestRejected, hr.Email, now); err != nil {
		return nil, err
	}

	req.Status = models.RequestRejected
	req.ApprovalDate = &now
	req.ProcessedBy = hr.Email

	e.logger.Info("request rejected",
		zap.String("request_id", requestID.Hex()),
		zap.String("hr_email", hr.Email),
	)
	return req, nil
}

// ReturnAsset hands an assigned asset back: the assignment and its
// originating request move to returned and the unit goes back into
// inventory. If the asset was deleted in the meantime the inventory step is
// skipped.
func (e *Engine) ReturnAsset(ctx context.Context, employee *models.User, assignmentID primitive.ObjectID) (*models.AssignedAsset, error) {
	var returned *models.AssignedAsset

	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		a, err := e.store.AssignedAssetByID(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.EmployeeEmail != employee.Email || a.Status != models.AssignmentAssigned {
			return fmt.Errorf("%w: assignment is not returnable by caller", ErrInvalidState)
		}

		now := e.now().UTC()
		if err := e.store.MarkAssignmentReturned(ctx, a.ID, employee.Email, now); err != nil {
			return err
		}
		if err := e.store.ReleaseAssetUnit(ctx, a.AssetID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := e.store.UpdateRequestStatus(ctx, a.RequestID, models.RequestApproved, models.RequestReturned, employee.Email, now); err != nil {
			return err
		}

		a.Status = models.AssignmentReturned
		a.ReturnDate = &now
		returned = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("asset returned",
		zap.String("assignment_id", assignmentID.Hex()),
		zap.String("employee", employee.Email),
	)
	return returned, nil
}

// ApplyPayment records a confirmed seat-package payment and raises the
// buyer's limit. Application is keyed on the processor transaction id:
// whichever of the client confirmation and the webhook lands first inserts
// the ledger row and updates the limit; the other, and any retry, is a
// no-op. Returns the updated HR user when this call applied the payment.
func (e *Engine) ApplyPayment(ctx context.Context, hrEmail string, pkg *models.Package, transactionID string, amount int64) (*models.User, bool, error) {
	if transactionID == "" {
		return nil, false, fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}

	var (
		hr      *models.User
		applied bool
	)
	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		inserted, err := e.store.InsertPaymentOnce(ctx, &models.Payment{
			ID:            primitive.NewObjectID(),
			HREmail:       hrEmail,
			PackageName:   pkg.Name,
			EmployeeLimit: pkg.EmployeeLimit,
			Amount:        amount,
			TransactionID: transactionID,
			PaymentDate:   e.now().UTC(),
			Status:        "completed",
		})
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		applied = inserted
		if !inserted {
			return nil
		}

		u, err := e.store.SetPackageLimit(ctx, hrEmail, pkg.EmployeeLimit)
		if err != nil {
			return err
		}
		hr = u
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if !applied {
		e.logger.Info("duplicate payment confirmation ignored",
			zap.String("transaction_id", transactionID),
			zap.String("hr_email", hrEmail),
		)
		return nil, false, nil
	}

	e.logger.Info("payment applied",
		zap.String("transaction_id", transactionID),
		zap.String("hr_email", hrEmail),
		zap.String("package", pkg.Name),
		zap.Int("employee_limit", pkg.EmployeeLimit),
	)
	return hr, true, nil
}

// RemoveEmployee deactivates the employee's affiliation with the HR account,
// frees the seat, and strips the company entry from the employee's profile.
// Outstanding assignments are left untouched.
func (e *Engine) RemoveEmployee(ctx context.Context, hr *models.User, employeeEmail string) error {
	err := e.store.InTransaction(ctx, func(ctx context.Context) error {
		if err := e.store.DeactivateAffiliation(ctx, employeeEmail, hr.Email); err != nil {
			return err
		}
		if err := e.store.ShrinkEmployeeCount(ctx, hr.Email); err != nil {
			return fmt.Errorf("shrink employee count: %w", err)
		}
		return e.store.PullCompanyAffiliation(ctx, employeeEmail, hr.CompanyName)
	})
	if err != nil {
		return err
	}

	e.logger.Info("employee removed",
		zap.String("employee", employeeEmail),
		zap.String("hr_email", hr.Email),
	)
	return nil
}
