package lifecycle_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap/zaptest"

	"assetverse/lifecycle"
	"assetverse/models"
	"assetverse/store"
)

var _ lifecycle.Store = (*store.Memory)(nil)

func newFixture(t *testing.T) (*lifecycle.Engine, *store.Memory, *models.User, *models.User) {
	t.Helper()
	mem := store.NewMemory()
	engine := lifecycle.NewEngine(mem, zaptest.NewLogger(t))

	hr := &models.User{
		ID:           primitive.NewObjectID(),
		Email:        "hr@acme.test",
		Name:         "Ada Admin",
		Role:         models.RoleHR,
		CompanyName:  "Acme",
		PackageLimit: 5,
	}
	employee := &models.User{
		ID:    primitive.NewObjectID(),
		Email: "emp@people.test",
		Name:  "Evan Employee",
		Role:  models.RoleEmployee,
	}
	mem.PutUser(hr)
	mem.PutUser(employee)
	return engine, mem, hr, employee
}

func mustCreateAsset(t *testing.T, e *lifecycle.Engine, hr *models.User, qty int) *models.Asset {
	t.Helper()
	asset, err := e.CreateAsset(context.Background(), hr, lifecycle.CreateAssetInput{
		Name:     "Laptop",
		Type:     models.AssetReturnable,
		Quantity: qty,
	})
	require.NoError(t, err)
	return asset
}

func TestCreateAssetValidation(t *testing.T) {
	engine, _, hr, _ := newFixture(t)

	tests := []struct {
		name  string
		input lifecycle.CreateAssetInput
	}{
		{"empty name", lifecycle.CreateAssetInput{Type: models.AssetReturnable, Quantity: 1}},
		{"bad type", lifecycle.CreateAssetInput{Name: "Chair", Type: "rentable", Quantity: 1}},
		{"zero quantity", lifecycle.CreateAssetInput{Name: "Chair", Type: models.AssetReturnable, Quantity: 0}},
		{"negative quantity", lifecycle.CreateAssetInput{Name: "Chair", Type: models.AssetReturnable, Quantity: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.CreateAsset(context.Background(), hr, tt.input)
			assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)
		})
	}
}

func TestSubmitRequest(t *testing.T) {
	engine, _, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 2)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "need for onboarding")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, asset.Name, req.AssetName)
	assert.Equal(t, hr.Email, req.HREmail)

	// A second request for the same asset while the first is pending is a
	// conflict.
	_, err = engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
}

func TestSubmitRequestUnknownAsset(t *testing.T) {
	engine, _, _, employee := newFixture(t)
	_, err := engine.SubmitRequest(context.Background(), employee, primitive.NewObjectID(), "")
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestSubmitRequestOutOfStock(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 1)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)

	other := &models.User{ID: primitive.NewObjectID(), Email: "other@people.test", Name: "Olga Other", Role: models.RoleEmployee}
	mem.PutUser(other)
	_, err = engine.SubmitRequest(context.Background(), other, asset.ID, "")
	assert.ErrorIs(t, err, lifecycle.ErrUnavailable)
}

func TestApproveRequestFullCycle(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 3)
	require.Equal(t, 3, asset.AvailableQuantity)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)

	approved, err := engine.ApproveRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, approved.Status)
	assert.Equal(t, hr.Email, approved.ProcessedBy)
	require.NotNil(t, approved.ApprovalDate)

	got, err := mem.AssetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableQuantity)

	hrUser, err := mem.UserByEmail(hr.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, hrUser.CurrentEmployees)

	active, err := mem.ActiveAffiliationExists(context.Background(), employee.Email, hr.Email)
	require.NoError(t, err)
	assert.True(t, active)

	empUser, err := mem.UserByEmail(employee.Email)
	require.NoError(t, err)
	require.Len(t, empUser.Affiliations, 1)
	assert.Equal(t, hr.CompanyName, empUser.Affiliations[0].CompanyName)
}

func TestApproveRequestNotPending(t *testing.T) {
	engine, _, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 2)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	_, err = engine.RejectRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)

	_, err = engine.ApproveRequest(context.Background(), hr, req.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
}

func TestApproveRequestWrongTenant(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 1)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)

	otherHR := &models.User{ID: primitive.NewObjectID(), Email: "hr@rival.test", Role: models.RoleHR, CompanyName: "Rival", PackageLimit: 10}
	mem.PutUser(otherHR)

	_, err = engine.ApproveRequest(context.Background(), otherHR, req.ID)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestApproveRequestUnavailableLeavesNoWrites(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 1)

	first, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, first.ID)
	require.NoError(t, err)

	other := &models.User{ID: primitive.NewObjectID(), Email: "other@people.test", Name: "Olga Other", Role: models.RoleEmployee}
	mem.PutUser(other)

	// A request that was submitted while stock was still available but is
	// approved after the last unit went out.
	second := &models.Request{
		ID:             primitive.NewObjectID(),
		AssetID:        asset.ID,
		AssetName:      asset.Name,
		AssetType:      asset.Type,
		RequesterEmail: other.Email,
		RequesterName:  other.Name,
		HREmail:        hr.Email,
		CompanyName:    hr.CompanyName,
		Status:         models.RequestPending,
	}
	require.NoError(t, mem.InsertRequest(context.Background(), second))

	_, err = engine.ApproveRequest(context.Background(), hr, second.ID)
	assert.ErrorIs(t, err, lifecycle.ErrUnavailable)

	// No partial state: the request is still pending, the seat count and
	// affiliations untouched.
	req, err := mem.RequestByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)

	hrUser, err := mem.UserByEmail(hr.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, hrUser.CurrentEmployees)

	active, err := mem.ActiveAffiliationExists(context.Background(), other.Email, hr.Email)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestApproveRequestLimitReached(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	hr.PackageLimit = 1
	hr.CurrentEmployees = 1
	mem.PutUser(hr)
	asset := mustCreateAsset(t, engine, hr, 2)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)

	_, err = engine.ApproveRequest(context.Background(), hr, req.ID)
	assert.ErrorIs(t, err, lifecycle.ErrLimitReached)

	// The reserved unit was rolled back with the transaction.
	got, err := mem.AssetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AvailableQuantity)
}

func TestApproveRepeatAssignmentDoesNotGrowSeatCount(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	laptop := mustCreateAsset(t, engine, hr, 2)
	monitor, err := engine.CreateAsset(context.Background(), hr, lifecycle.CreateAssetInput{
		Name: "Monitor", Type: models.AssetReturnable, Quantity: 2,
	})
	require.NoError(t, err)

	req1, err := engine.SubmitRequest(context.Background(), employee, laptop.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, req1.ID)
	require.NoError(t, err)

	req2, err := engine.SubmitRequest(context.Background(), employee, monitor.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, req2.ID)
	require.NoError(t, err)

	hrUser, err := mem.UserByEmail(hr.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, hrUser.CurrentEmployees, "already-affiliated employee must not consume another seat")
}

func TestApproveDuplicateAssignmentConflict(t *testing.T) {
	engine, _, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 3)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)

	// With the assignment live, approving a fresh request for the same
	// (asset, employee) pair is a conflict.
	req2, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, req2.ID)
	assert.ErrorIs(t, err, lifecycle.ErrConflict)
}

func TestApproveExhaustedStockBeatsDuplicateAssignment(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 1)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)

	// The last unit is out and the requester already holds it. Availability
	// is checked first, so the caller sees out-of-stock, not a duplicate.
	second := &models.Request{
		ID:             primitive.NewObjectID(),
		AssetID:        asset.ID,
		AssetName:      asset.Name,
		AssetType:      asset.Type,
		RequesterEmail: employee.Email,
		RequesterName:  employee.Name,
		HREmail:        hr.Email,
		CompanyName:    hr.CompanyName,
		Status:         models.RequestPending,
	}
	require.NoError(t, mem.InsertRequest(context.Background(), second))

	_, err = engine.ApproveRequest(context.Background(), hr, second.ID)
	assert.ErrorIs(t, err, lifecycle.ErrUnavailable)

	got, err := mem.AssetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableQuantity)
}

func TestRejectRequest(t *testing.T) {
	engine, _, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 1)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)

	rejected, err := engine.RejectRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, rejected.Status)
	assert.Equal(t, hr.Email, rejected.ProcessedBy)

	// Rejection is terminal.
	_, err = engine.RejectRequest(context.Background(), hr, req.ID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
}

func TestReturnAsset(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 3)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	approved, err := engine.ApproveRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)

	var assignmentID primitive.ObjectID
	// Find the assignment through its request link.
	for _, a := range listAssignments(mem) {
		if a.RequestID == approved.ID {
			assignmentID = a.ID
		}
	}
	require.False(t, assignmentID.IsZero())

	returned, err := engine.ReturnAsset(context.Background(), employee, assignmentID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentReturned, returned.Status)
	require.NotNil(t, returned.ReturnDate)

	got, err := mem.AssetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableQuantity)

	reqAfter, err := mem.RequestByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestReturned, reqAfter.Status)

	// Double return fails.
	_, err = engine.ReturnAsset(context.Background(), employee, assignmentID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
}

func TestReturnAssetNotOwner(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 1)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	approved, err := engine.ApproveRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)

	var assignmentID primitive.ObjectID
	for _, a := range listAssignments(mem) {
		if a.RequestID == approved.ID {
			assignmentID = a.ID
		}
	}

	intruder := &models.User{ID: primitive.NewObjectID(), Email: "intruder@people.test", Role: models.RoleEmployee}
	mem.PutUser(intruder)
	_, err = engine.ReturnAsset(context.Background(), intruder, assignmentID)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidState)
}

func TestReturnAssetAfterAssetDeleted(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 1)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	approved, err := engine.ApproveRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)

	require.NoError(t, mem.DeleteAsset(context.Background(), asset.ID))

	var assignmentID primitive.ObjectID
	for _, a := range listAssignments(mem) {
		if a.RequestID == approved.ID {
			assignmentID = a.ID
		}
	}

	// The inventory step is skipped for a deleted asset; the return itself
	// still succeeds.
	returned, err := engine.ReturnAsset(context.Background(), employee, assignmentID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentReturned, returned.Status)
}

func TestRemoveEmployee(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 1)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)

	require.NoError(t, engine.RemoveEmployee(context.Background(), hr, employee.Email))

	hrUser, err := mem.UserByEmail(hr.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, hrUser.CurrentEmployees)

	active, err := mem.ActiveAffiliationExists(context.Background(), employee.Email, hr.Email)
	require.NoError(t, err)
	assert.False(t, active)

	empUser, err := mem.UserByEmail(employee.Email)
	require.NoError(t, err)
	assert.Empty(t, empUser.Affiliations)

	// Removing again: no active affiliation left.
	err = engine.RemoveEmployee(context.Background(), hr, employee.Email)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestRemoveThenReapproveReactivatesAffiliation(t *testing.T) {
	engine, mem, hr, employee := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 2)

	req, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, req.ID)
	require.NoError(t, err)
	require.NoError(t, engine.RemoveEmployee(context.Background(), hr, employee.Email))

	req2, err := engine.SubmitRequest(context.Background(), employee, asset.ID, "")
	require.NoError(t, err)
	_, err = engine.ApproveRequest(context.Background(), hr, req2.ID)
	require.NoError(t, err)

	hrUser, err := mem.UserByEmail(hr.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, hrUser.CurrentEmployees)

	count := 0
	for _, aff := range listAffiliations(mem) {
		if aff.EmployeeEmail == employee.Email && aff.HREmail == hr.Email {
			count++
			assert.Equal(t, models.AffiliationActive, aff.Status)
		}
	}
	assert.Equal(t, 1, count, "reactivation must reuse the record, not duplicate it")
}

func TestConcurrentApprovalOfLastUnit(t *testing.T) {
	engine, mem, hr, _ := newFixture(t)
	asset := mustCreateAsset(t, engine, hr, 1)

	emails := []string{"a@people.test", "b@people.test"}
	requests := make([]*models.Request, len(emails))
	for i, email := range emails {
		u := &models.User{ID: primitive.NewObjectID(), Email: email, Name: email, Role: models.RoleEmployee}
		mem.PutUser(u)
		req, err := engine.SubmitRequest(context.Background(), u, asset.ID, "")
		require.NoError(t, err)
		requests[i] = req
	}

	var wg sync.WaitGroup
	errs := make([]error, len(requests))
	for i := range requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.ApproveRequest(context.Background(), hr, requests[i].ID)
		}(i)
	}
	wg.Wait()

	var ok, unavailable int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, lifecycle.ErrUnavailable):
			unavailable++
		}
	}
	assert.Equal(t, 1, ok, "exactly one approval must win the last unit")
	assert.Equal(t, 1, unavailable)

	got, err := mem.AssetByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableQuantity)
}

func seatPackage() *models.Package {
	return &models.Package{
		ID:            primitive.NewObjectID(),
		Name:          "Team",
		Price:         2500,
		EmployeeLimit: 10,
	}
}

func TestApplyPaymentRaisesSeatLimit(t *testing.T) {
	engine, mem, hr, _ := newFixture(t)
	pkg := seatPackage()

	updated, applied, err := engine.ApplyPayment(context.Background(), hr.Email, pkg, "txn_1", pkg.Price)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 10, updated.PackageLimit)

	stored, err := mem.UserByEmail(hr.Email)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.PackageLimit)

	payments := mem.AllPayments()
	require.Len(t, payments, 1)
	assert.Equal(t, "txn_1", payments[0].TransactionID)
	assert.Equal(t, hr.Email, payments[0].HREmail)
	assert.Equal(t, "completed", payments[0].Status)
}

func TestApplyPaymentDuplicateTransactionIsNoOp(t *testing.T) {
	engine, mem, hr, _ := newFixture(t)
	small := seatPackage()
	large := &models.Package{ID: primitive.NewObjectID(), Name: "Org", Price: 9900, EmployeeLimit: 50}

	_, applied, err := engine.ApplyPayment(context.Background(), hr.Email, small, "txn_1", small.Price)
	require.NoError(t, err)
	require.True(t, applied)

	// The client confirmation and the webhook deliver the same transaction;
	// the second arrival must not touch the ledger or the limit, even with
	// different package data attached.
	_, applied, err = engine.ApplyPayment(context.Background(), hr.Email, large, "txn_1", large.Price)
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err := mem.UserByEmail(hr.Email)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.PackageLimit)
	assert.Len(t, mem.AllPayments(), 1)

	// A new transaction still applies.
	_, applied, err = engine.ApplyPayment(context.Background(), hr.Email, large, "txn_2", large.Price)
	require.NoError(t, err)
	assert.True(t, applied)
	stored, err = mem.UserByEmail(hr.Email)
	require.NoError(t, err)
	assert.Equal(t, 50, stored.PackageLimit)
	assert.Len(t, mem.AllPayments(), 2)
}

func TestApplyPaymentConcurrentDuplicates(t *testing.T) {
	engine, mem, hr, _ := newFixture(t)
	pkg := seatPackage()

	var wg sync.WaitGroup
	appliedFlags := make([]bool, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, appliedFlags[i], errs[i] = engine.ApplyPayment(context.Background(), hr.Email, pkg, "txn_race", pkg.Price)
		}(i)
	}
	wg.Wait()

	var wins int
	for i := range errs {
		require.NoError(t, errs[i])
		if appliedFlags[i] {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one confirmation must insert the ledger row")
	assert.Len(t, mem.AllPayments(), 1)
}

func TestApplyPaymentValidation(t *testing.T) {
	engine, mem, _, employee := newFixture(t)
	pkg := seatPackage()

	_, _, err := engine.ApplyPayment(context.Background(), "hr@acme.test", pkg, "", pkg.Price)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidInput)

	// Unknown or non-HR account: nothing is applied and the ledger row is
	// rolled back, so a corrected retry with the same transaction id works.
	_, _, err = engine.ApplyPayment(context.Background(), "nobody@acme.test", pkg, "txn_1", pkg.Price)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	_, _, err = engine.ApplyPayment(context.Background(), employee.Email, pkg, "txn_1", pkg.Price)
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	assert.Empty(t, mem.AllPayments())
}

// listAssignments and listAffiliations walk the memory store through its
// public surface for assertions.
func listAssignments(mem *store.Memory) []*models.AssignedAsset {
	return mem.AllAssignments()
}

func listAffiliations(mem *store.Memory) []*models.EmployeeAffiliation {
	return mem.AllAffiliations()
}
