package store

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"assetverse/lifecycle"
	"assetverse/models"
)

type memTxKey struct{}

// Memory implements lifecycle.Store on plain maps guarded by a mutex.
// InTransaction snapshots all maps and restores them when fn fails, giving
// the same all-or-nothing behavior the Mongo store gets from sessions.
type Memory struct {
	mu           sync.Mutex
	users        map[string]*models.User // by email
	assets       map[primitive.ObjectID]*models.Asset
	requests     map[primitive.ObjectID]*models.Request
	assignments  map[primitive.ObjectID]*models.AssignedAsset
	affiliations map[primitive.ObjectID]*models.EmployeeAffiliation
	payments     map[string]*models.Payment // by transaction id
}

func NewMemory() *Memory {
	return &Memory{
		users:        make(map[string]*models.User),
		assets:       make(map[primitive.ObjectID]*models.Asset),
		requests:     make(map[primitive.ObjectID]*models.Request),
		assignments:  make(map[primitive.ObjectID]*models.AssignedAsset),
		affiliations: make(map[primitive.ObjectID]*models.EmployeeAffiliation),
		payments:     make(map[string]*models.Payment),
	}
}

// lock acquires the store mutex unless the context is already inside a
// transaction, which holds it for the whole function.
func (s *Memory) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// PutUser stores a user document, keyed by email.
func (s *Memory) PutUser(u *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.Email] = &cp
}

// UserByEmail returns a copy of the stored user.
func (s *Memory) UserByEmail(email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Memory) InsertAsset(ctx context.Context, asset *models.Asset) error {
	defer s.lock(ctx)()
	cp := *asset
	s.assets[asset.ID] = &cp
	return nil
}

func (s *Memory) AssetByID(ctx context.Context, id primitive.ObjectID) (*models.Asset, error) {
	defer s.lock(ctx)()
	a, ok := s.assets[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// DeleteAsset removes the asset document, mirroring the HR hard delete.
func (s *Memory) DeleteAsset(ctx context.Context, id primitive.ObjectID) error {
	defer s.lock(ctx)()
	if _, ok := s.assets[id]; !ok {
		return lifecycle.ErrNotFound
	}
	delete(s.assets, id)
	return nil
}

func (s *Memory) ReserveAssetUnit(ctx context.Context, id primitive.ObjectID) error {
	defer s.lock(ctx)()
	a, ok := s.assets[id]
	if !ok || a.AvailableQuantity < 1 {
		return lifecycle.ErrUnavailable
	}
	a.AvailableQuantity--
	return nil
}

func (s *Memory) ReleaseAssetUnit(ctx context.Context, id primitive.ObjectID) error {
	defer s.lock(ctx)()
	a, ok := s.assets[id]
	if !ok {
		return lifecycle.ErrNotFound
	}
	if a.AvailableQuantity >= a.Quantity {
		return lifecycle.ErrInvalidState
	}
	a.AvailableQuantity++
	return nil
}

func (s *Memory) InsertRequest(ctx context.Context, req *models.Request) error {
	defer s.lock(ctx)()
	for _, r := range s.requests {
		if r.AssetID == req.AssetID && r.RequesterEmail == req.RequesterEmail && r.Status == models.RequestPending {
			return lifecycle.ErrConflict
		}
	}
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *Memory) RequestByID(ctx context.Context, id primitive.ObjectID) (*models.Request, error) {
	defer s.lock(ctx)()
	r, ok := s.requests[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Memory) PendingRequestExists(ctx context.Context, assetID primitive.ObjectID, requesterEmail string) (bool, error) {
	defer s.lock(ctx)()
	for _, r := range s.requests {
		if r.AssetID == assetID && r.RequesterEmail == requesterEmail && r.Status == models.RequestPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *Memory) UpdateRequestStatus(ctx context.Context, id primitive.ObjectID, from, to models.RequestStatus, processedBy string, at time.Time) error {
	defer s.lock(ctx)()
	r, ok := s.requests[id]
	if !ok || r.Status != from {
		return lifecycle.ErrInvalidState
	}
	r.Status = to
	if to == models.RequestApproved || to == models.RequestRejected {
		r.ApprovalDate = &at
		r.ProcessedBy = processedBy
	}
	return nil
}

func (s *Memory) InsertAssignedAsset(ctx context.Context, a *models.AssignedAsset) error {
	defer s.lock(ctx)()
	cp := *a
	s.assignments[a.ID] = &cp
	return nil
}

func (s *Memory) AssignedAssetByID(ctx context.Context, id primitive.ObjectID) (*models.AssignedAsset, error) {
	defer s.lock(ctx)()
	a, ok := s.assignments[id]
	if !ok {
		return nil, lifecycle.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Memory) ActiveAssignmentExists(ctx context.Context, assetID primitive.ObjectID, employeeEmail string) (bool, error) {
	defer s.lock(ctx)()
	for _, a := range s.assignments {
		if a.AssetID == assetID && a.EmployeeEmail == employeeEmail && a.Status == models.AssignmentAssigned {
			return true, nil
		}
	}
	return false, nil
}

func (s *Memory) MarkAssignmentReturned(ctx context.Context, id primitive.ObjectID, employeeEmail string, at time.Time) error {
	defer s.lock(ctx)()
	a, ok := s.assignments[id]
	if !ok || a.EmployeeEmail != employeeEmail || a.Status != models.AssignmentAssigned {
		return lifecycle.ErrInvalidState
	}
	a.Status = models.AssignmentReturned
	a.ReturnDate = &at
	return nil
}

func (s *Memory) ActiveAffiliationExists(ctx context.Context, employeeEmail, hrEmail string) (bool, error) {
	defer s.lock(ctx)()
	for _, aff := range s.affiliations {
		if aff.EmployeeEmail == employeeEmail && aff.HREmail == hrEmail && aff.Status == models.AffiliationActive {
			return true, nil
		}
	}
	return false, nil
}

func (s *Memory) ActivateAffiliation(ctx context.Context, aff *models.EmployeeAffiliation) error {
	defer s.lock(ctx)()
	for _, existing := range s.affiliations {
		if existing.EmployeeEmail == aff.EmployeeEmail && existing.HREmail == aff.HREmail {
			existing.Status = models.AffiliationActive
			existing.AffiliationDate = aff.AffiliationDate
			return nil
		}
	}
	cp := *aff
	s.affiliations[aff.ID] = &cp
	return nil
}

func (s *Memory) DeactivateAffiliation(ctx context.Context, employeeEmail, hrEmail string) error {
	defer s.lock(ctx)()
	for _, aff := range s.affiliations {
		if aff.EmployeeEmail == employeeEmail && aff.HREmail == hrEmail && aff.Status == models.AffiliationActive {
			aff.Status = models.AffiliationInactive
			return nil
		}
	}
	return lifecycle.ErrNotFound
}

func (s *Memory) GrowEmployeeCount(ctx context.Context, hrEmail string) error {
	defer s.lock(ctx)()
	u, ok := s.users[hrEmail]
	if !ok || u.Role != models.RoleHR || u.CurrentEmployees >= u.PackageLimit {
		return lifecycle.ErrLimitReached
	}
	u.CurrentEmployees++
	return nil
}

func (s *Memory) ShrinkEmployeeCount(ctx context.Context, hrEmail string) error {
	defer s.lock(ctx)()
	if u, ok := s.users[hrEmail]; ok && u.CurrentEmployees >= 1 {
		u.CurrentEmployees--
	}
	return nil
}

func (s *Memory) AddCompanyAffiliation(ctx context.Context, employeeEmail string, entry models.CompanyAffiliation) error {
	defer s.lock(ctx)()
	u, ok := s.users[employeeEmail]
	if !ok {
		return nil
	}
	for _, e := range u.Affiliations {
		if e.CompanyName == entry.CompanyName {
			return nil
		}
	}
	u.Affiliations = append(u.Affiliations, entry)
	return nil
}

func (s *Memory) PullCompanyAffiliation(ctx context.Context, employeeEmail, companyName string) error {
	defer s.lock(ctx)()
	u, ok := s.users[employeeEmail]
	if !ok {
		return nil
	}
	kept := u.Affiliations[:0]
	for _, e := range u.Affiliations {
		if e.CompanyName != companyName {
			kept = append(kept, e)
		}
	}
	u.Affiliations = kept
	return nil
}

func (s *Memory) InsertPaymentOnce(ctx context.Context, p *models.Payment) (bool, error) {
	defer s.lock(ctx)()
	if _, ok := s.payments[p.TransactionID]; ok {
		return false, nil
	}
	cp := *p
	s.payments[p.TransactionID] = &cp
	return true, nil
}

func (s *Memory) SetPackageLimit(ctx context.Context, hrEmail string, limit int) (*models.User, error) {
	defer s.lock(ctx)()
	u, ok := s.users[hrEmail]
	if !ok || u.Role != models.RoleHR {
		return nil, lifecycle.ErrNotFound
	}
	u.PackageLimit = limit
	cp := *u
	return &cp, nil
}

// AllPayments returns copies of every ledger row.
func (s *Memory) AllPayments() []*models.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

// AllAssignments returns copies of every assignment document.
func (s *Memory) AllAssignments() []*models.AssignedAsset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.AssignedAsset, 0, len(s.assignments))
	for _, a := range s.assignments {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// AllAffiliations returns copies of every affiliation document.
func (s *Memory) AllAffiliations() []*models.EmployeeAffiliation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.EmployeeAffiliation, 0, len(s.affiliations))
	for _, a := range s.affiliations {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

func (s *Memory) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	users        map[string]*models.User
	assets       map[primitive.ObjectID]*models.Asset
	requests     map[primitive.ObjectID]*models.Request
	assignments  map[primitive.ObjectID]*models.AssignedAsset
	affiliations map[primitive.ObjectID]*models.EmployeeAffiliation
	payments     map[string]*models.Payment
}

func (s *Memory) snapshot() memSnapshot {
	snap := memSnapshot{
		users:        make(map[string]*models.User, len(s.users)),
		assets:       make(map[primitive.ObjectID]*models.Asset, len(s.assets)),
		requests:     make(map[primitive.ObjectID]*models.Request, len(s.requests)),
		assignments:  make(map[primitive.ObjectID]*models.AssignedAsset, len(s.assignments)),
		affiliations: make(map[primitive.ObjectID]*models.EmployeeAffiliation, len(s.affiliations)),
		payments:     make(map[string]*models.Payment, len(s.payments)),
	}
	for k, v := range s.users {
		cp := *v
		cp.Affiliations = append([]models.CompanyAffiliation(nil), v.Affiliations...)
		snap.users[k] = &cp
	}
	for k, v := range s.assets {
		cp := *v
		snap.assets[k] = &cp
	}
	for k, v := range s.requests {
		cp := *v
		snap.requests[k] = &cp
	}
	for k, v := range s.assignments {
		cp := *v
		snap.assignments[k] = &cp
	}
	for k, v := range s.affiliations {
		cp := *v
		snap.affiliations[k] = &cp
	}
	for k, v := range s.payments {
		cp := *v
		snap.payments[k] = &cp
	}
	return snap
}

func (s *Memory) restore(snap memSnapshot) {
	s.users = snap.users
	s.assets = snap.assets
	s.requests = snap.requests
	s.assignments = snap.assignments
	s.affiliations = snap.affiliations
	s.payments = snap.payments
}
