package models

// RequestStatus is the lifecycle state of an asset request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestReturned RequestStatus = "returned"
)

// requestTransitions is the set of legal request state moves. A request is
// created pending, is resolved by HR to approved or rejected, and an approved
// request moves to returned when the paired assignment is handed back.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:  {RequestApproved, RequestRejected},
	RequestApproved: {RequestReturned},
}

// CanTransition reports whether moving from s to next is a legal request
// state change.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	for _, t := range requestTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s RequestStatus) Terminal() bool {
	return len(requestTransitions[s]) == 0
}

// AssignmentStatus is the state of an assigned asset.
type AssignmentStatus string

const (
	AssignmentAssigned AssignmentStatus = "assigned"
	AssignmentReturned AssignmentStatus = "returned"
)

// AffiliationStatus is the state of an employee's affiliation with an HR
// account. Affiliations are soft-deleted: removal flips the status to
// inactive, re-approval flips it back.
type AffiliationStatus string

const (
	AffiliationActive   AffiliationStatus = "active"
	AffiliationInactive AffiliationStatus = "inactive"
)
