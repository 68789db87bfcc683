package changerequest

import "change-request-tracker/internal/domain"

// transitions lists every legal move. Approved and Rejected have none.
var transitions = map[domain.Status][]domain.Status{
	domain.StatusPending:  {domain.StatusReviewed, domain.StatusApproved, domain.StatusRejected},
	domain.StatusReviewed: {domain.StatusApproved, domain.StatusRejected},
}

func CanTransition(from, to domain.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
