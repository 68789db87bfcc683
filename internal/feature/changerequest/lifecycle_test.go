package changerequest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"change-request-tracker/internal/domain"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]domain.Status]bool{
		{domain.StatusPending, domain.StatusReviewed}:  true,
		{domain.StatusPending, domain.StatusApproved}:  true,
		{domain.StatusPending, domain.StatusRejected}:  true,
		{domain.StatusReviewed, domain.StatusApproved}: true,
		{domain.StatusReviewed, domain.StatusRejected}: true,
	}
	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			assert.Equal(t, allowed[[2]domain.Status{from, to}], CanTransition(from, to), "%s → %s", from, to)
		}
	}
}
