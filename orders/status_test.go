package orders

import (
	"testing"

	"merx/models"

	"github.com/stretchr/testify/assert"
)

func TestStatusPolicyUnrestricted(t *testing.T) {
	policy := StatusPolicy{}

	all := []models.OrderStatus{
		models.StatusPending, models.StatusProcessing,
		models.StatusCompleted, models.StatusCancelled,
	}
	for _, from := range all {
		for _, to := range all {
			assert.True(t, policy.Allowed(from, to), "%s -> %s", from, to)
		}
	}
}

func TestStatusPolicyStrict(t *testing.T) {
	policy := StatusPolicy{Strict: true}

	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.StatusPending, models.StatusProcessing, true},
		{models.StatusPending, models.StatusCancelled, true},
		{models.StatusProcessing, models.StatusCompleted, true},
		{models.StatusProcessing, models.StatusPending, true},
		{models.StatusCompleted, models.StatusPending, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusProcessing, false},
		{models.StatusCompleted, models.StatusCompleted, true},
		{models.StatusCancelled, models.StatusCancelled, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.Allowed(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}
