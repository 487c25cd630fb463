package orders

import (
	"encoding/json"
	"testing"

	"merx/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachPurchasers(t *testing.T) {
	orders := []models.Order{
		{OrderID: "o1", UserID: "u1", Total: 100},
		{OrderID: "o2", UserID: "u2", Total: 50},
		{OrderID: "o3", UserID: "u1", Total: 25},
	}
	users := []models.User{
		{UserID: "u1", Username: "alice", Email: "alice@example.com"},
		{UserID: "u2", Username: "bob", Email: "bob@example.com"},
	}

	resolved := attachPurchasers(orders, users)
	require.Len(t, resolved, 3)

	require.NotNil(t, resolved[0].User)
	assert.Equal(t, "alice", resolved[0].User.Username)
	assert.Equal(t, "alice@example.com", resolved[0].User.Email)

	require.NotNil(t, resolved[1].User)
	assert.Equal(t, "bob@example.com", resolved[1].User.Email)

	// Order fields survive the join untouched.
	assert.Equal(t, "o3", resolved[2].OrderID)
	assert.Equal(t, 25.0, resolved[2].Total)
	require.NotNil(t, resolved[2].User)
	assert.Equal(t, "alice", resolved[2].User.Username)
}

func TestAttachPurchasersDeletedUser(t *testing.T) {
	orders := []models.Order{{OrderID: "o1", UserID: "gone"}}

	resolved := attachPurchasers(orders, nil)
	require.Len(t, resolved, 1)
	assert.Nil(t, resolved[0].User, "order outlives its account; no purchaser to show")
}

func TestAdminOrderJSONShape(t *testing.T) {
	resolved := attachPurchasers(
		[]models.Order{{OrderID: "o1", UserID: "u1"}},
		[]models.User{{UserID: "u1", Username: "alice", Email: "alice@example.com"}},
	)

	raw, err := json.Marshal(resolved[0])
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	user, ok := decoded["user"].(map[string]any)
	require.True(t, ok, "admin listing entries carry a user object")
	assert.Equal(t, "alice@example.com", user["email"])
	assert.Equal(t, "o1", decoded["orderid"])
}
