package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eagleone34/kindercause-sub000/app/models"
)

func TestAccountUpdated(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeNotifier{})
	user := store.addUser(models.User{Email: "a@b.test"})
	org := store.addOrg(models.Organization{
		OwnerUserID:              user.ID,
		Slug:                     "a-123456",
		StripeConnectedAccountID: stringPtr("acct_1"),
		ConnectedAccountStatus:   models.ConnectedAccountPending,
	})

	require.NoError(t, svc.Dispatch(context.Background(), event(t, "evt_1", "account.updated",
		map[string]interface{}{"id": "acct_1", "charges_enabled": true, "payouts_enabled": false})))
	assert.Equal(t, models.ConnectedAccountPending, store.org(org.ID).ConnectedAccountStatus)

	require.NoError(t, svc.Dispatch(context.Background(), event(t, "evt_2", "account.updated",
		map[string]interface{}{"id": "acct_1", "charges_enabled": true, "payouts_enabled": true})))
	assert.Equal(t, models.ConnectedAccountActive, store.org(org.ID).ConnectedAccountStatus)

	require.NoError(t, svc.Dispatch(context.Background(), event(t, "evt_3", "account.updated",
		map[string]interface{}{"id": "acct_unknown", "charges_enabled": true, "payouts_enabled": true})))
}
