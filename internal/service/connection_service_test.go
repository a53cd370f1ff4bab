package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/mpesa"
)

func TestCheckAccessExpiresAtReadTime(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	tenant := f.user(model.RoleTenant, "tenant")
	l := f.paidListing(owner, "Room")

	none, err := f.access.CheckAccess(f.ctx, tenant.ID, l.ID)
	require.NoError(t, err)
	assert.False(t, none.HasAccess)
	assert.Equal(t, "No connection to this listing", none.Message)

	f.complete(f.initiate(tenant, model.PaymentConnectionFee, l).Payment)
	live, err := f.access.CheckAccess(f.ctx, tenant.ID, l.ID)
	require.NoError(t, err)
	assert.True(t, live.HasAccess)
	assert.Equal(t, epoch.Add(model.AccessPeriod), *live.ExpiresAt)
	assert.Equal(t, epoch, *live.PaymentDate)

	f.clock.advance(model.AccessPeriod)
	expired, err := f.access.CheckAccess(f.ctx, tenant.ID, l.ID)
	require.NoError(t, err)
	assert.False(t, expired.HasAccess)
	assert.Equal(t, "Connection expired", expired.Message)

	stored, err := f.st.Connections.Get(f.ctx, tenant.ID, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ConnectionActive, stored.Status)
}

func TestListForTenant(t *testing.T) {
	f := newFixture(t, mpesa.ModeSimulator)
	owner := f.user(model.RoleLandlord, "owner")
	tenant := f.user(model.RoleTenant, "tenant")
	room := f.paidListing(owner, "Room")
	flat := f.paidListing(owner, "Flat")

	f.complete(f.initiate(tenant, model.PaymentConnectionFee, room).Payment)
	f.clock.advance(time.Hour)
	f.complete(f.initiate(tenant, model.PaymentConnectionFee, flat).Payment)

	views, err := f.access.ListForTenant(f.ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Flat", views[0].Listing.Title)
	assert.Equal(t, owner.Phone, views[0].Landlord.Phone)
	require.NotNil(t, views[0].Payment)
	assert.Equal(t, 100.0, views[0].Payment.Amount)
	assert.Equal(t, "Room", views[1].Listing.Title)

	empty, err := f.access.ListForTenant(f.ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
