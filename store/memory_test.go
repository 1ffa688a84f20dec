package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"assetverse/lifecycle"
	"assetverse/models"
	"assetverse/store"
)

func seedAsset(t *testing.T, mem *store.Memory, quantity, available int) primitive.ObjectID {
	t.Helper()
	id := primitive.NewObjectID()
	require.NoError(t, mem.InsertAsset(context.Background(), &models.Asset{
		ID:                id,
		Name:              "Laptop",
		Type:              models.AssetReturnable,
		Quantity:          quantity,
		AvailableQuantity: available,
		HREmail:           "hr@acme.test",
		CompanyName:       "Acme",
	}))
	return id
}

func TestReserveAssetUnitStopsAtZero(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	id := seedAsset(t, mem, 2, 2)

	require.NoError(t, mem.ReserveAssetUnit(ctx, id))
	require.NoError(t, mem.ReserveAssetUnit(ctx, id))
	assert.ErrorIs(t, mem.ReserveAssetUnit(ctx, id), lifecycle.ErrUnavailable)

	asset, err := mem.AssetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, asset.AvailableQuantity)
}

func TestReleaseAssetUnitStopsAtQuantity(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	id := seedAsset(t, mem, 2, 1)

	require.NoError(t, mem.ReleaseAssetUnit(ctx, id))
	assert.ErrorIs(t, mem.ReleaseAssetUnit(ctx, id), lifecycle.ErrInvalidState)

	assert.ErrorIs(t, mem.ReleaseAssetUnit(ctx, primitive.NewObjectID()), lifecycle.ErrNotFound)
}

func TestGrowEmployeeCountHonorsLimit(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	mem.PutUser(&models.User{Email: "hr@acme.test", Role: models.RoleHR, PackageLimit: 1})

	require.NoError(t, mem.GrowEmployeeCount(ctx, "hr@acme.test"))
	assert.ErrorIs(t, mem.GrowEmployeeCount(ctx, "hr@acme.test"), lifecycle.ErrLimitReached)

	require.NoError(t, mem.ShrinkEmployeeCount(ctx, "hr@acme.test"))
	require.NoError(t, mem.GrowEmployeeCount(ctx, "hr@acme.test"))
}

func TestGrowEmployeeCountWithoutPackage(t *testing.T) {
	mem := store.NewMemory()
	mem.PutUser(&models.User{Email: "hr@acme.test", Role: models.RoleHR})

	assert.ErrorIs(t, mem.GrowEmployeeCount(context.Background(), "hr@acme.test"), lifecycle.ErrLimitReached)
}

func TestInTransactionRollsBackOnError(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	id := seedAsset(t, mem, 3, 3)
	mem.PutUser(&models.User{Email: "hr@acme.test", Role: models.RoleHR, PackageLimit: 5, CurrentEmployees: 2})

	err := mem.InTransaction(ctx, func(ctx context.Context) error {
		if err := mem.ReserveAssetUnit(ctx, id); err != nil {
			return err
		}
		if err := mem.GrowEmployeeCount(ctx, "hr@acme.test"); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.EqualError(t, err, "boom")

	asset, err := mem.AssetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, asset.AvailableQuantity)

	hr, err := mem.UserByEmail("hr@acme.test")
	require.NoError(t, err)
	assert.Equal(t, 2, hr.CurrentEmployees)
}

func TestInTransactionCommitsOnSuccess(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	id := seedAsset(t, mem, 3, 3)

	require.NoError(t, mem.InTransaction(ctx, func(ctx context.Context) error {
		return mem.ReserveAssetUnit(ctx, id)
	}))

	asset, err := mem.AssetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, asset.AvailableQuantity)
}
