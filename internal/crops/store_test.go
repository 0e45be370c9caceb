package crops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfield-ag/farmtrack-client/internal/inventory"
)

func snapshot() []inventory.Item {
	return []inventory.Item{
		{ID: "it-A", Name: "Seed Corn", Quantity: 40},
		{ID: "it-B", Name: "Fertilizer", Quantity: 12},
	}
}

func TestResolveConsumedResources(t *testing.T) {
	t.Run("dropsInvalidEntries", func(t *testing.T) {
		got := resolveConsumedResources([]ResourceInput{
			{ItemID: "it-A", Quantity: "3"},
			{ItemID: "it-B", Quantity: "0"},
			{Quantity: "5"},
		}, snapshot())

		require.Len(t, got, 1)
		assert.Equal(t, "it-A", got[0].ItemID)
		assert.Equal(t, 3, got[0].Quantity)
		assert.Equal(t, "Seed Corn", got[0].ItemName)
	})

	t.Run("unknownItemGetsPlaceholderName", func(t *testing.T) {
		got := resolveConsumedResources([]ResourceInput{
			{ItemID: "it-gone", Quantity: "2"},
		}, snapshot())

		require.Len(t, got, 1)
		assert.Equal(t, unknownItemName, got[0].ItemName)
	})

	t.Run("fractionsTruncateAndSubUnitDrops", func(t *testing.T) {
		got := resolveConsumedResources([]ResourceInput{
			{ItemID: "it-A", Quantity: "2.8"},
			{ItemID: "it-B", Quantity: "0.5"},
		}, snapshot())

		require.Len(t, got, 1)
		assert.Equal(t, 2, got[0].Quantity)
	})

	t.Run("nonNumericAndNegativeDrop", func(t *testing.T) {
		got := resolveConsumedResources([]ResourceInput{
			{ItemID: "it-A", Quantity: "lots"},
			{ItemID: "it-B", Quantity: "-4"},
		}, snapshot())
		assert.Empty(t, got)
	})
}

func TestLoadReplacesCrops(t *testing.T) {
	cb := newCropBackend(t)
	cb.mu.Lock()
	cb.crops = []Record{{ID: "crop-1", Name: "Corn"}, {ID: "crop-2", Name: "Wheat"}}
	cb.mu.Unlock()

	store := newTestStore(t, cb, &fakeInventory{})
	require.NoError(t, store.Load(context.Background()))

	crops := store.Crops()
	require.Len(t, crops, 2)
	assert.Equal(t, "crop-1", crops[0].ID)
	assert.Equal(t, "crop-2", crops[1].ID)
	assert.False(t, store.Loading())
}

func TestLoadFailureKeepsStaleList(t *testing.T) {
	cb := newCropBackend(t)
	cb.mu.Lock()
	cb.crops = []Record{{ID: "crop-1", Name: "Corn"}}
	cb.mu.Unlock()

	store := newTestStore(t, cb, &fakeInventory{})
	require.NoError(t, store.Load(context.Background()))

	cb.mu.Lock()
	cb.failList = true
	cb.mu.Unlock()

	require.Error(t, store.Load(context.Background()))
	assert.NotEmpty(t, store.Err())
	assert.Len(t, store.Crops(), 1, "stale list must be kept on failed reload")
}

func TestAddSubmitsResolvedLineItemsAndDecrements(t *testing.T) {
	cb := newCropBackend(t)
	inv := &fakeInventory{items: snapshot()}
	store := newTestStore(t, cb, inv)

	err := store.Add(context.Background(), AddInput{
		Name:      "Corn",
		Variety:   "Sweet",
		PlantedOn: "2026-03-01",
		HarvestOn: "2026-08-15",
		ConsumedResources: []ResourceInput{
			{ItemID: "it-A", Quantity: "3"},
			{ItemID: "it-B", Quantity: "0"},
			{Quantity: "5"},
		},
	})
	require.NoError(t, err)

	cb.mu.Lock()
	payloads := cb.addPayloads
	cb.mu.Unlock()
	require.Len(t, payloads, 1)
	payload := payloads[0]
	assert.Equal(t, "Corn", payload.CropName)
	assert.Equal(t, "2026-03-01", payload.PlantingDate)
	assert.Equal(t, "2026-08-15", payload.HarvestingDate)
	assert.Equal(t, "Sweet", payload.CropVariety)
	require.Len(t, payload.UsedItems, 1, "zero-quantity and id-less entries must be dropped")
	assert.Equal(t, ConsumedResource{ItemID: "it-A", Quantity: 3, ItemName: "Seed Corn"}, payload.UsedItems[0])

	calls := inv.calls()
	require.Len(t, calls, 1, "one decrement per surviving line item")
	assert.Equal(t, adjustmentCall{ItemID: "it-A", Delta: -3}, calls[0])

	crops := store.Crops()
	require.Len(t, crops, 1, "crop list must be refreshed after add")
	assert.Equal(t, "crop-new", crops[0].ID)
}

func TestAddFailureRecordsAndReturnsError(t *testing.T) {
	cb := newCropBackend(t)
	cb.mu.Lock()
	cb.failAdd = true
	cb.mu.Unlock()
	inv := &fakeInventory{items: snapshot()}
	store := newTestStore(t, cb, inv)

	err := store.Add(context.Background(), AddInput{
		Name:              "Corn",
		PlantedOn:         "2026-03-01",
		ConsumedResources: []ResourceInput{{ItemID: "it-A", Quantity: "3"}},
	})
	require.Error(t, err, "add must re-surface its failure to the caller")
	assert.Equal(t, "crop rejected", store.Err())
	assert.Empty(t, store.Crops(), "crop list must stay unmutated")
	assert.Empty(t, inv.calls(), "no decrements after a failed add")
}

func TestAddPartialDecrementFailureSurfaces(t *testing.T) {
	cb := newCropBackend(t)
	inv := &fakeInventory{
		items:   snapshot(),
		failFor: map[string]bool{"it-B": true},
	}
	store := newTestStore(t, cb, inv)

	err := store.Add(context.Background(), AddInput{
		Name:      "Corn",
		PlantedOn: "2026-03-01",
		ConsumedResources: []ResourceInput{
			{ItemID: "it-A", Quantity: "2"},
			{ItemID: "it-B", Quantity: "4"},
		},
	})
	require.Error(t, err)
	assert.NotEmpty(t, store.Err())
	// Both decrements were attempted; the successful one stands.
	assert.Len(t, inv.calls(), 2)
}

func TestAddValidationFailureSkipsRequest(t *testing.T) {
	cb := newCropBackend(t)
	store := newTestStore(t, cb, &fakeInventory{})

	err := store.Add(context.Background(), AddInput{Variety: "Sweet"})
	require.Error(t, err)

	cb.mu.Lock()
	payloads := len(cb.addPayloads)
	cb.mu.Unlock()
	assert.Zero(t, payloads, "no HTTP request before validation passes")
}

func TestUpdateUsesTargetEndpointAndPayloadShape(t *testing.T) {
	cb := newCropBackend(t)
	cb.mu.Lock()
	cb.crops = []Record{{ID: "crop-1", Name: "Corn", PlantingDate: "2026-03-01"}}
	cb.mu.Unlock()
	inv := &fakeInventory{items: snapshot()}
	store := newTestStore(t, cb, inv)
	require.NoError(t, store.Load(context.Background()))

	err := store.Update(context.Background(), "crop-1", UpdateInput{
		Name:      "Field Corn",
		PlantedOn: "2026-03-02",
		HarvestOn: "2026-09-01",
		ConsumedResources: []ResourceInput{
			{ItemID: "it-B", Quantity: "1"},
		},
	})
	require.NoError(t, err)

	cb.mu.Lock()
	ids := cb.updateIDs
	bodies := cb.updateBody
	cb.mu.Unlock()
	require.Len(t, ids, 1)
	assert.Equal(t, "crop-1", ids[0])
	require.Len(t, bodies, 1)
	assert.Equal(t, "Field Corn", bodies[0].CropName)
	require.Len(t, bodies[0].ItemUsed, 1)
	assert.Equal(t, "Fertilizer", bodies[0].ItemUsed[0].ItemName)

	assert.Empty(t, inv.calls(), "updates must not decrement inventory")

	crops := store.Crops()
	require.Len(t, crops, 1)
	assert.Equal(t, "Field Corn", crops[0].Name, "list must be refreshed after update")
}

func TestUpdateRequiresCropID(t *testing.T) {
	cb := newCropBackend(t)
	store := newTestStore(t, cb, &fakeInventory{})

	err := store.Update(context.Background(), "  ", UpdateInput{Name: "Corn", PlantedOn: "2026-03-01"})
	require.Error(t, err)
}

func TestSubscribersSeeStateChanges(t *testing.T) {
	cb := newCropBackend(t)
	store := newTestStore(t, cb, &fakeInventory{})

	var fired int
	var sawLoading bool
	store.Subscribe(func() {
		fired++
		if store.Loading() {
			sawLoading = true
		}
	})
	require.NoError(t, store.Load(context.Background()))
	assert.NotZero(t, fired)
	assert.True(t, sawLoading, "a callback must observe the loading toggle")
}

func TestSubscribersNotifiedOnFailedLoad(t *testing.T) {
	cb := newCropBackend(t)
	cb.mu.Lock()
	cb.failList = true
	cb.mu.Unlock()
	store := newTestStore(t, cb, &fakeInventory{})

	var fired int
	var sawError bool
	store.Subscribe(func() {
		fired++
		if store.Err() != "" {
			sawError = true
		}
	})

	require.Error(t, store.Load(context.Background()))
	assert.NotZero(t, fired, "callbacks must fire on load failure")
	assert.True(t, sawError, "a callback must observe the recorded error")
}
