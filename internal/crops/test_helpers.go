package crops

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/greenfield-ag/farmtrack-client/internal/api"
	"github.com/greenfield-ag/farmtrack-client/internal/inventory"
	"github.com/greenfield-ag/farmtrack-client/pkg/config"
	pkgerrors "github.com/greenfield-ag/farmtrack-client/pkg/errors"
	"github.com/greenfield-ag/farmtrack-client/pkg/logger"
)

// fakeInventory satisfies the Inventory dependency with a fixed snapshot and
// a recorded list of adjustment calls.
type fakeInventory struct {
	mu          sync.Mutex
	items       []inventory.Item
	adjustments []adjustmentCall
	failFor     map[string]bool // item IDs whose adjustment should fail
}

type adjustmentCall struct {
	ItemID string
	Delta  int
}

func (f *fakeInventory) Items() []inventory.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]inventory.Item, len(f.items))
	copy(out, f.items)
	return out
}

func (f *fakeInventory) AdjustQuantity(ctx context.Context, itemID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adjustments = append(f.adjustments, adjustmentCall{ItemID: itemID, Delta: delta})
	if f.failFor[itemID] {
		return pkgerrors.New(pkgerrors.CodeTransport, "adjustment failed")
	}
	return nil
}

func (f *fakeInventory) calls() []adjustmentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]adjustmentCall, len(f.adjustments))
	copy(out, f.adjustments)
	return out
}

// cropBackend serves the crop endpoints from in-memory state.
type cropBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu          sync.Mutex
	crops       []Record
	failAdd     bool
	failList    bool
	addPayloads []addCropRequest
	updateIDs   []string
	updateBody  []updateCropRequest
}

func newCropBackend(t *testing.T) *cropBackend {
	t.Helper()
	cb := &cropBackend{t: t}

	r := chi.NewRouter()
	r.Get("/api/v1/item/getCrops", cb.handleList)
	r.Post("/api/v1/item/addCrop", cb.handleAdd)
	r.Put("/api/v1/crops/updateCrop/{id}", cb.handleUpdate)

	cb.srv = httptest.NewServer(r)
	t.Cleanup(cb.srv.Close)
	return cb
}

func (cb *cropBackend) handleList(w http.ResponseWriter, r *http.Request) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.failList {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"crops unavailable"}`))
		return
	}
	data, _ := json.Marshal(cb.crops)
	if data == nil || string(data) == "null" {
		data = []byte("[]")
	}
	w.Write([]byte(`{"success":true,"data":` + string(data) + `}`))
}

func (cb *cropBackend) handleAdd(w http.ResponseWriter, r *http.Request) {
	var payload addCropRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad crop payload"}`))
		return
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.addPayloads = append(cb.addPayloads, payload)
	if cb.failAdd {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"crop rejected"}`))
		return
	}
	cb.crops = append(cb.crops, Record{
		ID:           "crop-new",
		Name:         payload.CropName,
		Variety:      payload.CropVariety,
		PlantingDate: payload.PlantingDate,
		HarvestDate:  payload.HarvestingDate,
		UsedItems:    payload.UsedItems,
	})
	w.Write([]byte(`{"success":true}`))
}

func (cb *cropBackend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload updateCropRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad crop payload"}`))
		return
	}
	id := chi.URLParam(r, "id")

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.updateIDs = append(cb.updateIDs, id)
	cb.updateBody = append(cb.updateBody, payload)
	for i := range cb.crops {
		if cb.crops[i].ID == id {
			cb.crops[i].Name = payload.CropName
			cb.crops[i].PlantingDate = payload.PlantingDate
			cb.crops[i].HarvestDate = payload.HarvestingDate
			cb.crops[i].UsedItems = payload.ItemUsed
		}
	}
	w.Write([]byte(`{"success":true}`))
}

func newTestStore(t *testing.T, cb *cropBackend, inv Inventory) *Store {
	t.Helper()
	client, err := api.NewClient(api.ClientParams{
		Backend: config.BackendConfig{BaseURL: cb.srv.URL},
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("building api client: %v", err)
	}
	store, err := NewStore(StoreParams{
		Client:    client,
		Inventory: inv,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("building store: %v", err)
	}
	return store
}
