package inventory

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/greenfield-ag/farmtrack-client/internal/api"
	"github.com/greenfield-ag/farmtrack-client/pkg/config"
	"github.com/greenfield-ag/farmtrack-client/pkg/logger"
)

// fakeBackend serves the inventory endpoints from in-memory state so store
// tests can exercise real HTTP exchanges.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu             sync.Mutex
	items          []Item
	categories     []Category
	failItems      bool
	failCategories bool
	createRawData  string // overrides the create response data when set
	updateCalls    []string
	deleteCalls    []string
	adjustCalls    []adjustCall
}

type adjustCall struct {
	ItemID string
	Delta  int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{t: t}

	r := chi.NewRouter()
	r.Get("/api/v1/inventory", fb.handleListItems)
	r.Get("/api/v1/categories", fb.handleListCategories)
	r.Post("/api/v1/inventory", fb.handleCreate)
	r.Patch("/api/v1/inventory/{id}", fb.handleUpdate)
	r.Delete("/api/v1/inventory/{id}", fb.handleDelete)
	r.Patch("/api/v1/inventory/{id}/quantity", fb.handleAdjust)

	fb.srv = httptest.NewServer(r)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) handleListItems(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.failItems {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"inventory unavailable"}`))
		return
	}
	writeList(w, fb.items)
}

func (fb *fakeBackend) handleListCategories(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.failCategories {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"categories unavailable"}`))
		return
	}
	writeList(w, fb.categories)
}

func (fb *fakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input ItemInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad item payload"}`))
		return
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	if fb.createRawData != "" {
		w.Write([]byte(`{"success":true,"data":` + fb.createRawData + `}`))
		return
	}

	created := Item{
		ID:       "srv-" + input.Name,
		Name:     input.Name,
		Category: input.Category,
		Unit:     input.Unit,
	}
	fb.items = append(fb.items, Item{
		ID: created.ID, Name: created.Name, Category: created.Category,
		Unit: created.Unit, Quantity: input.Quantity,
	})
	resp := map[string]any{
		"success": true,
		"data": map[string]any{
			"item":      created,
			"itemStock": map[string]int{"quantity": input.Quantity},
		},
	}
	json.NewEncoder(w).Encode(resp)
}

func (fb *fakeBackend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	fb.updateCalls = append(fb.updateCalls, chi.URLParam(r, "id"))
	fb.mu.Unlock()
	w.Write([]byte(`{"success":true}`))
}

func (fb *fakeBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.deleteCalls = append(fb.deleteCalls, id)
	kept := fb.items[:0]
	for _, item := range fb.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	fb.items = kept
	w.Write([]byte(`{"success":true}`))
}

func (fb *fakeBackend) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"bad quantity payload"}`))
		return
	}
	id := chi.URLParam(r, "id")

	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.adjustCalls = append(fb.adjustCalls, adjustCall{ItemID: id, Delta: req.QuantityChange})
	for i := range fb.items {
		if fb.items[i].ID == id {
			fb.items[i].Quantity += req.QuantityChange
		}
	}
	w.Write([]byte(`{"success":true}`))
}

func (fb *fakeBackend) seed(items []Item, categories []Category) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.items = items
	fb.categories = categories
}

func (fb *fakeBackend) adjustments() []adjustCall {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	out := make([]adjustCall, len(fb.adjustCalls))
	copy(out, fb.adjustCalls)
	return out
}

func writeList(w http.ResponseWriter, v any) {
	data, _ := json.Marshal(v)
	if data == nil || string(data) == "null" {
		data = []byte("[]")
	}
	w.Write([]byte(`{"success":true,"data":` + string(data) + `}`))
}

func newTestStore(t *testing.T, fb *fakeBackend) *Store {
	t.Helper()
	client, err := api.NewClient(api.ClientParams{
		Backend: config.BackendConfig{BaseURL: fb.srv.URL},
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("building api client: %v", err)
	}
	store, err := NewStore(StoreParams{
		Client: client,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("building store: %v", err)
	}
	return store
}
