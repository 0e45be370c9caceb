package inventory

import (
	"context"
	"net/http"
	"sync"

	"github.com/greenfield-ag/farmtrack-client/internal/api"
	pkgerrors "github.com/greenfield-ag/farmtrack-client/pkg/errors"
	"github.com/greenfield-ag/farmtrack-client/pkg/logger"
	"github.com/greenfield-ag/farmtrack-client/pkg/validate"
)

const (
	inventoryPath  = "/api/v1/inventory"
	categoriesPath = "/api/v1/categories"
)

// StoreParams groups dependencies for the inventory store.
type StoreParams struct {
	Client *api.Client
	Logger *logger.Logger
}

// Store holds the in-memory inventory state and keeps it synchronized with
// the backend. The loading flag and error string are shared across all
// operations on the store, so interleaved calls overwrite each other's
// visibility last-writer-wins.
type Store struct {
	client *api.Client
	logger *logger.Logger

	mu          sync.Mutex
	items       []Item
	categories  []Category
	loading     bool
	errMsg      string
	subscribers []func()
}

// NewStore builds an inventory store with the required dependencies.
func NewStore(params StoreParams) (*Store, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Store{
		client: params.Client,
		logger: params.Logger,
	}, nil
}

// Subscribe registers a callback invoked after every state change. Callbacks
// run on the goroutine that mutated the store; they may read the store's
// accessors but must not mutate it.
func (s *Store) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Items returns a copy of the current item list.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Categories returns a copy of the current category list.
func (s *Store) Categories() []Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Loading reports whether any operation on the store is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last recorded error message, empty when the store is clean.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Load retrieves the item and category lists concurrently. An item-list
// failure is fatal: the error is recorded and prior items are kept. A
// category-list failure only degrades to an empty category set with a
// warning log, never failing the call.
func (s *Store) Load(ctx context.Context) error {
	s.clearError()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var (
		items    []Item
		cats     []Category
		itemsErr error
		catsErr  error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		itemsErr = s.client.GetList(ctx, "list_inventory", inventoryPath, &items)
	}()
	go func() {
		defer wg.Done()
		catsErr = s.client.GetList(ctx, "list_categories", categoriesPath, &cats)
	}()
	wg.Wait()

	if itemsErr != nil {
		s.recordError(itemsErr)
		return itemsErr
	}
	if catsErr != nil {
		s.logger.Warn(ctx, "category list unavailable, continuing without categories")
		cats = []Category{}
	}

	s.mu.Lock()
	s.items = items
	s.categories = cats
	s.mu.Unlock()
	s.notify()
	return nil
}

// Reload retrieves only the item list and replaces state wholesale on
// success.
func (s *Store) Reload(ctx context.Context) error {
	s.clearError()
	return s.reload(ctx)
}

func (s *Store) reload(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var items []Item
	if err := s.client.GetList(ctx, "list_inventory", inventoryPath, &items); err != nil {
		s.recordError(err)
		return err
	}

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	s.notify()
	return nil
}

// Save creates a new item when editingID is empty and issues a partial update
// against editingID otherwise. A well-shaped create response with a locally
// known category is appended optimistically; anything else falls back to a
// full load. Updates always trigger a full load. On failure the error is
// recorded and a load is forced to resynchronize.
func (s *Store) Save(ctx context.Context, input ItemInput, editingID string) error {
	s.clearError()
	if err := validate.Struct(input); err != nil {
		s.recordError(err)
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	if editingID == "" {
		return s.create(ctx, input)
	}
	return s.update(ctx, input, editingID)
}

func (s *Store) create(ctx context.Context, input ItemInput) error {
	env, err := s.client.Do(ctx, "create_item", http.MethodPost, inventoryPath, input)
	if err != nil {
		s.recordError(err)
		_ = s.load(ctx)
		return err
	}

	var data createItemData
	if decodeErr := api.DecodeObject(env, &data); decodeErr != nil || data.Item == nil || data.ItemStock == nil || data.Item.ID == "" {
		// The server confirmed the create but the response shape is not
		// mergeable; refetch instead of appending a malformed record.
		return s.load(ctx)
	}
	if !s.knowsCategory(data.Item.Category) {
		return s.load(ctx)
	}

	merged := *data.Item
	merged.Quantity = data.ItemStock.Quantity

	s.mu.Lock()
	s.items = append(s.items, merged)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) update(ctx context.Context, input ItemInput, editingID string) error {
	if _, err := s.client.Do(ctx, "update_item", http.MethodPatch, inventoryPath+"/"+editingID, input); err != nil {
		s.recordError(err)
		_ = s.load(ctx)
		return err
	}
	return s.load(ctx)
}

// Delete removes the item and reloads the list on success. Failures are
// recorded without forcing a resynchronization.
func (s *Store) Delete(ctx context.Context, itemID string) error {
	s.clearError()
	if itemID == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
		s.recordError(err)
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	if _, err := s.client.Do(ctx, "delete_item", http.MethodDelete, inventoryPath+"/"+itemID, nil); err != nil {
		s.recordError(err)
		return err
	}
	return s.reload(ctx)
}

// AdjustQuantity applies a signed quantity delta to the item and reloads the
// list on success.
func (s *Store) AdjustQuantity(ctx context.Context, itemID string, delta int) error {
	s.clearError()
	if itemID == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
		s.recordError(err)
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	path := inventoryPath + "/" + itemID + "/quantity"
	if _, err := s.client.Do(ctx, "adjust_quantity", http.MethodPatch, path, adjustQuantityRequest{QuantityChange: delta}); err != nil {
		s.recordError(err)
		return err
	}
	return s.reload(ctx)
}

func (s *Store) knowsCategory(categoryID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cat := range s.categories {
		if cat.ID == categoryID {
			return true
		}
	}
	return false
}

func (s *Store) setLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.notify()
}

func (s *Store) recordError(err error) {
	s.mu.Lock()
	s.errMsg = pkgerrors.Display(err)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) clearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := make([]func(), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}
