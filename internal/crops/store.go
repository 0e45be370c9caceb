package crops

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/greenfield-ag/farmtrack-client/internal/api"
	"github.com/greenfield-ag/farmtrack-client/internal/inventory"
	pkgerrors "github.com/greenfield-ag/farmtrack-client/pkg/errors"
	"github.com/greenfield-ag/farmtrack-client/pkg/logger"
	"github.com/greenfield-ag/farmtrack-client/pkg/validate"
)

const (
	listCropsPath  = "/api/v1/item/getCrops"
	addCropPath    = "/api/v1/item/addCrop"
	updateCropPath = "/api/v1/crops/updateCrop/"
)

// unknownItemName is the placeholder used when a consumed item is absent from
// the inventory snapshot. The snapshot may lag the server, so this is a
// staleness hazard rather than a hard failure.
const unknownItemName = "Unknown Item"

// Inventory is the slice of the inventory store the crop store depends on:
// the current item snapshot for name resolution and the quantity mutator for
// post-submission decrements.
type Inventory interface {
	Items() []inventory.Item
	AdjustQuantity(ctx context.Context, itemID string, delta int) error
}

// StoreParams groups dependencies for the crop store.
type StoreParams struct {
	Client    *api.Client
	Inventory Inventory
	Logger    *logger.Logger
}

// Store holds the in-memory crop list and keeps it synchronized with the
// backend. Like the inventory store, the loading flag and error string are
// shared across operations, last-writer-wins.
type Store struct {
	client    *api.Client
	inventory Inventory
	logger    *logger.Logger

	mu          sync.Mutex
	crops       []Record
	loading     bool
	errMsg      string
	subscribers []func()
}

// NewStore builds a crop store with the required dependencies.
func NewStore(params StoreParams) (*Store, error) {
	if params.Client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "api client is required")
	}
	if params.Inventory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "inventory access is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Store{
		client:    params.Client,
		inventory: params.Inventory,
		logger:    params.Logger,
	}, nil
}

// Subscribe registers a callback invoked after every state change. Callbacks
// may read the store's accessors but must not mutate it.
func (s *Store) Subscribe(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

// Crops returns a copy of the current crop list.
func (s *Store) Crops() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.crops))
	copy(out, s.crops)
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

// Load retrieves the crop list and replaces state wholesale. On failure the
// prior list is kept: nil before the first successful load, stale afterwards.
func (s *Store) Load(ctx context.Context) error {
	s.clearError()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	var crops []Record
	if err := s.client.GetList(ctx, "list_crops", listCropsPath, &crops); err != nil {
		s.recordError(err)
		return err
	}

	s.mu.Lock()
	s.crops = crops
	s.mu.Unlock()
	s.notify()
	return nil
}

// Add records a new crop. Consumed resources are resolved against the current
// inventory snapshot, the crop is posted, one inventory decrement is issued
// per surviving line item (concurrently, awaited jointly, no rollback on
// partial failure), and the crop list is refreshed. Every failure is recorded
// in the store's error field and returned to the caller.
func (s *Store) Add(ctx context.Context, input AddInput) error {
	s.clearError()
	if err := validate.Struct(input); err != nil {
		s.recordError(err)
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	used := resolveConsumedResources(input.ConsumedResources, s.inventory.Items())
	payload := addCropRequest{
		CropName:       input.Name,
		PlantingDate:   input.PlantedOn,
		HarvestingDate: input.HarvestOn,
		CropVariety:    input.Variety,
		UsedItems:      used,
	}

	if _, err := s.client.Do(ctx, "add_crop", http.MethodPost, addCropPath, payload); err != nil {
		s.recordError(err)
		return err
	}

	if err := s.decrementInventory(ctx, used); err != nil {
		s.recordError(err)
		return err
	}

	return s.load(ctx)
}

// Update rewrites an existing crop record. Resource resolution matches Add;
// no inventory decrements are issued for updates.
func (s *Store) Update(ctx context.Context, cropID string, input UpdateInput) error {
	s.clearError()
	if strings.TrimSpace(cropID) == "" {
		err := pkgerrors.New(pkgerrors.CodeValidation, "crop id is required")
		s.recordError(err)
		return err
	}
	if err := validate.Struct(input); err != nil {
		s.recordError(err)
		return err
	}

	s.setLoading(true)
	defer s.setLoading(false)

	payload := updateCropRequest{
		CropName:       input.Name,
		PlantingDate:   input.PlantedOn,
		HarvestingDate: input.HarvestOn,
		ItemUsed:       resolveConsumedResources(input.ConsumedResources, s.inventory.Items()),
	}

	if _, err := s.client.Do(ctx, "update_crop", http.MethodPut, updateCropPath+cropID, payload); err != nil {
		s.recordError(err)
		return err
	}

	return s.load(ctx)
}

// decrementInventory fires one quantity decrement per line item and waits for
// all of them. Partial failure leaves inventory partially adjusted.
func (s *Store) decrementInventory(ctx context.Context, used []ConsumedResource) error {
	if len(used) == 0 {
		return nil
	}

	errs := make([]error, len(used))
	var wg sync.WaitGroup
	for i, li := range used {
		wg.Add(1)
		go func(i int, li ConsumedResource) {
			defer wg.Done()
			errs[i] = s.inventory.AdjustQuantity(ctx, li.ItemID, -li.Quantity)
		}(i, li)
	}
	wg.Wait()

	if combined := multierr.Combine(errs...); combined != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, combined, "inventory adjustment incomplete")
	}
	return nil
}

// resolveConsumedResources turns caller-supplied {itemId, quantity} pairs
// into backend line items: entries missing an item ID or quantity are
// dropped, the display name is looked up from the inventory snapshot, and
// entries whose parsed quantity is not positive are dropped.
func resolveConsumedResources(inputs []ResourceInput, snapshot []inventory.Item) []ConsumedResource {
	namesByID := make(map[string]string, len(snapshot))
	for _, item := range snapshot {
		namesByID[item.ID] = item.Name
	}

	out := []ConsumedResource{}
	for _, in := range inputs {
		itemID := strings.TrimSpace(in.ItemID)
		rawQty := strings.TrimSpace(in.Quantity)
		if itemID == "" || rawQty == "" {
			continue
		}

		qty, err := decimal.NewFromString(rawQty)
		if err != nil {
			continue
		}
		// Fractional inputs truncate toward zero; anything that does not
		// leave a positive whole quantity is dropped.
		qtyInt := int(qty.IntPart())
		if qtyInt <= 0 {
			continue
		}

		name, ok := namesByID[itemID]
		if !ok || name == "" {
			name = unknownItemName
		}

		out = append(out, ConsumedResource{
			ItemID:   itemID,
			Quantity: qtyInt,
			ItemName: name,
		})
	}
	return out
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
