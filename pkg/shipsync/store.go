package shipsync

import (
	"context"
	"fmt"
	"sync"
)

// OrderStore is the host system's order storage, consumed opaquely. It
// must provide read-your-writes consistency on a single order record.
type OrderStore interface {
	// Get returns the order or ErrOrderNotFound.
	Get(ctx context.Context, orderID string) (*ShipmentOrder, error)

	// Save upserts the order record as a unit.
	Save(ctx context.Context, order *ShipmentOrder) error
}

// ConfigStore is the host system's mutable key-value option storage.
type ConfigStore interface {
	Get(key, def string) string
	Set(key, value string) error
}

// Option keys mirrored from the host's settings storage.
const (
	ConfigKeyAccessToken           = "access_token"
	ConfigKeyServiceID             = "service_id"
	ConfigKeyPaymentByReceiver     = "payment_done_by_receiver"
	ConfigKeyIncludeProductPayment = "include_product_payment"
)

// MemoryOrderStore is an in-process OrderStore used for the default
// wiring and tests. Records are copied on the way in and out.
type MemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]*ShipmentOrder
}

// NewMemoryOrderStore creates an empty in-memory order store.
func NewMemoryOrderStore() *MemoryOrderStore {
	return &MemoryOrderStore{orders: make(map[string]*ShipmentOrder)}
}

// Get returns a copy of the stored order.
func (s *MemoryOrderStore) Get(ctx context.Context, orderID string) (*ShipmentOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	return o.Clone(), nil
}

// Save stores a copy of the order.
func (s *MemoryOrderStore) Save(ctx context.Context, order *ShipmentOrder) error {
	if order == nil || order.OrderID == "" {
		return fmt.Errorf("order id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.OrderID] = order.Clone()
	return nil
}

// MemoryConfigStore is an in-process ConfigStore seeded from service
// configuration.
type MemoryConfigStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryConfigStore creates a config store with the given seed values.
func NewMemoryConfigStore(seed map[string]string) *MemoryConfigStore {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemoryConfigStore{values: values}
}

// Get returns the stored value or def when unset.
func (s *MemoryConfigStore) Get(key, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Set stores the value.
func (s *MemoryConfigStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
