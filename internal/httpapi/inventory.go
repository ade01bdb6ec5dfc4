package httpapi

import (
	"fmt"
	"sync"
)

// StockShortage is the dead letter payload for a request that asked for
// more units than are in stock.
type StockShortage struct {
	CustomerEmail string `json:"customer_email"`
	SKU           string `json:"sku"`
	Requested     int    `json:"requested_qty"`
	Available     int    `json:"available_stock"`
}

func (s StockShortage) Error() string {
	return fmt.Sprintf("out of stock for sku %s: requested %d, available %d", s.SKU, s.Requested, s.Available)
}

// Inventory tracks stock per SKU. SKUs it does not track are unlimited.
// It is safe for concurrent use.
type Inventory struct {
	mu    sync.Mutex
	stock map[string]int
}

// NewInventory creates an inventory seeded with stock. The map is copied.
func NewInventory(stock map[string]int) *Inventory {
	inv := &Inventory{stock: make(map[string]int, len(stock))}
	for sku, n := range stock {
		inv.stock[sku] = n
	}
	return inv
}

// Reserve removes the requested quantities from stock, all or nothing.
// On shortage nothing is removed and one short SKU is reported.
func (inv *Inventory) Reserve(want map[string]int) (*StockShortage, bool) {
	if inv == nil {
		return nil, true
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for sku, qty := range want {
		have, tracked := inv.stock[sku]
		if tracked && have < qty {
			return &StockShortage{SKU: sku, Requested: qty, Available: have}, false
		}
	}
	for sku, qty := range want {
		if _, tracked := inv.stock[sku]; tracked {
			inv.stock[sku] -= qty
		}
	}
	return nil, true
}

// Available returns the stock for sku and whether it is tracked.
func (inv *Inventory) Available(sku string) (int, bool) {
	if inv == nil {
		return 0, false
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	n, ok := inv.stock[sku]
	return n, ok
}

// Release returns reserved quantities to stock.
func (inv *Inventory) Release(qty map[string]int) {
	if inv == nil {
		return
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for sku, n := range qty {
		if _, tracked := inv.stock[sku]; tracked {
			inv.stock[sku] += n
		}
	}
}
