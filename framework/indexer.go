package framework

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/fixturekit/logger"
)

// Index process codes known to a fresh application.
const (
	IndexProductAttribute = "catalog_product_attribute"
	IndexProductPrice     = "catalog_product_price"
	IndexURL              = "catalog_url"
	IndexProductFlat      = "catalog_product_flat"
	IndexCategoryFlat     = "catalog_category_flat"
	IndexCategoryProduct  = "catalog_category_product"
	IndexSearch           = "catalogsearch_fulltext"
	IndexStock            = "cataloginventory_stock"
	IndexCustomerGrid     = "customer_grid"
)

// DefaultIndexCodes lists the codes registered by NewIndexer.
var DefaultIndexCodes = []string{
	IndexProductAttribute, IndexProductPrice, IndexURL, IndexProductFlat,
	IndexCategoryFlat, IndexCategoryProduct, IndexSearch, IndexStock, IndexCustomerGrid,
}

// IndexFunc rebuilds one derived structure.
type IndexFunc func(ctx context.Context) error

// Indexer maps index process codes to rebuild functions and keeps a history
// of executed codes.
type Indexer struct {
	mu        sync.Mutex
	processes map[string]IndexFunc
	history   []string
	log       *logger.Logger
}

// NewIndexer creates an indexer with no-op processes for DefaultIndexCodes.
func NewIndexer(log *logger.Logger) *Indexer {
	if log == nil {
		log = logger.Nop()
	}
	ix := &Indexer{processes: map[string]IndexFunc{}, log: log.WithComponent("indexer")}
	for _, code := range DefaultIndexCodes {
		ix.processes[code] = func(context.Context) error { return nil }
	}
	return ix
}

// Register binds code to fn, replacing an existing process.
func (ix *Indexer) Register(code string, fn IndexFunc) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.processes[code] = fn
}

// Has reports whether code is registered.
func (ix *Indexer) Has(code string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	_, ok := ix.processes[code]
	return ok
}

// Reindex runs the processes for codes in order. Unknown codes are logged
// and skipped.
func (ix *Indexer) Reindex(ctx context.Context, codes ...string) error {
	for _, code := range codes {
		ix.mu.Lock()
		fn, ok := ix.processes[code]
		ix.mu.Unlock()
		if !ok {
			ix.log.Warn("unknown index process", logger.Fields(logger.FieldIndexer, code))
			continue
		}
		if err := fn(ctx); err != nil {
			return fmt.Errorf("reindex %s: %w", code, err)
		}
		ix.mu.Lock()
		ix.history = append(ix.history, code)
		ix.mu.Unlock()
		ix.log.Debug("reindexed", logger.Fields(logger.FieldIndexer, code))
	}
	return nil
}

// History returns the codes run since the last reset, in order.
func (ix *Indexer) History() []string {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]string(nil), ix.history...)
}

// ResetHistory clears the history.
func (ix *Indexer) ResetHistory() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.history = nil
}
