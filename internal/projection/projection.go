// Package projection maintains the in-memory read model fed by the store's
// per-collection change feed, and derives the alert, search, and dashboard
// views consumed by callers. The projection is a cache: mutations always go
// to the store first and arrive here through the feed.
package projection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"stockcore/pkg/domain"
)

// Consumer receives the full updated collection after every change batch.
type Consumer[T any] func([]T)

// Projection subscribes to the store change feed and keeps an id-keyed copy
// of every collection. It is the single mutator of the cached state; all
// reads return copies.
type Projection struct {
	store domain.PersistentStore

	mu         sync.RWMutex
	categories map[string]domain.Category
	suppliers  map[string]domain.Supplier
	products   map[string]domain.Product
	orders     map[string]domain.Order

	consumerMu        sync.Mutex
	nextConsumer      int
	categoryConsumers map[int]Consumer[domain.Category]
	supplierConsumers map[int]Consumer[domain.Supplier]
	productConsumers  map[int]Consumer[domain.Product]
	orderConsumers    map[int]Consumer[domain.Order]

	unsubs []func()
}

// New constructs a projection over the given store. Call Start to seed,
// hydrate, and begin following the change feed.
func New(store domain.PersistentStore) *Projection {
	return &Projection{
		store:             store,
		categories:        make(map[string]domain.Category),
		suppliers:         make(map[string]domain.Supplier),
		products:          make(map[string]domain.Product),
		orders:            make(map[string]domain.Order),
		categoryConsumers: make(map[int]Consumer[domain.Category]),
		supplierConsumers: make(map[int]Consumer[domain.Supplier]),
		productConsumers:  make(map[int]Consumer[domain.Product]),
		orderConsumers:    make(map[int]Consumer[domain.Order]),
	}
}

// Start seeds default categories into an empty store, hydrates the projection
// from committed state, and subscribes to all four collection feeds.
func (p *Projection) Start(ctx context.Context) error {
	if err := p.seedDefaultCategories(ctx); err != nil {
		return err
	}

	p.unsubs = append(p.unsubs,
		p.store.Subscribe(domain.EntityCategory, p.applyCategoryChanges),
		p.store.Subscribe(domain.EntitySupplier, p.applySupplierChanges),
		p.store.Subscribe(domain.EntityProduct, p.applyProductChanges),
		p.store.Subscribe(domain.EntityOrder, p.applyOrderChanges),
	)

	// Hydrate after subscribing so a write landing between the initial read
	// and the subscription is not lost; replaying it over the hydrated state
	// is harmless because apply is idempotent per document.
	p.Resync()
	return nil
}

// Stop removes all feed subscriptions.
func (p *Projection) Stop() {
	for _, unsub := range p.unsubs {
		unsub()
	}
	p.unsubs = nil
}

// seedDefaultCategories populates the starter categories exactly once: only
// when no category exists yet.
func (p *Projection) seedDefaultCategories(ctx context.Context) error {
	if len(p.store.ListCategories()) > 0 {
		return nil
	}
	_, err := p.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		// Re-check inside the transaction; a concurrent seeder may have won.
		if len(tx.Snapshot().ListCategories()) > 0 {
			return nil
		}
		for _, c := range domain.DefaultCategories() {
			if _, err := tx.CreateCategory(c); err != nil {
				return fmt.Errorf("seed category %s: %w", c.Name, err)
			}
		}
		return nil
	})
	return err
}

// Resync replaces the entire projection from committed store state. Used at
// startup and after a feed reconnection, where a full replace stands in for
// any missed diffs.
func (p *Projection) Resync() {
	categories := p.store.ListCategories()
	suppliers := p.store.ListSuppliers()
	products := p.store.ListProducts()
	orders := p.store.ListOrders()

	p.mu.Lock()
	p.categories = make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		p.categories[c.ID] = c
	}
	p.suppliers = make(map[string]domain.Supplier, len(suppliers))
	for _, s := range suppliers {
		p.suppliers[s.ID] = s
	}
	p.products = make(map[string]domain.Product, len(products))
	for _, pr := range products {
		p.products[pr.ID] = pr
	}
	p.orders = make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		p.orders[o.ID] = o
	}
	p.mu.Unlock()

	p.publishCategories()
	p.publishSuppliers()
	p.publishProducts()
	p.publishOrders()
}

// Change application ---------------------------------------------------------

func (p *Projection) applyCategoryChanges(changes []domain.Change) {
	p.mu.Lock()
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			delete(p.categories, change.ID)
			continue
		}
		if c, ok := change.After.(domain.Category); ok {
			p.categories[c.ID] = c
		}
	}
	p.mu.Unlock()
	p.publishCategories()
}

func (p *Projection) applySupplierChanges(changes []domain.Change) {
	p.mu.Lock()
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			delete(p.suppliers, change.ID)
			continue
		}
		if s, ok := change.After.(domain.Supplier); ok {
			p.suppliers[s.ID] = s
		}
	}
	p.mu.Unlock()
	p.publishSuppliers()
}

func (p *Projection) applyProductChanges(changes []domain.Change) {
	p.mu.Lock()
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			delete(p.products, change.ID)
			continue
		}
		if pr, ok := change.After.(domain.Product); ok {
			p.products[pr.ID] = pr
		}
	}
	p.mu.Unlock()
	p.publishProducts()
}

func (p *Projection) applyOrderChanges(changes []domain.Change) {
	p.mu.Lock()
	for _, change := range changes {
		if change.Action == domain.ActionDelete {
			delete(p.orders, change.ID)
			continue
		}
		if o, ok := change.After.(domain.Order); ok {
			p.orders[o.ID] = o
		}
	}
	p.mu.Unlock()
	p.publishOrders()
}

// Consumers ------------------------------------------------------------------

// OnCategories registers a consumer receiving the full category list after
// every change batch. The returned function removes the registration.
func (p *Projection) OnCategories(fn Consumer[domain.Category]) func() {
	p.consumerMu.Lock()
	defer p.consumerMu.Unlock()
	id := p.nextConsumer
	p.nextConsumer++
	p.categoryConsumers[id] = fn
	return func() {
		p.consumerMu.Lock()
		defer p.consumerMu.Unlock()
		delete(p.categoryConsumers, id)
	}
}

// OnSuppliers registers a supplier list consumer.
func (p *Projection) OnSuppliers(fn Consumer[domain.Supplier]) func() {
	p.consumerMu.Lock()
	defer p.consumerMu.Unlock()
	id := p.nextConsumer
	p.nextConsumer++
	p.supplierConsumers[id] = fn
	return func() {
		p.consumerMu.Lock()
		defer p.consumerMu.Unlock()
		delete(p.supplierConsumers, id)
	}
}

// OnProducts registers a product list consumer.
func (p *Projection) OnProducts(fn Consumer[domain.Product]) func() {
	p.consumerMu.Lock()
	defer p.consumerMu.Unlock()
	id := p.nextConsumer
	p.nextConsumer++
	p.productConsumers[id] = fn
	return func() {
		p.consumerMu.Lock()
		defer p.consumerMu.Unlock()
		delete(p.productConsumers, id)
	}
}

// OnOrders registers an order list consumer.
func (p *Projection) OnOrders(fn Consumer[domain.Order]) func() {
	p.consumerMu.Lock()
	defer p.consumerMu.Unlock()
	id := p.nextConsumer
	p.nextConsumer++
	p.orderConsumers[id] = fn
	return func() {
		p.consumerMu.Lock()
		defer p.consumerMu.Unlock()
		delete(p.orderConsumers, id)
	}
}

func (p *Projection) publishCategories() {
	list := p.Categories()
	p.consumerMu.Lock()
	consumers := make([]Consumer[domain.Category], 0, len(p.categoryConsumers))
	for _, fn := range p.categoryConsumers {
		consumers = append(consumers, fn)
	}
	p.consumerMu.Unlock()
	for _, fn := range consumers {
		fn(list)
	}
}

func (p *Projection) publishSuppliers() {
	list := p.Suppliers()
	p.consumerMu.Lock()
	consumers := make([]Consumer[domain.Supplier], 0, len(p.supplierConsumers))
	for _, fn := range p.supplierConsumers {
		consumers = append(consumers, fn)
	}
	p.consumerMu.Unlock()
	for _, fn := range consumers {
		fn(list)
	}
}

func (p *Projection) publishProducts() {
	list := p.Products()
	p.consumerMu.Lock()
	consumers := make([]Consumer[domain.Product], 0, len(p.productConsumers))
	for _, fn := range p.productConsumers {
		consumers = append(consumers, fn)
	}
	p.consumerMu.Unlock()
	for _, fn := range consumers {
		fn(list)
	}
}

func (p *Projection) publishOrders() {
	list := p.Orders()
	p.consumerMu.Lock()
	consumers := make([]Consumer[domain.Order], 0, len(p.orderConsumers))
	for _, fn := range p.orderConsumers {
		consumers = append(consumers, fn)
	}
	p.consumerMu.Unlock()
	for _, fn := range consumers {
		fn(list)
	}
}

// Reads ----------------------------------------------------------------------

// Categories returns the projected categories sorted by name.
func (p *Projection) Categories() []domain.Category {
	p.mu.RLock()
	out := make([]domain.Category, 0, len(p.categories))
	for _, c := range p.categories {
		out = append(out, c)
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Suppliers returns the projected suppliers sorted by name.
func (p *Projection) Suppliers() []domain.Supplier {
	p.mu.RLock()
	out := make([]domain.Supplier, 0, len(p.suppliers))
	for _, s := range p.suppliers {
		out = append(out, s)
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Products returns the projected products sorted by name.
func (p *Projection) Products() []domain.Product {
	p.mu.RLock()
	out := make([]domain.Product, 0, len(p.products))
	for _, pr := range p.products {
		out = append(out, pr)
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Orders returns the projected orders sorted newest first.
func (p *Projection) Orders() []domain.Order {
	p.mu.RLock()
	out := make([]domain.Order, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, o)
	}
	p.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Product returns one projected product by id.
func (p *Projection) Product(id string) (domain.Product, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pr, ok := p.products[id]
	return pr, ok
}

// Order returns one projected order by id.
func (p *Projection) Order(id string) (domain.Order, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	o, ok := p.orders[id]
	return o, ok
}
