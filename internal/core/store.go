package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"stockcore/pkg/domain"
)

type memoryState struct {
	categories map[string]Category
	suppliers  map[string]Supplier
	products   map[string]Product
	orders     map[string]Order
}

func newMemoryState() memoryState {
	return memoryState{
		categories: make(map[string]Category),
		suppliers:  make(map[string]Supplier),
		products:   make(map[string]Product),
		orders:     make(map[string]Order),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.categories {
		cloned.categories[k] = cloneCategory(v)
	}
	for k, v := range s.suppliers {
		cloned.suppliers[k] = cloneSupplier(v)
	}
	for k, v := range s.products {
		cloned.products[k] = cloneProduct(v)
	}
	for k, v := range s.orders {
		cloned.orders[k] = cloneOrder(v)
	}
	return cloned
}

func cloneCategory(c Category) Category { return c }
func cloneSupplier(s Supplier) Supplier { return s }
func cloneProduct(p Product) Product {
	cp := p
	cp.Images = append([]string(nil), p.Images...)
	return cp
}
func cloneOrder(o Order) Order {
	cp := o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return cp
}

// MemoryStore provides an in-memory transactional document store for the core
// schema, with a per-collection committed-change feed.
type MemoryStore struct {
	mu         sync.RWMutex
	state      memoryState
	engine     *RulesEngine
	nowFn      func() time.Time
	dispatchMu sync.Mutex
	subsMu     sync.Mutex
	subs       map[EntityType]map[int]domain.ChangeHandler
	nextSub    int
}

// NewMemoryStore constructs an in-memory store backed by the provided rules engine.
func NewMemoryStore(engine *RulesEngine) *MemoryStore {
	if engine == nil {
		engine = NewRulesEngine()
	}
	return &MemoryStore{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
		subs:   make(map[EntityType]map[int]domain.ChangeHandler),
	}
}

func (s *MemoryStore) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Subscribe registers a handler for committed changes to one collection.
// Changes to a given document id are delivered in commit order. The returned
// function removes the subscription.
func (s *MemoryStore) Subscribe(entity EntityType, handler domain.ChangeHandler) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.subs[entity] == nil {
		s.subs[entity] = make(map[int]domain.ChangeHandler)
	}
	id := s.nextSub
	s.nextSub++
	s.subs[entity][id] = handler
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs[entity], id)
	}
}

// dispatch delivers committed changes to subscribers, grouped by collection.
// Callers must hold dispatchMu so that concurrent commits notify in order.
func (s *MemoryStore) dispatch(changes []Change) {
	if len(changes) == 0 {
		return
	}
	byEntity := make(map[EntityType][]Change)
	for _, change := range changes {
		byEntity[change.Entity] = append(byEntity[change.Entity], change)
	}
	for entity, batch := range byEntity {
		s.subsMu.Lock()
		handlers := make([]domain.ChangeHandler, 0, len(s.subs[entity]))
		for _, h := range s.subs[entity] {
			handlers = append(handlers, h)
		}
		s.subsMu.Unlock()
		for _, h := range handlers {
			h(batch)
		}
	}
}

// Transaction represents a mutation set applied to the store state.
type Transaction struct {
	store   *MemoryStore
	state   memoryState
	changes []Change
	now     time.Time
}

// TransactionView exposes a read-only snapshot of the transactional state to rules.
type TransactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return TransactionView{state: state}
}

// ListCategories returns all categories within the snapshot.
func (v TransactionView) ListCategories() []Category {
	out := make([]Category, 0, len(v.state.categories))
	for _, c := range v.state.categories {
		out = append(out, cloneCategory(c))
	}
	return out
}

// ListSuppliers returns all suppliers within the snapshot.
func (v TransactionView) ListSuppliers() []Supplier {
	out := make([]Supplier, 0, len(v.state.suppliers))
	for _, s := range v.state.suppliers {
		out = append(out, cloneSupplier(s))
	}
	return out
}

// ListProducts returns all products within the snapshot.
func (v TransactionView) ListProducts() []Product {
	out := make([]Product, 0, len(v.state.products))
	for _, p := range v.state.products {
		out = append(out, cloneProduct(p))
	}
	return out
}

// ListOrders returns all orders within the snapshot.
func (v TransactionView) ListOrders() []Order {
	out := make([]Order, 0, len(v.state.orders))
	for _, o := range v.state.orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

// FindCategory retrieves a category by id from the snapshot.
func (v TransactionView) FindCategory(id string) (Category, bool) {
	c, ok := v.state.categories[id]
	if !ok {
		return Category{}, false
	}
	return cloneCategory(c), true
}

// FindSupplier retrieves a supplier by id from the snapshot.
func (v TransactionView) FindSupplier(id string) (Supplier, bool) {
	s, ok := v.state.suppliers[id]
	if !ok {
		return Supplier{}, false
	}
	return cloneSupplier(s), true
}

// FindProduct retrieves a product by id from the snapshot.
func (v TransactionView) FindProduct(id string) (Product, bool) {
	p, ok := v.state.products[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(p), true
}

// FindOrder retrieves an order by id from the snapshot.
func (v TransactionView) FindOrder(id string) (Order, bool) {
	o, ok := v.state.orders[id]
	if !ok {
		return Order{}, false
	}
	return cloneOrder(o), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Registered rules evaluate against the resulting snapshot; blocking
// violations abort the commit. Committed changes are delivered to subscribers
// before the next commit's changes.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (Result, error) {
	s.mu.Lock()
	tx := &Transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			s.mu.Unlock()
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			s.mu.Unlock()
			return res, RuleViolationError{Result: res}
		}
	}

	// Take the dispatch lock before releasing the state lock so concurrent
	// commits notify subscribers in commit order.
	s.dispatchMu.Lock()
	s.state = tx.state
	changes := tx.changes
	s.mu.Unlock()
	s.dispatch(changes)
	s.dispatchMu.Unlock()
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *MemoryStore) View(ctx context.Context, fn func(domain.RuleView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

// Snapshot returns a read-only view of the transactional state.
func (tx *Transaction) Snapshot() domain.RuleView {
	return newTransactionView(&tx.state)
}

func (tx *Transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// CreateCategory stores a new category within the transaction.
func (tx *Transaction) CreateCategory(c Category) (Category, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.categories[c.ID]; exists {
		return Category{}, fmt.Errorf("category %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.categories[c.ID] = cloneCategory(c)
	tx.recordChange(Change{Entity: EntityCategory, ID: c.ID, Action: ActionCreate, After: cloneCategory(c)})
	return cloneCategory(c), nil
}

// UpdateCategory mutates a category using the provided mutator function.
func (tx *Transaction) UpdateCategory(id string, mutator func(*Category) error) (Category, error) {
	current, ok := tx.state.categories[id]
	if !ok {
		return Category{}, &domain.NotFoundError{Entity: EntityCategory, ID: id}
	}
	before := cloneCategory(current)
	if err := mutator(&current); err != nil {
		return Category{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.categories[id] = cloneCategory(current)
	tx.recordChange(Change{Entity: EntityCategory, ID: id, Action: ActionUpdate, Before: before, After: cloneCategory(current)})
	return cloneCategory(current), nil
}

// DeleteCategory removes a category from the transaction state.
func (tx *Transaction) DeleteCategory(id string) error {
	current, ok := tx.state.categories[id]
	if !ok {
		return &domain.NotFoundError{Entity: EntityCategory, ID: id}
	}
	delete(tx.state.categories, id)
	tx.recordChange(Change{Entity: EntityCategory, ID: id, Action: ActionDelete, Before: cloneCategory(current)})
	return nil
}

// CreateSupplier stores a new supplier.
func (tx *Transaction) CreateSupplier(s Supplier) (Supplier, error) {
	if s.ID == "" {
		s.ID = tx.store.newID()
	}
	if _, exists := tx.state.suppliers[s.ID]; exists {
		return Supplier{}, fmt.Errorf("supplier %q already exists", s.ID)
	}
	if s.Status == "" {
		s.Status = domain.SupplierActive
	}
	s.CreatedAt = tx.now
	s.UpdatedAt = tx.now
	tx.state.suppliers[s.ID] = cloneSupplier(s)
	tx.recordChange(Change{Entity: EntitySupplier, ID: s.ID, Action: ActionCreate, After: cloneSupplier(s)})
	return cloneSupplier(s), nil
}

// UpdateSupplier mutates an existing supplier.
func (tx *Transaction) UpdateSupplier(id string, mutator func(*Supplier) error) (Supplier, error) {
	current, ok := tx.state.suppliers[id]
	if !ok {
		return Supplier{}, &domain.NotFoundError{Entity: EntitySupplier, ID: id}
	}
	before := cloneSupplier(current)
	if err := mutator(&current); err != nil {
		return Supplier{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.suppliers[id] = cloneSupplier(current)
	tx.recordChange(Change{Entity: EntitySupplier, ID: id, Action: ActionUpdate, Before: before, After: cloneSupplier(current)})
	return cloneSupplier(current), nil
}

// DeleteSupplier removes a supplier from state.
func (tx *Transaction) DeleteSupplier(id string) error {
	current, ok := tx.state.suppliers[id]
	if !ok {
		return &domain.NotFoundError{Entity: EntitySupplier, ID: id}
	}
	delete(tx.state.suppliers, id)
	tx.recordChange(Change{Entity: EntitySupplier, ID: id, Action: ActionDelete, Before: cloneSupplier(current)})
	return nil
}

// CreateProduct stores a new product.
func (tx *Transaction) CreateProduct(p Product) (Product, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.products[p.ID]; exists {
		return Product{}, fmt.Errorf("product %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.products[p.ID] = cloneProduct(p)
	tx.recordChange(Change{Entity: EntityProduct, ID: p.ID, Action: ActionCreate, After: cloneProduct(p)})
	return cloneProduct(p), nil
}

// UpdateProduct mutates an existing product.
func (tx *Transaction) UpdateProduct(id string, mutator func(*Product) error) (Product, error) {
	current, ok := tx.state.products[id]
	if !ok {
		return Product{}, &domain.NotFoundError{Entity: EntityProduct, ID: id}
	}
	before := cloneProduct(current)
	if err := mutator(&current); err != nil {
		return Product{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.products[id] = cloneProduct(current)
	tx.recordChange(Change{Entity: EntityProduct, ID: id, Action: ActionUpdate, Before: before, After: cloneProduct(current)})
	return cloneProduct(current), nil
}

// DeleteProduct removes a product from state.
func (tx *Transaction) DeleteProduct(id string) error {
	current, ok := tx.state.products[id]
	if !ok {
		return &domain.NotFoundError{Entity: EntityProduct, ID: id}
	}
	delete(tx.state.products, id)
	tx.recordChange(Change{Entity: EntityProduct, ID: id, Action: ActionDelete, Before: cloneProduct(current)})
	return nil
}

// CreateOrder stores a new order.
func (tx *Transaction) CreateOrder(o Order) (Order, error) {
	if o.ID == "" {
		o.ID = tx.store.newID()
	}
	if _, exists := tx.state.orders[o.ID]; exists {
		return Order{}, fmt.Errorf("order %q already exists", o.ID)
	}
	o.CreatedAt = tx.now
	o.UpdatedAt = tx.now
	tx.state.orders[o.ID] = cloneOrder(o)
	tx.recordChange(Change{Entity: EntityOrder, ID: o.ID, Action: ActionCreate, After: cloneOrder(o)})
	return cloneOrder(o), nil
}

// UpdateOrder mutates an existing order.
func (tx *Transaction) UpdateOrder(id string, mutator func(*Order) error) (Order, error) {
	current, ok := tx.state.orders[id]
	if !ok {
		return Order{}, &domain.NotFoundError{Entity: EntityOrder, ID: id}
	}
	before := cloneOrder(current)
	if err := mutator(&current); err != nil {
		return Order{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.orders[id] = cloneOrder(current)
	tx.recordChange(Change{Entity: EntityOrder, ID: id, Action: ActionUpdate, Before: before, After: cloneOrder(current)})
	return cloneOrder(current), nil
}

// DeleteOrder removes an order from state.
func (tx *Transaction) DeleteOrder(id string) error {
	current, ok := tx.state.orders[id]
	if !ok {
		return &domain.NotFoundError{Entity: EntityOrder, ID: id}
	}
	delete(tx.state.orders, id)
	tx.recordChange(Change{Entity: EntityOrder, ID: id, Action: ActionDelete, Before: cloneOrder(current)})
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetCategory retrieves a category by id from committed state.
func (s *MemoryStore) GetCategory(id string) (Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.categories[id]
	if !ok {
		return Category{}, false
	}
	return cloneCategory(c), true
}

// ListCategories returns all categories from committed state.
func (s *MemoryStore) ListCategories() []Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Category, 0, len(s.state.categories))
	for _, c := range s.state.categories {
		out = append(out, cloneCategory(c))
	}
	return out
}

// GetSupplier retrieves a supplier by id from committed state.
func (s *MemoryStore) GetSupplier(id string) (Supplier, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sup, ok := s.state.suppliers[id]
	if !ok {
		return Supplier{}, false
	}
	return cloneSupplier(sup), true
}

// ListSuppliers returns all suppliers from committed state.
func (s *MemoryStore) ListSuppliers() []Supplier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Supplier, 0, len(s.state.suppliers))
	for _, sup := range s.state.suppliers {
		out = append(out, cloneSupplier(sup))
	}
	return out
}

// GetProduct retrieves a product by id from committed state.
func (s *MemoryStore) GetProduct(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.products[id]
	if !ok {
		return Product{}, false
	}
	return cloneProduct(p), true
}

// ListProducts returns all products from committed state.
func (s *MemoryStore) ListProducts() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.state.products))
	for _, p := range s.state.products {
		out = append(out, cloneProduct(p))
	}
	return out
}

// GetOrder retrieves an order by id from committed state.
func (s *MemoryStore) GetOrder(id string) (Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.state.orders[id]
	if !ok {
		return Order{}, false
	}
	return cloneOrder(o), true
}

// ListOrders returns all orders from committed state.
func (s *MemoryStore) ListOrders() []Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.state.orders))
	for _, o := range s.state.orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

// ExportState returns a serializable snapshot of committed state.
func (s *MemoryStore) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{}
	for _, c := range s.state.categories {
		snap.Categories = append(snap.Categories, cloneCategory(c))
	}
	for _, sup := range s.state.suppliers {
		snap.Suppliers = append(snap.Suppliers, cloneSupplier(sup))
	}
	for _, p := range s.state.products {
		snap.Products = append(snap.Products, cloneProduct(p))
	}
	for _, o := range s.state.orders {
		snap.Orders = append(snap.Orders, cloneOrder(o))
	}
	return snap
}

// ImportState replaces committed state with the snapshot contents. No change
// notifications are emitted; subscribers resync via full reads.
func (s *MemoryStore) ImportState(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := newMemoryState()
	for _, c := range snap.Categories {
		state.categories[c.ID] = cloneCategory(c)
	}
	for _, sup := range snap.Suppliers {
		state.suppliers[sup.ID] = cloneSupplier(sup)
	}
	for _, p := range snap.Products {
		state.products[p.ID] = cloneProduct(p)
	}
	for _, o := range snap.Orders {
		state.orders[o.ID] = cloneOrder(o)
	}
	s.state = state
}
