package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Each mutation maps to a single-document
// write at the store level; the transaction scope exists so rules can observe
// a consistent snapshot, not to provide multi-document atomicity to callers.
type Transaction interface {
	Snapshot() RuleView
	CreateCategory(Category) (Category, error)
	UpdateCategory(id string, mutator func(*Category) error) (Category, error)
	DeleteCategory(id string) error
	CreateSupplier(Supplier) (Supplier, error)
	UpdateSupplier(id string, mutator func(*Supplier) error) (Supplier, error)
	DeleteSupplier(id string) error
	CreateProduct(Product) (Product, error)
	UpdateProduct(id string, mutator func(*Product) error) (Product, error)
	DeleteProduct(id string) error
	CreateOrder(Order) (Order, error)
	UpdateOrder(id string, mutator func(*Order) error) (Order, error)
	DeleteOrder(id string) error
}

// ChangeHandler receives the committed changes of one collection, in commit
// order. Handlers run synchronously on the committing goroutine and must not
// call back into the store.
type ChangeHandler func(changes []Change)

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers: CRUD inside
// transactions, snapshot reads, and a per-collection change feed.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(RuleView) error) error
	Subscribe(entity EntityType, handler ChangeHandler) (unsubscribe func())
	GetCategory(id string) (Category, bool)
	ListCategories() []Category
	GetSupplier(id string) (Supplier, bool)
	ListSuppliers() []Supplier
	GetProduct(id string) (Product, bool)
	ListProducts() []Product
	GetOrder(id string) (Order, bool)
	ListOrders() []Order
}

// Snapshot is a serializable copy of the full store state, used by durable
// backends to persist and rehydrate.
type Snapshot struct {
	Categories []Category `json:"categories"`
	Suppliers  []Supplier `json:"suppliers"`
	Products   []Product  `json:"products"`
	Orders     []Order    `json:"orders"`
}

// SnapshotStore is a PersistentStore whose full state can be exported and
// replaced wholesale. Durable backends wrap one and snapshot it after every
// committed transaction.
type SnapshotStore interface {
	PersistentStore
	ExportState() Snapshot
	ImportState(Snapshot)
}
