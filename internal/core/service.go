package core

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"stockcore/internal/blob"
	"stockcore/pkg/domain"
)

// Service exposes the permission-gated mutation and read operations of the
// inventory core. All writes validate against the current store snapshot, go
// to the store first, and reach consumers through the change feed.
type Service struct {
	store   domain.PersistentStore
	perms   domain.PermissionProvider
	images  blob.Store
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	nowFn   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPermissions sets the permission provider consulted before mutations.
func WithPermissions(p domain.PermissionProvider) Option {
	return func(s *Service) {
		if p != nil {
			s.perms = p
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the operation metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the operation tracer.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithImageStore sets the blob backend used for product image attachments.
func WithImageStore(store blob.Store) Option {
	return func(s *Service) {
		s.images = store
	}
}

// WithClock overrides the service time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		perms:   AllowAll(),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. A nil engine gets the default invariant set.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(NewMemoryStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

func (s *Service) require(capability Capability) error {
	if s.perms.HasPermission(capability) {
		return nil
	}
	return &domain.PermissionDeniedError{Capability: capability}
}

// instrument starts a span and returns a completion callback recording
// metrics and error logs for the operation.
func (s *Service) instrument(ctx context.Context, operation string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	return ctx, func(err error) {
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
		if err != nil {
			s.logger.Warn("operation failed", "operation", operation, "error", err)
		}
	}
}

// Categories -----------------------------------------------------------------

// CreateCategory validates and persists a new category.
func (s *Service) CreateCategory(ctx context.Context, category Category) (Category, error) {
	ctx, done := s.instrument(ctx, "create_category")
	var created Category
	err := func() error {
		if err := s.require(domain.CapManageInventory); err != nil {
			return err
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			normalized, err := validateCategory(category, tx.Snapshot(), "")
			if err != nil {
				return err
			}
			created, err = tx.CreateCategory(normalized)
			return err
		})
		return err
	}()
	done(err)
	if err != nil {
		return Category{}, err
	}
	s.logger.Info("category created", "id", created.ID, "name", created.Name)
	return created, nil
}

// UpdateCategory applies a partial update. When the patch renames the
// category, every product referencing the old name is rewritten afterwards;
// the returned count reports how many products were cascaded.
func (s *Service) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (Category, int, error) {
	ctx, done := s.instrument(ctx, "update_category")
	var (
		updated Category
		oldName string
	)
	err := func() error {
		if err := s.require(domain.CapManageInventory); err != nil {
			return err
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateCategory(id, func(c *Category) error {
				oldName = c.Name
				patch.apply(c)
				normalized, err := validateCategory(*c, tx.Snapshot(), id)
				if err != nil {
					return err
				}
				*c = normalized
				return nil
			})
			return txErr
		})
		return err
	}()
	if err != nil {
		done(err)
		return Category{}, 0, err
	}

	renamed := 0
	if oldName != updated.Name {
		renamed, err = s.cascadeCategoryRename(ctx, oldName, updated.Name)
		if err != nil {
			done(err)
			return updated, renamed, err
		}
		s.logger.Info("category renamed", "id", id, "from", oldName, "to", updated.Name, "products", renamed)
	}
	done(nil)
	return updated, renamed, nil
}

// RenameCategory changes only the category name, cascading to products.
func (s *Service) RenameCategory(ctx context.Context, id, newName string) (Category, int, error) {
	return s.UpdateCategory(ctx, id, CategoryPatch{Name: &newName})
}

// DeleteCategory removes a category. It fails with a referential-integrity
// error naming the dependent product count while any product references the
// category by name.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	ctx, done := s.instrument(ctx, "delete_category")
	err := func() error {
		if err := s.require(domain.CapManageInventory); err != nil {
			return err
		}
		category, ok := s.store.GetCategory(id)
		if !ok {
			return &domain.NotFoundError{Entity: EntityCategory, ID: id}
		}
		dependents := 0
		for _, product := range s.store.ListProducts() {
			if strings.EqualFold(product.Category, category.Name) {
				dependents++
			}
		}
		if dependents > 0 {
			return &domain.ReferentialIntegrityError{
				Entity:     EntityCategory,
				EntityID:   id,
				Name:       category.Name,
				Dependents: dependents,
			}
		}
		// The category_references rule re-checks inside the transaction, so a
		// product created between the check above and the commit still blocks.
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteCategory(id)
		})
		return err
	}()
	done(err)
	return err
}

// Suppliers ------------------------------------------------------------------

// CreateSupplier validates and persists a new supplier.
func (s *Service) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	ctx, done := s.instrument(ctx, "create_supplier")
	var created Supplier
	err := func() error {
		if err := s.require(domain.CapManageSuppliers); err != nil {
			return err
		}
		normalized, err := validateSupplier(supplier)
		if err != nil {
			return err
		}
		_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			created, err = tx.CreateSupplier(normalized)
			return err
		})
		return err
	}()
	done(err)
	if err != nil {
		return Supplier{}, err
	}
	return created, nil
}

// UpdateSupplier applies a partial update to a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id string, patch SupplierPatch) (Supplier, error) {
	ctx, done := s.instrument(ctx, "update_supplier")
	var updated Supplier
	err := func() error {
		if err := s.require(domain.CapManageSuppliers); err != nil {
			return err
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateSupplier(id, func(sup *Supplier) error {
				patch.apply(sup)
				normalized, err := validateSupplier(*sup)
				if err != nil {
					return err
				}
				*sup = normalized
				return nil
			})
			return txErr
		})
		return err
	}()
	done(err)
	if err != nil {
		return Supplier{}, err
	}
	return updated, nil
}

// DeleteSupplier removes a supplier unless products still reference it.
func (s *Service) DeleteSupplier(ctx context.Context, id string) error {
	ctx, done := s.instrument(ctx, "delete_supplier")
	err := func() error {
		if err := s.require(domain.CapDeleteItems); err != nil {
			return err
		}
		supplier, ok := s.store.GetSupplier(id)
		if !ok {
			return &domain.NotFoundError{Entity: EntitySupplier, ID: id}
		}
		dependents := 0
		for _, product := range s.store.ListProducts() {
			if product.SupplierID == id {
				dependents++
			}
		}
		if dependents > 0 {
			return &domain.ReferentialIntegrityError{
				Entity:     EntitySupplier,
				EntityID:   id,
				Name:       supplier.Name,
				Dependents: dependents,
			}
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteSupplier(id)
		})
		return err
	}()
	done(err)
	return err
}

// Products -------------------------------------------------------------------

// resolveCategoryName collapses the loose category representation to the
// stored record's exact name, matching case-insensitively.
func resolveCategoryName(view domain.RuleView, name string) (string, bool) {
	for _, category := range view.ListCategories() {
		if strings.EqualFold(category.Name, strings.TrimSpace(name)) {
			return category.Name, true
		}
	}
	return "", false
}

// CreateProduct validates and persists a new product. The referenced category
// must exist; the supplier reference, when set, must resolve.
func (s *Service) CreateProduct(ctx context.Context, product Product) (Product, error) {
	ctx, done := s.instrument(ctx, "create_product")
	var created Product
	err := func() error {
		if err := s.require(domain.CapManageInventory); err != nil {
			return err
		}
		normalized, err := validateProduct(product)
		if err != nil {
			return err
		}
		_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			if err := checkProductReferences(tx.Snapshot(), &normalized); err != nil {
				return err
			}
			created, err = tx.CreateProduct(normalized)
			return err
		})
		return err
	}()
	done(err)
	if err != nil {
		return Product{}, err
	}
	return created, nil
}

// checkProductReferences verifies the category and supplier joins and
// normalizes the category to the stored spelling.
func checkProductReferences(view domain.RuleView, product *Product) error {
	verr := &domain.ValidationError{Entity: EntityProduct}
	if name, ok := resolveCategoryName(view, product.Category); ok {
		product.Category = name
	} else {
		verr.Add("category", fmt.Sprintf("unknown category %q", product.Category))
	}
	if product.SupplierID != "" {
		if _, ok := view.FindSupplier(product.SupplierID); !ok {
			verr.Add("supplier", fmt.Sprintf("unknown supplier %q", product.SupplierID))
		}
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// UpdateProduct applies a partial update to a product.
func (s *Service) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (Product, error) {
	ctx, done := s.instrument(ctx, "update_product")
	var updated Product
	err := func() error {
		if err := s.require(domain.CapManageInventory); err != nil {
			return err
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateProduct(id, func(p *Product) error {
				patch.apply(p)
				normalized, err := validateProduct(*p)
				if err != nil {
					return err
				}
				if err := checkProductReferences(tx.Snapshot(), &normalized); err != nil {
					return err
				}
				*p = normalized
				return nil
			})
			return txErr
		})
		return err
	}()
	done(err)
	if err != nil {
		return Product{}, err
	}
	return updated, nil
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	ctx, done := s.instrument(ctx, "delete_product")
	err := func() error {
		if err := s.require(domain.CapDeleteItems); err != nil {
			return err
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteProduct(id)
		})
		return err
	}()
	done(err)
	return err
}

// SetProductStock writes an absolute stock level for a product.
func (s *Service) SetProductStock(ctx context.Context, id string, stock int) (Product, error) {
	ctx, done := s.instrument(ctx, "set_product_stock")
	var updated Product
	err := func() error {
		if err := s.require(domain.CapManageInventory); err != nil {
			return err
		}
		if stock < 0 {
			verr := &domain.ValidationError{Entity: EntityProduct}
			verr.Add("stock", "stock cannot be negative")
			return verr
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateProduct(id, func(p *Product) error {
				p.Stock = stock
				return nil
			})
			return txErr
		})
		return err
	}()
	done(err)
	if err != nil {
		return Product{}, err
	}
	s.logger.Info("stock updated", "product", id, "stock", stock)
	return updated, nil
}

// GenerateSKU derives a unique-enough SKU from the category and name
// prefixes plus a timestamp suffix.
func (s *Service) GenerateSKU(category, name string) string {
	prefix := func(v string, n int) string {
		v = strings.ToUpper(strings.TrimSpace(v))
		if len(v) > n {
			v = v[:n]
		}
		return v
	}
	millis := fmt.Sprintf("%d", s.nowFn().UnixMilli())
	if len(millis) > 4 {
		millis = millis[len(millis)-4:]
	}
	return fmt.Sprintf("%s-%s-%s", prefix(category, 2), prefix(name, 3), millis)
}

// Orders ---------------------------------------------------------------------

// CreateOrder validates a new order, snapshots item names and prices from the
// referenced products, recomputes totals server-side, and persists it in
// pending status.
func (s *Service) CreateOrder(ctx context.Context, order Order) (Order, error) {
	ctx, done := s.instrument(ctx, "create_order")
	var created Order
	err := func() error {
		if err := s.require(domain.CapManageOrders); err != nil {
			return err
		}
		normalized, err := validateOrder(order)
		if err != nil {
			return err
		}
		_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			view := tx.Snapshot()
			for i := range normalized.Items {
				item := &normalized.Items[i]
				product, ok := view.FindProduct(item.ProductRef())
				if !ok {
					continue
				}
				// Snapshot at creation time; later product edits must not
				// change historical orders.
				if item.Name == "" {
					item.Name = product.Name
				}
				if item.Price == 0 {
					item.Price = product.Price
				}
			}
			totals := domain.CalculateOrderTotals(normalized.Items)
			normalized.Subtotal = totals.Subtotal
			normalized.Tax = totals.Tax
			normalized.Shipping = totals.Shipping
			normalized.Total = totals.Total
			normalized.Status = OrderStatusPending
			normalized.StockDeducted = false
			normalized.Date = s.nowFn().Format("2006-01-02")
			created, err = tx.CreateOrder(normalized)
			return err
		})
		return err
	}()
	done(err)
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order created", "id", created.ID, "total", created.Total)
	return created, nil
}

// UpdateOrder applies a partial update to an order's customer, items, or
// notes. Totals are recomputed when items change.
func (s *Service) UpdateOrder(ctx context.Context, id string, patch OrderPatch) (Order, error) {
	ctx, done := s.instrument(ctx, "update_order")
	var updated Order
	err := func() error {
		if err := s.require(domain.CapManageOrders); err != nil {
			return err
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateOrder(id, func(o *Order) error {
				patch.apply(o)
				normalized, err := validateOrder(*o)
				if err != nil {
					return err
				}
				if patch.Items != nil {
					totals := domain.CalculateOrderTotals(normalized.Items)
					normalized.Subtotal = totals.Subtotal
					normalized.Tax = totals.Tax
					normalized.Shipping = totals.Shipping
					normalized.Total = totals.Total
				}
				*o = normalized
				return nil
			})
			return txErr
		})
		return err
	}()
	done(err)
	if err != nil {
		return Order{}, err
	}
	return updated, nil
}

// DeleteOrder removes an order. Deletion of completed or shipped orders is
// blocked by policy.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	ctx, done := s.instrument(ctx, "delete_order")
	err := func() error {
		if err := s.require(domain.CapDeleteItems); err != nil {
			return err
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteOrder(id)
		})
		return err
	}()
	done(err)
	return err
}

// Images ---------------------------------------------------------------------

// AttachProductImage stores image bytes in the configured blob backend and
// records the blob key on the product.
func (s *Service) AttachProductImage(ctx context.Context, productID, filename string, r io.Reader, contentType string) (Product, blob.Info, error) {
	ctx, done := s.instrument(ctx, "attach_product_image")
	var (
		updated Product
		info    blob.Info
	)
	err := func() error {
		if err := s.require(domain.CapManageInventory); err != nil {
			return err
		}
		if s.images == nil {
			return fmt.Errorf("no image store configured")
		}
		if _, ok := s.store.GetProduct(productID); !ok {
			return &domain.NotFoundError{Entity: EntityProduct, ID: productID}
		}
		key := fmt.Sprintf("products/%s/%d-%s", productID, s.nowFn().UnixMilli(), filename)
		var err error
		info, err = s.images.Put(ctx, key, r, blob.PutOptions{ContentType: contentType})
		if err != nil {
			return fmt.Errorf("store image: %w", err)
		}
		_, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateProduct(productID, func(p *Product) error {
				p.Images = append(p.Images, key)
				return nil
			})
			return txErr
		})
		return err
	}()
	done(err)
	if err != nil {
		return Product{}, blob.Info{}, err
	}
	return updated, info, nil
}

// ProductImageURL returns a time-limited URL for a stored product image.
func (s *Service) ProductImageURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if s.images == nil {
		return "", fmt.Errorf("no image store configured")
	}
	return s.images.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: expiry})
}
