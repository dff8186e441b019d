package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stockcore/internal/blob"
	"stockcore/pkg/domain"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	return NewInMemoryService(nil, opts...)
}

func mustCategory(t *testing.T, svc *Service, name string) Category {
	t.Helper()
	c, err := svc.CreateCategory(context.Background(), Category{Name: name, Color: "#007bff"})
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return c
}

func mustProduct(t *testing.T, svc *Service, p Product) Product {
	t.Helper()
	created, err := svc.CreateProduct(context.Background(), p)
	if err != nil {
		t.Fatalf("create product %s: %v", p.Name, err)
	}
	return created
}

func TestCreateCategoryValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, Category{Name: "x", Description: strings.Repeat("d", 201)})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.FieldMessage("name"); !ok {
		t.Fatalf("expected name violation: %v", verr)
	}
	if _, ok := verr.FieldMessage("description"); !ok {
		t.Fatalf("expected description violation reported alongside name: %v", verr)
	}

	mustCategory(t, svc, "Electronics")
	_, err = svc.CreateCategory(ctx, Category{Name: "  electronics "})
	if !errors.As(err, &verr) {
		t.Fatalf("duplicate name should fail validation, got %v", err)
	}
	if msg, _ := verr.FieldMessage("name"); !strings.Contains(msg, "already exists") {
		t.Fatalf("unexpected duplicate message %q", msg)
	}
}

func TestCategoryRenameCascadesToProducts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cat := mustCategory(t, svc, "Electronics")
	mustCategory(t, svc, "Books")
	mustProduct(t, svc, Product{Name: "Webcam", SKU: "EL-WEB-0001", Category: "Electronics", Price: 20, Stock: 4})
	mustProduct(t, svc, Product{Name: "Mouse", SKU: "EL-MOU-0002", Category: "Electronics", Price: 5, Stock: 9})
	mustProduct(t, svc, Product{Name: "Novel", SKU: "BO-NOV-0003", Category: "Books", Price: 12, Stock: 3})

	updated, renamed, err := svc.RenameCategory(ctx, cat.ID, "Gadgets")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Name != "Gadgets" {
		t.Fatalf("category name = %q", updated.Name)
	}
	if renamed != 2 {
		t.Fatalf("expected 2 cascaded products, got %d", renamed)
	}
	for _, p := range svc.Store().ListProducts() {
		if p.Category == "Electronics" {
			t.Fatalf("product %s still references old name", p.Name)
		}
	}
	novel := findProductByName(t, svc, "Novel")
	if novel.Category != "Books" {
		t.Fatalf("unrelated product touched: %+v", novel)
	}
}

func findProductByName(t *testing.T, svc *Service, name string) Product {
	t.Helper()
	for _, p := range svc.Store().ListProducts() {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("product %s not found", name)
	return Product{}
}

func TestDeleteCategoryGuard(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cat := mustCategory(t, svc, "Electronics")
	for _, name := range []string{"Webcam", "Mouse", "Keyboard"} {
		mustProduct(t, svc, Product{Name: name, SKU: "EL-" + name, Category: "Electronics", Price: 10, Stock: 1})
	}

	err := svc.DeleteCategory(ctx, cat.ID)
	var rie *domain.ReferentialIntegrityError
	if !errors.As(err, &rie) {
		t.Fatalf("expected referential integrity error, got %v", err)
	}
	if rie.Dependents != 3 || rie.Name != "Electronics" {
		t.Fatalf("unexpected guard detail %+v", rie)
	}

	for _, p := range svc.Store().ListProducts() {
		if err := svc.DeleteProduct(ctx, p.ID); err != nil {
			t.Fatalf("delete product: %v", err)
		}
	}
	if err := svc.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatalf("delete after products removed: %v", err)
	}
}

func TestCreateProductChecksReferences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCategory(t, svc, "Electronics")

	_, err := svc.CreateProduct(ctx, Product{Name: "Webcam", SKU: "X", Category: "Nonexistent", Price: 10})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, ok := verr.FieldMessage("category"); !ok {
		t.Fatalf("expected category violation: %v", verr)
	}

	_, err = svc.CreateProduct(ctx, Product{Name: "Webcam", SKU: "X", Category: "Electronics", Price: 10, SupplierID: "ghost"})
	if !errors.As(err, &verr) {
		t.Fatalf("expected supplier violation, got %v", err)
	}
	if _, ok := verr.FieldMessage("supplier"); !ok {
		t.Fatalf("expected supplier violation: %v", verr)
	}

	// Category is normalized to the stored spelling.
	p := mustProduct(t, svc, Product{Name: "Webcam", SKU: "X", Category: "electronics", Price: 10})
	if p.Category != "Electronics" {
		t.Fatalf("category = %q, want normalized spelling", p.Category)
	}
}

func TestSupplierLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSupplier(ctx, Supplier{Name: "Acme"})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"email", "phone", "contactPerson"} {
		if _, ok := verr.FieldMessage(field); !ok {
			t.Fatalf("expected %s violation: %v", field, verr)
		}
	}

	sup, err := svc.CreateSupplier(ctx, Supplier{
		Name: "Acme", ContactPerson: "Jo", Email: "jo@acme.test", Phone: "555-1234", Address: "1 Acme Way",
	})
	if err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	if sup.Status != domain.SupplierActive {
		t.Fatalf("default status = %q, want active", sup.Status)
	}

	inactive := domain.SupplierInactive
	updated, err := svc.UpdateSupplier(ctx, sup.ID, SupplierPatch{Status: &inactive})
	if err != nil {
		t.Fatalf("update supplier: %v", err)
	}
	if updated.Status != domain.SupplierInactive {
		t.Fatalf("status = %q", updated.Status)
	}

	mustCategory(t, svc, "Electronics")
	mustProduct(t, svc, Product{Name: "Webcam", SKU: "X", Category: "Electronics", Price: 10, SupplierID: sup.ID})
	err = svc.DeleteSupplier(ctx, sup.ID)
	var rie *domain.ReferentialIntegrityError
	if !errors.As(err, &rie) {
		t.Fatalf("supplier delete should be guarded, got %v", err)
	}
}

func TestCreateOrderComputesTotalsServerSide(t *testing.T) {
	svc := newTestService(t, WithClock(func() time.Time {
		return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	}))
	ctx := context.Background()
	mustCategory(t, svc, "Electronics")
	p := mustProduct(t, svc, Product{Name: "Webcam", SKU: "X", Category: "Electronics", Price: 10, Stock: 5})

	order, err := svc.CreateOrder(ctx, Order{
		Customer: Customer{Name: "Ada", Email: "ada@example.com", Phone: "555", Address: "1 Main"},
		Items: []OrderItem{
			{ProductID: p.ID, Quantity: 2},
			{ProductID: p.ID, Name: "Webcam (gift)", Price: 5.00, Quantity: 1},
		},
		Subtotal: 999, Tax: 999, Total: 999, // caller-supplied totals are ignored
		Status: OrderStatusShipped,
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.Status != OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if order.Date != "2024-03-15" {
		t.Fatalf("date = %q", order.Date)
	}
	if order.Items[0].Name != "Webcam" || order.Items[0].Price != 10 {
		t.Fatalf("item snapshot not filled: %+v", order.Items[0])
	}
	if order.Items[1].Price != 5.00 {
		t.Fatalf("explicit item price overwritten: %+v", order.Items[1])
	}
	if order.Subtotal != 25.00 || order.Tax != 2.00 || order.Shipping != 10.00 || order.Total != 37.00 {
		t.Fatalf("unexpected totals %+v", order)
	}
	if order.StockDeducted {
		t.Fatalf("new orders must not be marked deducted")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.CreateOrder(context.Background(), Order{
		Customer: Customer{Email: "not-an-email"},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"customer.name", "customer.email", "customer.phone", "customer.address", "items"} {
		if _, ok := verr.FieldMessage(field); !ok {
			t.Fatalf("expected %s violation, got %v", field, verr)
		}
	}
}

func TestPermissionGating(t *testing.T) {
	svc := newTestService(t, WithPermissions(RolePermissions(RoleStaff)))
	ctx := context.Background()

	// Staff can manage inventory.
	if _, err := svc.CreateCategory(ctx, Category{Name: "Electronics"}); err != nil {
		t.Fatalf("staff should manage inventory: %v", err)
	}

	// Staff cannot manage suppliers or delete items.
	_, err := svc.CreateSupplier(ctx, Supplier{Name: "Acme", ContactPerson: "Jo", Email: "jo@acme.test", Phone: "555"})
	var pde *domain.PermissionDeniedError
	if !errors.As(err, &pde) {
		t.Fatalf("expected permission denial, got %v", err)
	}
	if pde.Capability != domain.CapManageSuppliers {
		t.Fatalf("capability = %s", pde.Capability)
	}

	p := mustProduct(t, svc, Product{Name: "Webcam", SKU: "X", Category: "Electronics", Price: 10})
	if err := svc.DeleteProduct(ctx, p.ID); !errors.As(err, &pde) {
		t.Fatalf("staff delete should be denied, got %v", err)
	}

	// State is untouched by denied calls.
	if len(svc.Store().ListSuppliers()) != 0 {
		t.Fatalf("denied create must not write")
	}
}

func TestRolePermissionsMatrix(t *testing.T) {
	cases := []struct {
		role    Role
		cap     Capability
		allowed bool
	}{
		{RoleAdmin, domain.CapManageUsers, true},
		{RoleAdmin, domain.CapDeleteItems, true},
		{RoleManager, domain.CapManageUsers, false},
		{RoleManager, domain.CapDeleteItems, true},
		{RoleManager, domain.CapViewReports, true},
		{RoleStaff, domain.CapManageInventory, true},
		{RoleStaff, domain.CapManageSuppliers, false},
		{RoleStaff, domain.CapViewReports, false},
		{Role("unknown"), domain.CapDeleteItems, false},
		{Role("unknown"), domain.CapManageInventory, true},
	}
	for _, tc := range cases {
		if got := RolePermissions(tc.role).HasPermission(tc.cap); got != tc.allowed {
			t.Errorf("%s/%s = %v, want %v", tc.role, tc.cap, got, tc.allowed)
		}
	}
}

func TestSetProductStock(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCategory(t, svc, "Electronics")
	p := mustProduct(t, svc, Product{Name: "Webcam", SKU: "X", Category: "Electronics", Price: 10, Stock: 5})

	updated, err := svc.SetProductStock(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("set stock: %v", err)
	}
	if updated.Stock != 0 || updated.StockStatus() != domain.StockOutOfStock {
		t.Fatalf("unexpected %+v", updated)
	}

	if _, err := svc.SetProductStock(ctx, p.ID, -1); err == nil {
		t.Fatalf("negative stock must be rejected")
	}
}

func TestGenerateSKU(t *testing.T) {
	svc := newTestService(t, WithClock(func() time.Time {
		return time.UnixMilli(1700000001234).UTC()
	}))
	sku := svc.GenerateSKU("Electronics", "Webcam HD")
	if sku != "EL-WEB-1234" {
		t.Fatalf("sku = %q", sku)
	}
	short := svc.GenerateSKU("A", "b")
	if short != "A-B-1234" {
		t.Fatalf("short sku = %q", short)
	}
}

func TestAttachProductImage(t *testing.T) {
	images := blob.NewMemory()
	svc := newTestService(t, WithImageStore(images))
	ctx := context.Background()
	mustCategory(t, svc, "Electronics")
	p := mustProduct(t, svc, Product{Name: "Webcam", SKU: "X", Category: "Electronics", Price: 10})

	updated, info, err := svc.AttachProductImage(ctx, p.ID, "front.jpg", strings.NewReader("jpegbytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if len(updated.Images) != 1 || updated.Images[0] != info.Key {
		t.Fatalf("image key not recorded: %+v vs %s", updated.Images, info.Key)
	}
	if info.Size != int64(len("jpegbytes")) || info.ContentType != "image/jpeg" {
		t.Fatalf("unexpected blob info %+v", info)
	}
	if _, _, err := svc.AttachProductImage(ctx, "ghost", "x.jpg", strings.NewReader("x"), "image/jpeg"); err == nil {
		t.Fatalf("attach to missing product should fail")
	}
}

func TestUpdateOrderRecomputesTotals(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCategory(t, svc, "Electronics")
	p := mustProduct(t, svc, Product{Name: "Webcam", SKU: "X", Category: "Electronics", Price: 10, Stock: 5})

	order, err := svc.CreateOrder(ctx, Order{
		Customer: Customer{Name: "Ada", Email: "ada@example.com", Phone: "555", Address: "1 Main"},
		Items:    []OrderItem{{ProductID: p.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	items := []OrderItem{{ProductID: p.ID, Name: "Webcam", Price: 10, Quantity: 3}}
	updated, err := svc.UpdateOrder(ctx, order.ID, OrderPatch{Items: &items})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Subtotal != 30.00 || updated.Tax != 2.40 || updated.Total != 42.40 {
		t.Fatalf("totals not recomputed: %+v", updated)
	}

	notes := "leave at door"
	updated, err = svc.UpdateOrder(ctx, order.ID, OrderPatch{Notes: &notes})
	if err != nil {
		t.Fatalf("notes update: %v", err)
	}
	if updated.Total != 42.40 {
		t.Fatalf("notes-only update must not change totals: %+v", updated)
	}
}
