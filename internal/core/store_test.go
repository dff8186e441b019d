package core

import (
	"context"
	"errors"
	"testing"

	"stockcore/pkg/domain"
)

func seedCategory(t *testing.T, store *MemoryStore, name string) Category {
	t.Helper()
	var created Category
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var txErr error
		created, txErr = tx.CreateCategory(Category{Name: name, Color: "#007bff"})
		return txErr
	})
	if err != nil {
		t.Fatalf("seed category %s: %v", name, err)
	}
	return created
}

func seedProduct(t *testing.T, store *MemoryStore, p Product) Product {
	t.Helper()
	var created Product
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var txErr error
		created, txErr = tx.CreateProduct(p)
		return txErr
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", p.Name, err)
	}
	return created
}

func TestStoreCRUDRoundTrip(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())
	ctx := context.Background()

	cat := seedCategory(t, store, "Electronics")
	if cat.ID == "" || cat.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps on create, got %+v", cat)
	}

	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, txErr := tx.UpdateCategory(cat.ID, func(c *Category) error {
			c.Description = "Gadgets"
			return nil
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, ok := store.GetCategory(cat.ID)
	if !ok || got.Description != "Gadgets" {
		t.Fatalf("expected committed update, got %+v ok=%v", got, ok)
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Fatalf("updatedAt should advance: %+v", got)
	}

	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteCategory(cat.ID)
	})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.GetCategory(cat.ID); ok {
		t.Fatalf("category should be gone")
	}
}

func TestStoreTransactionRollbackOnError(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if _, txErr := tx.CreateCategory(Category{Name: "Doomed"}); txErr != nil {
			return txErr
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if n := len(store.ListCategories()); n != 0 {
		t.Fatalf("rollback should discard writes, found %d", n)
	}
}

func TestStoreUpdateMissingReturnsNotFound(t *testing.T) {
	store := NewMemoryStore(nil)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, txErr := tx.UpdateProduct("absent", func(p *Product) error { return nil })
		return txErr
	})
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Entity != EntityProduct || nf.ID != "absent" {
		t.Fatalf("unexpected not-found detail %+v", nf)
	}
}

func TestDuplicateCategoryNameBlocked(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())
	seedCategory(t, store, "Books")

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, txErr := tx.CreateCategory(Category{Name: "books"})
		return txErr
	})
	var rve RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if !rve.Result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	if n := len(store.ListCategories()); n != 1 {
		t.Fatalf("blocked commit must not mutate state, found %d categories", n)
	}
}

func TestCategoryDeleteBlockedWhileReferenced(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())
	cat := seedCategory(t, store, "Electronics")
	seedProduct(t, store, Product{Name: "Webcam", SKU: "EL-WEB-0001", Category: "Electronics", Price: 20, Stock: 4})

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteCategory(cat.ID)
	})
	var rve RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if _, ok := store.GetCategory(cat.ID); !ok {
		t.Fatalf("category must survive a blocked delete")
	}
}

func TestNegativeStockBlocked(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())
	seedCategory(t, store, "Electronics")
	p := seedProduct(t, store, Product{Name: "Webcam", SKU: "EL-WEB-0001", Category: "Electronics", Price: 20, Stock: 4})

	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, txErr := tx.UpdateProduct(p.ID, func(pr *Product) error {
			pr.Stock = -1
			return nil
		})
		return txErr
	})
	var rve RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	got, _ := store.GetProduct(p.ID)
	if got.Stock != 4 {
		t.Fatalf("stock should be unchanged, got %d", got.Stock)
	}
}

func TestOrderDeletePolicy(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())
	ctx := context.Background()

	newOrder := func(status OrderStatus) Order {
		var created Order
		_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			created, txErr = tx.CreateOrder(Order{
				Customer: Customer{Name: "Ada", Email: "ada@example.com"},
				Items:    []OrderItem{{ProductID: "p1", Price: 5, Quantity: 1}},
				Status:   status,
			})
			return txErr
		})
		if err != nil {
			t.Fatalf("create order: %v", err)
		}
		return created
	}

	blocked := []OrderStatus{OrderStatusCompleted, OrderStatusShipped}
	for _, status := range blocked {
		o := newOrder(status)
		_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			return tx.DeleteOrder(o.ID)
		})
		var rve RuleViolationError
		if !errors.As(err, &rve) {
			t.Fatalf("delete of %s order should be blocked, got %v", status, err)
		}
	}

	o := newOrder(OrderStatusPending)
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeleteOrder(o.ID)
	}); err != nil {
		t.Fatalf("pending order should be deletable: %v", err)
	}
}

func TestSubscribeDeliversCommittedChangesInOrder(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	var seen []Change
	unsub := store.Subscribe(EntityProduct, func(changes []Change) {
		seen = append(seen, changes...)
	})
	defer unsub()

	p := seedProduct(t, store, Product{Name: "Webcam", SKU: "X", Category: "Electronics", Price: 20, Stock: 4})
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, txErr := tx.UpdateProduct(p.ID, func(pr *Product) error {
			pr.Stock = 2
			return nil
		})
		return txErr
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(seen))
	}
	if seen[0].Action != ActionCreate || seen[1].Action != ActionUpdate {
		t.Fatalf("changes out of order: %+v", seen)
	}
	if seen[1].ID != p.ID {
		t.Fatalf("change id = %q, want %q", seen[1].ID, p.ID)
	}
	after, ok := seen[1].After.(Product)
	if !ok || after.Stock != 2 {
		t.Fatalf("unexpected after payload %+v", seen[1].After)
	}

	unsub()
	seedProduct(t, store, Product{Name: "Mouse", SKU: "Y", Category: "Electronics", Price: 5, Stock: 1})
	if len(seen) != 2 {
		t.Fatalf("unsubscribed handler must not fire, got %d changes", len(seen))
	}
}

func TestSubscribeRollbackEmitsNothing(t *testing.T) {
	store := NewMemoryStore(nil)
	fired := 0
	unsub := store.Subscribe(EntityCategory, func([]Change) { fired++ })
	defer unsub()

	boom := errors.New("boom")
	_, _ = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateCategory(Category{Name: "Doomed"}); err != nil {
			return err
		}
		return boom
	})
	if fired != 0 {
		t.Fatalf("aborted transaction must not notify, fired %d", fired)
	}
}

func TestExportImportState(t *testing.T) {
	store := NewMemoryStore(nil)
	seedCategory(t, store, "Electronics")
	seedProduct(t, store, Product{Name: "Webcam", SKU: "X", Category: "Electronics", Price: 20, Stock: 4})

	snap := store.ExportState()
	if len(snap.Categories) != 1 || len(snap.Products) != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	restored := NewMemoryStore(nil)
	fired := 0
	unsub := restored.Subscribe(EntityProduct, func([]Change) { fired++ })
	defer unsub()
	restored.ImportState(snap)
	if fired != 0 {
		t.Fatalf("import must not notify subscribers")
	}
	if len(restored.ListProducts()) != 1 || len(restored.ListCategories()) != 1 {
		t.Fatalf("import should replace state")
	}
}

func TestViewSeesCommittedSnapshot(t *testing.T) {
	store := NewMemoryStore(nil)
	cat := seedCategory(t, store, "Electronics")
	err := store.View(context.Background(), func(view domain.RuleView) error {
		if _, ok := view.FindCategory(cat.ID); !ok {
			t.Fatalf("view should contain committed category")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}
