package projection

import (
	"sort"
	"strings"
	"time"

	"stockcore/pkg/domain"
)

// LowStockProducts returns projected products at or below their low-stock
// threshold but not yet exhausted.
func (p *Projection) LowStockProducts() []domain.Product {
	var out []domain.Product
	for _, pr := range p.Products() {
		if pr.StockStatus() == domain.StockLowStock {
			out = append(out, pr)
		}
	}
	return out
}

// OutOfStockProducts returns projected products with zero stock.
func (p *Projection) OutOfStockProducts() []domain.Product {
	var out []domain.Product
	for _, pr := range p.Products() {
		if pr.StockStatus() == domain.StockOutOfStock {
			out = append(out, pr)
		}
	}
	return out
}

// CategoryAlerts groups alerting products by category name.
type CategoryAlerts struct {
	Category   string           `json:"category"`
	LowStock   []domain.Product `json:"lowStock,omitempty"`
	OutOfStock []domain.Product `json:"outOfStock,omitempty"`
}

// AlertsByCategory returns the per-category grouping of low and out-of-stock
// products, sorted by category name. Categories without alerts are omitted.
func (p *Projection) AlertsByCategory() []CategoryAlerts {
	grouped := make(map[string]*CategoryAlerts)
	for _, pr := range p.Products() {
		status := pr.StockStatus()
		if status == domain.StockInStock {
			continue
		}
		alerts, ok := grouped[pr.Category]
		if !ok {
			alerts = &CategoryAlerts{Category: pr.Category}
			grouped[pr.Category] = alerts
		}
		if status == domain.StockOutOfStock {
			alerts.OutOfStock = append(alerts.OutOfStock, pr)
		} else {
			alerts.LowStock = append(alerts.LowStock, pr)
		}
	}
	out := make([]CategoryAlerts, 0, len(grouped))
	for _, alerts := range grouped {
		out = append(out, *alerts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// ProductFilter narrows SearchProducts results. Zero values mean no
// constraint on that dimension.
type ProductFilter struct {
	Query       string             // matches name, SKU, or description, case-insensitive
	Category    string             // exact category name, case-insensitive
	SupplierID  string             // exact supplier id
	StockStatus domain.StockStatus // derived status filter
	MinPrice    float64            // inclusive lower price bound
	MaxPrice    float64            // inclusive upper price bound, 0 means unbounded
	CreatedFrom time.Time          // inclusive creation-time bound, zero means unbounded
	CreatedTo   time.Time          // inclusive creation-time bound, zero means unbounded
}

// SearchProducts returns projected products matching every set filter
// dimension, sorted by name.
func (p *Projection) SearchProducts(filter ProductFilter) []domain.Product {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	var out []domain.Product
	for _, pr := range p.Products() {
		if query != "" &&
			!strings.Contains(strings.ToLower(pr.Name), query) &&
			!strings.Contains(strings.ToLower(pr.SKU), query) &&
			!strings.Contains(strings.ToLower(pr.Description), query) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(pr.Category, filter.Category) {
			continue
		}
		if filter.SupplierID != "" && pr.SupplierID != filter.SupplierID {
			continue
		}
		if filter.StockStatus != "" && pr.StockStatus() != filter.StockStatus {
			continue
		}
		if pr.Price < filter.MinPrice {
			continue
		}
		if filter.MaxPrice > 0 && pr.Price > filter.MaxPrice {
			continue
		}
		if !filter.CreatedFrom.IsZero() && pr.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && pr.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		out = append(out, pr)
	}
	return out
}

// SupplierStats aggregates per-supplier product counts and inventory value.
type SupplierStats struct {
	SupplierID   string  `json:"supplierId"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	ProductCount int     `json:"productCount"`
	StockValue   float64 `json:"stockValue"`
	LastOrder    string  `json:"lastOrder,omitempty"`
}

// SupplierStats returns aggregates for every supplier, sorted by name. Stock
// value is cost-based when a cost price is set, price-based otherwise.
// LastOrder is the most recent order date touching any of the supplier's
// products.
func (p *Projection) SupplierStats() []SupplierStats {
	byID := make(map[string]*SupplierStats)
	for _, s := range p.Suppliers() {
		byID[s.ID] = &SupplierStats{SupplierID: s.ID, Name: s.Name, Status: string(s.Status)}
	}
	supplierOf := make(map[string]string)
	for _, pr := range p.Products() {
		supplierOf[pr.ID] = pr.SupplierID
		stats, ok := byID[pr.SupplierID]
		if !ok {
			continue
		}
		stats.ProductCount++
		unit := pr.CostPrice
		if unit == 0 {
			unit = pr.Price
		}
		stats.StockValue = domain.Round2(stats.StockValue + unit*float64(pr.Stock))
	}
	for _, o := range p.Orders() {
		for _, item := range o.Items {
			stats, ok := byID[supplierOf[item.ProductRef()]]
			if !ok {
				continue
			}
			if o.Date > stats.LastOrder {
				stats.LastOrder = o.Date
			}
		}
	}
	out := make([]SupplierStats, 0, len(byID))
	for _, stats := range byID {
		out = append(out, *stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dashboard is a point-in-time summary across all collections.
type Dashboard struct {
	TotalProducts   int     `json:"totalProducts"`
	TotalCategories int     `json:"totalCategories"`
	TotalSuppliers  int     `json:"totalSuppliers"`
	TotalOrders     int     `json:"totalOrders"`
	PendingOrders   int     `json:"pendingOrders"`
	ActiveOrders    int     `json:"activeOrders"`
	CompletedOrders int     `json:"completedOrders"`
	LowStockCount   int     `json:"lowStockCount"`
	OutOfStockCount int     `json:"outOfStockCount"`
	InventoryValue  float64 `json:"inventoryValue"`
	OrderRevenue    float64 `json:"orderRevenue"`
}

// DashboardSnapshot computes the dashboard summary from the current
// projection. Revenue counts completed orders only.
func (p *Projection) DashboardSnapshot() Dashboard {
	d := Dashboard{
		TotalCategories: len(p.Categories()),
		TotalSuppliers:  len(p.Suppliers()),
	}
	for _, pr := range p.Products() {
		d.TotalProducts++
		switch pr.StockStatus() {
		case domain.StockLowStock:
			d.LowStockCount++
		case domain.StockOutOfStock:
			d.OutOfStockCount++
		}
		d.InventoryValue = domain.Round2(d.InventoryValue + pr.Price*float64(pr.Stock))
	}
	for _, o := range p.Orders() {
		d.TotalOrders++
		switch o.Status {
		case domain.OrderStatusPending:
			d.PendingOrders++
			d.ActiveOrders++
		case domain.OrderStatusConfirmed, domain.OrderStatusShipped:
			d.ActiveOrders++
		case domain.OrderStatusCompleted:
			d.CompletedOrders++
			d.OrderRevenue = domain.Round2(d.OrderRevenue + o.Total)
		}
	}
	return d
}
