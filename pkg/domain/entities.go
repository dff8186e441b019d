// Package domain defines the persistent entities, change records, and rule
// evaluation primitives shared by the stockcore storage and service layers.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCategory identifies a product category record.
	EntityCategory EntityType = "category"
	// EntitySupplier identifies a supplier record.
	EntitySupplier EntityType = "supplier"
	// EntityProduct identifies a product record.
	EntityProduct EntityType = "product"
	// EntityOrder identifies a customer order record.
	EntityOrder EntityType = "order"
)

// OrderStatus enumerates the caller-driven order workflow states.
type OrderStatus string

// Order statuses. The core does not enforce a strict transition graph;
// completed and cancelled are terminal by policy.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Terminal reports whether the status ends the order workflow.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// SupplierStatus marks whether a supplier is currently usable.
type SupplierStatus string

// Supplier statuses.
const (
	SupplierActive   SupplierStatus = "active"
	SupplierInactive SupplierStatus = "inactive"
)

// StockStatus classifies a product's stock level against its threshold.
type StockStatus string

// Stock classifications surfaced by the derived-state views.
const (
	StockInStock    StockStatus = "in_stock"
	StockLowStock   StockStatus = "low_stock"
	StockOutOfStock StockStatus = "out_of_stock"
)

// ClassifyStock derives a StockStatus from a stock level and low-stock
// threshold. It is a pure function over the two inputs.
func ClassifyStock(stock, threshold int) StockStatus {
	switch {
	case stock == 0:
		return StockOutOfStock
	case stock <= threshold:
		return StockLowStock
	default:
		return StockInStock
	}
}

// Base contains common fields for all domain records. Timestamps serialize as
// ISO-8601 strings, matching the document shapes already in the store.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Category groups products. Products join to a category by name, not id, so a
// rename must cascade to every referencing product.
type Category struct {
	Base
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// Supplier is a source of products, referenced by Product.SupplierID.
type Supplier struct {
	Base
	Name          string         `json:"name"`
	ContactPerson string         `json:"contactPerson"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	Address       string         `json:"address,omitempty"`
	Status        SupplierStatus `json:"status"`
}

// Product is a stocked inventory item. Stock never goes below zero; the
// category join is by name for compatibility with existing records.
type Product struct {
	Base
	Name              string   `json:"name"`
	SKU               string   `json:"sku"`
	Description       string   `json:"description,omitempty"`
	Category          string   `json:"category"`
	Stock             int      `json:"stock"`
	Price             float64  `json:"price"`
	CostPrice         float64  `json:"costPrice"`
	LowStockThreshold int      `json:"lowStockThreshold"`
	SupplierID        string   `json:"supplier,omitempty"`
	Images            []string `json:"images,omitempty"`
}

// StockStatus classifies the product's current stock level.
func (p Product) StockStatus() StockStatus {
	return ClassifyStock(p.Stock, p.LowStockThreshold)
}

// Customer captures the buyer details embedded in an order.
type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// OrderItem is a line item holding a snapshot of the product name and price
// taken at order-creation time. ProductID is the live reference; LegacyID is
// honored as a fallback for records written before the field rename.
type OrderItem struct {
	ProductID string  `json:"productId"`
	LegacyID  string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// ProductRef resolves the referenced product id, falling back to the legacy
// field when ProductID is absent.
func (i OrderItem) ProductRef() string {
	if i.ProductID != "" {
		return i.ProductID
	}
	return i.LegacyID
}

// Order is a customer order. StockDeducted is the idempotency marker guarding
// against double stock deduction when a completion event is redelivered.
type Order struct {
	Base
	Customer      Customer    `json:"customer"`
	Items         []OrderItem `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Tax           float64     `json:"tax"`
	Shipping      float64     `json:"shipping"`
	Total         float64     `json:"total"`
	Status        OrderStatus `json:"status"`
	Date          string      `json:"date"`
	Notes         string      `json:"notes,omitempty"`
	StockDeducted bool        `json:"stockDeducted"`
}

// Change describes a mutation applied to an entity during a transaction.
// ID carries the document id so delete notifications identify their target
// without a Before inspection.
type Change struct {
	Entity EntityType
	ID     string
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the supported document operations.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
