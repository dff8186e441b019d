package core

import "stockcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	OrderStatus        = domain.OrderStatus
	SupplierStatus     = domain.SupplierStatus
	StockStatus        = domain.StockStatus
	Severity           = domain.Severity
	Base               = domain.Base
	Category           = domain.Category
	Supplier           = domain.Supplier
	Product            = domain.Product
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	Customer           = domain.Customer
	Capability         = domain.Capability
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Snapshot           = domain.Snapshot
)

const (
	EntityCategory = domain.EntityCategory
	EntitySupplier = domain.EntitySupplier
	EntityProduct  = domain.EntityProduct
	EntityOrder    = domain.EntityOrder
)

const (
	OrderStatusPending   = domain.OrderStatusPending
	OrderStatusConfirmed = domain.OrderStatusConfirmed
	OrderStatusShipped   = domain.OrderStatusShipped
	OrderStatusDelivered = domain.OrderStatusDelivered
	OrderStatusCompleted = domain.OrderStatusCompleted
	OrderStatusCancelled = domain.OrderStatusCancelled
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

// NewRulesEngine re-exports the domain constructor for callers wiring custom rule sets.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
