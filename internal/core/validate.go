package core

import (
	"regexp"
	"strings"

	"stockcore/pkg/domain"
)

// Matches the loose address check used by existing records: something, an @,
// something, a dot, something.
var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const (
	categoryNameMinLen = 2
	categoryNameMaxLen = 50
	categoryDescMaxLen = 200
)

// CategoryPatch is a partial update to a category. Nil fields are untouched.
type CategoryPatch struct {
	Name        *string
	Description *string
	Color       *string
}

func (p CategoryPatch) apply(c *Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
}

// SupplierPatch is a partial update to a supplier.
type SupplierPatch struct {
	Name          *string
	ContactPerson *string
	Email         *string
	Phone         *string
	Address       *string
	Status        *SupplierStatus
}

func (p SupplierPatch) apply(s *Supplier) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.ContactPerson != nil {
		s.ContactPerson = *p.ContactPerson
	}
	if p.Email != nil {
		s.Email = *p.Email
	}
	if p.Phone != nil {
		s.Phone = *p.Phone
	}
	if p.Address != nil {
		s.Address = *p.Address
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
}

// ProductPatch is a partial update to a product.
type ProductPatch struct {
	Name              *string
	SKU               *string
	Description       *string
	Category          *string
	Stock             *int
	Price             *float64
	CostPrice         *float64
	LowStockThreshold *int
	SupplierID        *string
	Images            *[]string
}

func (p ProductPatch) apply(pr *Product) {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.SKU != nil {
		pr.SKU = *p.SKU
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.Category != nil {
		pr.Category = *p.Category
	}
	if p.Stock != nil {
		pr.Stock = *p.Stock
	}
	if p.Price != nil {
		pr.Price = *p.Price
	}
	if p.CostPrice != nil {
		pr.CostPrice = *p.CostPrice
	}
	if p.LowStockThreshold != nil {
		pr.LowStockThreshold = *p.LowStockThreshold
	}
	if p.SupplierID != nil {
		pr.SupplierID = *p.SupplierID
	}
	if p.Images != nil {
		pr.Images = append([]string(nil), (*p.Images)...)
	}
}

// OrderPatch is a partial update to an order. Status changes go through
// UpdateOrderStatus so the reconciler observes them; totals are recomputed
// whenever items change.
type OrderPatch struct {
	Customer *Customer
	Items    *[]OrderItem
	Notes    *string
}

func (p OrderPatch) apply(o *Order) {
	if p.Customer != nil {
		o.Customer = *p.Customer
	}
	if p.Items != nil {
		o.Items = append([]OrderItem(nil), (*p.Items)...)
	}
	if p.Notes != nil {
		o.Notes = *p.Notes
	}
}

// validateCategory normalizes and checks a proposed category against the
// current view. selfID excludes the record being edited from the uniqueness
// check. The returned record has its name trimmed.
func validateCategory(c Category, view domain.RuleView, selfID string) (Category, error) {
	verr := &domain.ValidationError{Entity: EntityCategory}
	c.Name = strings.TrimSpace(c.Name)
	switch {
	case c.Name == "":
		verr.Add("name", "category name is required")
	case len(c.Name) < categoryNameMinLen:
		verr.Add("name", "category name must be at least 2 characters")
	case len(c.Name) > categoryNameMaxLen:
		verr.Add("name", "category name must be less than 50 characters")
	default:
		for _, existing := range view.ListCategories() {
			if existing.ID == selfID {
				continue
			}
			if strings.EqualFold(existing.Name, c.Name) {
				verr.Add("name", "a category with this name already exists")
				break
			}
		}
	}
	if len(c.Description) > categoryDescMaxLen {
		verr.Add("description", "description must be less than 200 characters")
	}
	if verr.Empty() {
		return c, nil
	}
	return Category{}, verr
}

func validateSupplier(s Supplier) (Supplier, error) {
	verr := &domain.ValidationError{Entity: EntitySupplier}
	if strings.TrimSpace(s.Name) == "" {
		verr.Add("name", "supplier name is required")
	}
	email := strings.TrimSpace(s.Email)
	switch {
	case email == "":
		verr.Add("email", "email is required")
	case !emailPattern.MatchString(email):
		verr.Add("email", "email is invalid")
	}
	if strings.TrimSpace(s.Phone) == "" {
		verr.Add("phone", "phone number is required")
	}
	if strings.TrimSpace(s.ContactPerson) == "" {
		verr.Add("contactPerson", "contact person is required")
	}
	if s.Status != "" && s.Status != domain.SupplierActive && s.Status != domain.SupplierInactive {
		verr.Add("status", "status must be active or inactive")
	}
	if verr.Empty() {
		return s, nil
	}
	return Supplier{}, verr
}

func validateProduct(p Product) (Product, error) {
	verr := &domain.ValidationError{Entity: EntityProduct}
	if strings.TrimSpace(p.Name) == "" {
		verr.Add("name", "product name is required")
	}
	if strings.TrimSpace(p.SKU) == "" {
		verr.Add("sku", "SKU is required")
	}
	if strings.TrimSpace(p.Category) == "" {
		verr.Add("category", "category is required")
	}
	if p.Price <= 0 {
		verr.Add("price", "price must be greater than 0")
	}
	if p.CostPrice < 0 {
		verr.Add("costPrice", "cost price cannot be negative")
	}
	if p.Stock < 0 {
		verr.Add("stock", "stock cannot be negative")
	}
	if p.LowStockThreshold < 0 {
		verr.Add("lowStockThreshold", "threshold cannot be negative")
	}
	if verr.Empty() {
		return p, nil
	}
	return Product{}, verr
}

// validateOrder checks customer fields and line items. Totals are not checked
// here: they are recomputed from the items and never trusted from the caller.
func validateOrder(o Order) (Order, error) {
	verr := &domain.ValidationError{Entity: EntityOrder}
	if strings.TrimSpace(o.Customer.Name) == "" {
		verr.Add("customer.name", "customer name is required")
	}
	email := strings.TrimSpace(o.Customer.Email)
	switch {
	case email == "":
		verr.Add("customer.email", "customer email is required")
	case !emailPattern.MatchString(email):
		verr.Add("customer.email", "email is invalid")
	}
	if strings.TrimSpace(o.Customer.Phone) == "" {
		verr.Add("customer.phone", "customer phone is required")
	}
	if strings.TrimSpace(o.Customer.Address) == "" {
		verr.Add("customer.address", "customer address is required")
	}
	if len(o.Items) == 0 {
		verr.Add("items", "at least one product must be added to the order")
	}
	for _, item := range o.Items {
		if item.Quantity < 1 {
			verr.Add("items", "item quantity must be at least 1")
			break
		}
	}
	if verr.Empty() {
		return o, nil
	}
	return Order{}, verr
}
