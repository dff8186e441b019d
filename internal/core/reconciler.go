package core

import (
	"context"
	"errors"
	"fmt"

	"stockcore/pkg/domain"
)

// ItemOutcomeStatus describes what happened to one order line during stock
// reconciliation.
type ItemOutcomeStatus string

const (
	// ItemDeducted means the line's quantity was subtracted from the product.
	ItemDeducted ItemOutcomeStatus = "deducted"
	// ItemClamped means the deduction would have gone negative and stock was
	// floored at zero instead.
	ItemClamped ItemOutcomeStatus = "clamped"
	// ItemMissingProduct means the line's product reference resolved to
	// nothing and the line was skipped.
	ItemMissingProduct ItemOutcomeStatus = "missing_product"
	// ItemFailed means the stock write failed after retriable handling.
	ItemFailed ItemOutcomeStatus = "failed"
)

// ItemOutcome reports the reconciliation result for a single order line.
type ItemOutcome struct {
	ProductID string            `json:"productId"`
	Quantity  int               `json:"quantity"`
	Previous  int               `json:"previous"`
	Remaining int               `json:"remaining"`
	Status    ItemOutcomeStatus `json:"status"`
	Error     string            `json:"error,omitempty"`
}

// ReconciliationReport summarizes a stock reconciliation pass for an order.
type ReconciliationReport struct {
	OrderID         string        `json:"orderId"`
	Applied         bool          `json:"applied"`
	AlreadyDeducted bool          `json:"alreadyDeducted"`
	Items           []ItemOutcome `json:"items,omitempty"`
}

// UpdateOrderStatus transitions an order to the given status. Entering the
// completed status for the first time deducts each line's quantity from the
// referenced product's stock; the deducted marker is written in the same
// order update as the status, so repeated completions never deduct twice.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) (Order, *ReconciliationReport, error) {
	ctx, done := s.instrument(ctx, "update_order_status")
	var (
		updated   Order
		reconcile bool
	)
	err := func() error {
		if err := s.require(domain.CapManageOrders); err != nil {
			return err
		}
		if !validOrderStatus(status) {
			verr := &domain.ValidationError{Entity: EntityOrder}
			verr.Add("status", fmt.Sprintf("unknown status %q", status))
			return verr
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateOrder(id, func(o *Order) error {
				reconcile = status == OrderStatusCompleted && !o.StockDeducted
				o.Status = status
				if reconcile {
					o.StockDeducted = true
				}
				return nil
			})
			return txErr
		})
		return err
	}()
	if err != nil {
		done(err)
		return Order{}, nil, err
	}

	report := &ReconciliationReport{OrderID: id}
	if status == OrderStatusCompleted && !reconcile {
		report.AlreadyDeducted = true
	}
	if reconcile {
		report.Applied = true
		report.Items = s.deductOrderStock(ctx, updated)
	}
	done(nil)
	s.logger.Info("order status updated", "id", id, "status", status, "deducted", report.Applied)
	return updated, report, nil
}

func validOrderStatus(status OrderStatus) bool {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// deductOrderStock applies each line's deduction in its own transaction.
// Missing products and failed writes are reported and skipped rather than
// aborting the batch; the order stays completed either way.
func (s *Service) deductOrderStock(ctx context.Context, order Order) []ItemOutcome {
	outcomes := make([]ItemOutcome, 0, len(order.Items))
	for _, item := range order.Items {
		outcome := ItemOutcome{ProductID: item.ProductRef(), Quantity: item.Quantity}
		if outcome.ProductID == "" {
			outcome.Status = ItemMissingProduct
			outcome.Error = "order line has no product reference"
			s.logger.Warn("stock deduction skipped", "order", order.ID, "reason", outcome.Error)
			outcomes = append(outcomes, outcome)
			continue
		}
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, txErr := tx.UpdateProduct(outcome.ProductID, func(p *Product) error {
				outcome.Previous = p.Stock
				remaining := p.Stock - item.Quantity
				if remaining < 0 {
					remaining = 0
					outcome.Status = ItemClamped
				} else {
					outcome.Status = ItemDeducted
				}
				outcome.Remaining = remaining
				p.Stock = remaining
				return nil
			})
			return txErr
		})
		if err != nil {
			var notFound *domain.NotFoundError
			if errors.As(err, &notFound) {
				outcome.Status = ItemMissingProduct
			} else {
				outcome.Status = ItemFailed
			}
			outcome.Error = err.Error()
			s.logger.Warn("stock deduction skipped", "order", order.ID, "product", outcome.ProductID, "error", err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
