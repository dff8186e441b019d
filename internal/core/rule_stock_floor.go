package core

import (
	"context"
	"fmt"

	"stockcore/pkg/domain"
)

// NewStockFloorRule returns the rule blocking any product write that would
// leave stock below zero. The reconciler clamps deductions before writing, so
// a violation here indicates a caller bypassing the clamp.
func NewStockFloorRule() domain.Rule {
	return stockFloorRule{}
}

type stockFloorRule struct{}

func (stockFloorRule) Name() string { return "stock_floor" }

func (stockFloorRule) Evaluate(_ context.Context, _ domain.RuleView, changes []Change) (Result, error) {
	res := Result{}
	for _, change := range changes {
		if change.Entity != EntityProduct || change.Action == ActionDelete {
			continue
		}
		product, ok := change.After.(Product)
		if !ok {
			continue
		}
		if product.Stock < 0 {
			res.Violations = append(res.Violations, Violation{
				Rule:     "stock_floor",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("product %s (%s) stock would become negative: %d", product.Name, product.ID, product.Stock),
				Entity:   EntityProduct,
				EntityID: product.ID,
			})
		}
	}
	return res, nil
}
