package core

import (
	"context"
	"fmt"

	"stockcore/pkg/domain"
)

// NewOrderDeletePolicyRule returns the rule blocking deletion of orders in
// completed or shipped status.
func NewOrderDeletePolicyRule() domain.Rule {
	return orderDeletePolicyRule{}
}

type orderDeletePolicyRule struct{}

func (orderDeletePolicyRule) Name() string { return "order_delete_policy" }

func (orderDeletePolicyRule) Evaluate(_ context.Context, _ domain.RuleView, changes []Change) (Result, error) {
	res := Result{}
	for _, change := range changes {
		if change.Entity != EntityOrder || change.Action != ActionDelete {
			continue
		}
		deleted, ok := change.Before.(Order)
		if !ok {
			continue
		}
		if deleted.Status == OrderStatusCompleted || deleted.Status == OrderStatusShipped {
			res.Violations = append(res.Violations, Violation{
				Rule:     "order_delete_policy",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("cannot delete order %s in status %s", deleted.ID, deleted.Status),
				Entity:   EntityOrder,
				EntityID: deleted.ID,
			})
		}
	}
	return res, nil
}
