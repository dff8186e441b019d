package core

import (
	"context"
	"fmt"
	"strings"

	"stockcore/pkg/domain"
)

// NewCategoryReferenceRule returns the rule blocking deletion of a category
// that products still reference by name.
func NewCategoryReferenceRule() domain.Rule {
	return categoryReferenceRule{}
}

type categoryReferenceRule struct{}

func (categoryReferenceRule) Name() string { return "category_references" }

func (categoryReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []Change) (Result, error) {
	res := Result{}
	for _, change := range changes {
		if change.Entity != EntityCategory || change.Action != ActionDelete {
			continue
		}
		deleted, ok := change.Before.(Category)
		if !ok {
			continue
		}
		dependents := 0
		for _, product := range view.ListProducts() {
			if strings.EqualFold(product.Category, deleted.Name) {
				dependents++
			}
		}
		if dependents > 0 {
			res.Violations = append(res.Violations, Violation{
				Rule:     "category_references",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("cannot delete category %q: in use by %d products", deleted.Name, dependents),
				Entity:   EntityCategory,
				EntityID: deleted.ID,
			})
		}
	}
	return res, nil
}
