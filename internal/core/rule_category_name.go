package core

import (
	"context"
	"fmt"
	"strings"

	"stockcore/pkg/domain"
)

// NewCategoryNameRule returns the rule enforcing case-insensitive category
// name uniqueness across the whole collection.
func NewCategoryNameRule() domain.Rule {
	return categoryNameRule{}
}

type categoryNameRule struct{}

func (categoryNameRule) Name() string { return "category_name_unique" }

func (categoryNameRule) Evaluate(_ context.Context, view domain.RuleView, _ []Change) (Result, error) {
	seen := make(map[string]Category)
	res := Result{}
	for _, category := range view.ListCategories() {
		key := strings.ToLower(strings.TrimSpace(category.Name))
		if prior, dup := seen[key]; dup {
			res.Violations = append(res.Violations, Violation{
				Rule:     "category_name_unique",
				Severity: SeverityBlock,
				Message:  fmt.Sprintf("category name %q collides with category %s", category.Name, prior.ID),
				Entity:   EntityCategory,
				EntityID: category.ID,
			})
			continue
		}
		seen[key] = category
	}
	return res, nil
}
