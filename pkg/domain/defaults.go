package domain

// DefaultCategories returns the starter category set seeded into an empty
// store. Colors are stable hex values used by downstream UIs.
func DefaultCategories() []Category {
	names := []string{
		"Electronics",
		"Clothing",
		"Food & Beverages",
		"Books",
		"Home & Garden",
		"Sports",
		"Toys",
		"Health & Beauty",
		"Automotive",
		"Other",
	}
	colors := []string{
		"#007bff",
		"#28a745",
		"#dc3545",
		"#ffc107",
		"#17a2b8",
		"#6f42c1",
		"#e83e8c",
		"#fd7e14",
		"#20c997",
		"#6c757d",
	}
	out := make([]Category, 0, len(names))
	for i, name := range names {
		out = append(out, Category{
			Name:        name,
			Description: name + " products",
			Color:       colors[i],
		})
	}
	return out
}
