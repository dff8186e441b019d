package core

import (
	"context"
	"strings"

	"stockcore/pkg/domain"
)

// cascadeCategoryRename rewrites the category field of every product still
// referencing the old name. Each product is rewritten in its own transaction,
// so an interrupted cascade leaves a mixed but repairable state: re-running
// the rename picks up the products still carrying the old name and skips the
// rest.
func (s *Service) cascadeCategoryRename(ctx context.Context, oldName, newName string) (int, error) {
	var pending []string
	for _, product := range s.store.ListProducts() {
		if strings.EqualFold(product.Category, oldName) {
			pending = append(pending, product.ID)
		}
	}

	renamed := 0
	for _, id := range pending {
		_, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			_, txErr := tx.UpdateProduct(id, func(p *Product) error {
				if !strings.EqualFold(p.Category, oldName) {
					// Already rewritten by a concurrent cascade.
					return nil
				}
				p.Category = newName
				return nil
			})
			return txErr
		})
		if err != nil {
			return renamed, &domain.StoreError{Op: "cascade_rename", Entity: EntityProduct, Err: err}
		}
		renamed++
	}
	return renamed, nil
}
