// Package importer turns a reviewed session into a persisted import batch.
// It resolves category references, converts review floats to exact decimals,
// and hands the batch to the store for an all-or-nothing commit.
package importer

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/boq-cli/internal/model"
	"github.com/sells-group/boq-cli/internal/review"
	"github.com/sells-group/boq-cli/internal/store"
)

// ErrNothingSelected is returned when a commit is attempted with no selected
// items.
var ErrNothingSelected = eris.New("importer: no items selected for import")

// Commit persists the selected items of a review session. Category
// references are resolved per distinct category before anything is written;
// a category with no backing entity in the project aborts the whole commit.
// Returns the number of items written.
func Commit(ctx context.Context, st store.Store, session review.Session) (int, error) {
	selected := session.Selected()
	if len(selected) == 0 {
		return 0, ErrNothingSelected
	}

	categoryIDs, err := resolveCategories(ctx, st, session.ProjectID, selected)
	if err != nil {
		return 0, err
	}

	batch := make([]store.ImportItem, len(selected))
	for i, it := range selected {
		batch[i] = store.ImportItem{
			CategoryItemID: categoryIDs[it.Category],
			Code:           it.Code,
			Description:    it.Description,
			Unit:           it.Unit,
			Quantity:       decimal.NewFromFloat(it.Quantity),
			Rate:           decimal.NewFromFloat(it.Rate),
			SectionName:    it.SectionName,
		}
		if it.StageID != "" {
			stageID := it.StageID
			batch[i].StageID = &stageID
		}
	}

	n, err := st.CommitImport(ctx, session.ProjectID, batch)
	if err != nil {
		return 0, eris.Wrap(err, "importer: commit")
	}

	zap.S().Infow("import committed",
		"project_id", session.ProjectID,
		"items", n,
	)
	return n, nil
}

// resolveCategories maps each distinct category appearing in the selection to
// its backing category-item ID within the project.
func resolveCategories(ctx context.Context, st store.Store, projectID string, items []review.Item) (map[model.Category]string, error) {
	ids := make(map[model.Category]string)
	for _, it := range items {
		if _, ok := ids[it.Category]; ok {
			continue
		}
		cat, err := st.GetCategoryItemByType(ctx, projectID, it.Category)
		if err != nil {
			return nil, eris.Wrapf(err, "importer: resolve category %s", it.Category)
		}
		if cat == nil {
			return nil, eris.Errorf("importer: project has no category item for %s", it.Category)
		}
		ids[it.Category] = cat.ID
	}
	return ids, nil
}
