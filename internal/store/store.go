// Package store persists committed budget line items and the external
// entities they link to. Two backends implement Store: SQLite for local use
// and Postgres for deployments.
package store

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"

	"github.com/sells-group/boq-cli/internal/config"
	"github.com/sells-group/boq-cli/internal/model"
)

// ErrEmptyImport is returned when a commit is attempted with no items.
var ErrEmptyImport = eris.New("store: nothing to import")

// ErrScopeMismatch is returned when a referenced category or stage does not
// belong to the importing project. The whole batch is rejected.
var ErrScopeMismatch = eris.New("store: referenced entity does not belong to project")

// ImportItem is one line item in an import batch, with its external
// references already resolved.
type ImportItem struct {
	CategoryItemID string
	StageID        *string
	Code           string
	Description    string
	Unit           string
	Quantity       decimal.Decimal
	Rate           decimal.Decimal
	SectionName    string
}

// Store defines the persistence interface for the BOQ import pipeline.
type Store interface {
	// Import. CommitImport writes the whole batch in one transaction and
	// returns the number of items written; on any validation failure
	// nothing is written.
	CommitImport(ctx context.Context, projectID string, items []ImportItem) (int, error)

	// External entities consumed by the committer. Lookups never cross
	// project scope.
	CreateCategoryItem(ctx context.Context, item model.CategoryItem) (*model.CategoryItem, error)
	GetCategoryItemByType(ctx context.Context, projectID string, cat model.Category) (*model.CategoryItem, error)
	CreateStage(ctx context.Context, stage model.Stage) (*model.Stage, error)
	GetStage(ctx context.Context, projectID, stageID string) (*model.Stage, error)

	// Variance inputs.
	ListBudgetItems(ctx context.Context, projectID string) ([]model.BudgetLineItem, error)
	AddExpense(ctx context.Context, expense model.Expense) (*model.Expense, error)
	ListExpenses(ctx context.Context, projectID string) ([]model.Expense, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store from config.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
