package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boq-cli/internal/config"
	"github.com/sells-group/boq-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedProject(t *testing.T, s *SQLiteStore, projectID string) (catID, stageID string) {
	t.Helper()
	ctx := context.Background()

	cat, err := s.CreateCategoryItem(ctx, model.CategoryItem{
		ProjectID: projectID,
		Name:      "Materials",
		Category:  model.CategoryMaterial,
	})
	require.NoError(t, err)

	stage, err := s.CreateStage(ctx, model.Stage{ProjectID: projectID, Name: "Foundation"})
	require.NoError(t, err)

	return cat.ID, stage.ID
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSQLite_CommitImport(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	catID, stageID := seedProject(t, s, "proj-1")

	n, err := s.CommitImport(ctx, "proj-1", []ImportItem{
		{CategoryItemID: catID, StageID: &stageID, Description: "Cement", Unit: "bag", Quantity: dec("100"), Rate: dec("450.50"), SectionName: "Concrete Work"},
		{CategoryItemID: catID, Description: "Sand", Unit: "cum", Quantity: dec("12.5"), Rate: dec("1800")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := s.ListBudgetItems(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Cement", items[0].Description)
	assert.True(t, items[0].Quantity.Equal(dec("100")))
	assert.True(t, items[0].Rate.Equal(dec("450.50")))
	require.NotNil(t, items[0].StageID)
	assert.Equal(t, stageID, *items[0].StageID)
	assert.Nil(t, items[1].StageID)
}

func TestSQLite_CommitImport_PreservesBatchOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	catID, _ := seedProject(t, s, "proj-1")

	descriptions := []string{"Excavation", "Backfilling", "Cement", "Sand", "Mason"}
	batch := make([]ImportItem, len(descriptions))
	for i, d := range descriptions {
		batch[i] = ImportItem{CategoryItemID: catID, Description: d, Unit: "unit", Quantity: dec("1"), Rate: dec("1")}
	}

	n, err := s.CommitImport(ctx, "proj-1", batch)
	require.NoError(t, err)
	require.Equal(t, len(descriptions), n)

	// All rows share one created_at; read-back still follows batch order.
	items, err := s.ListBudgetItems(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, items, len(descriptions))
	for i, d := range descriptions {
		assert.Equal(t, d, items[i].Description)
	}
}

func TestSQLite_CommitImport_Empty(t *testing.T) {
	s := newTestStore(t)

	n, err := s.CommitImport(context.Background(), "proj-1", nil)
	assert.ErrorIs(t, err, ErrEmptyImport)
	assert.Equal(t, 0, n)
}

func TestSQLite_CommitImport_ScopeMismatchIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	catID, _ := seedProject(t, s, "proj-1")
	_, otherStage := seedProject(t, s, "proj-2")

	// One invalid stage reference rejects the entire batch.
	n, err := s.CommitImport(ctx, "proj-1", []ImportItem{
		{CategoryItemID: catID, Description: "Cement", Unit: "bag", Quantity: dec("100"), Rate: dec("450")},
		{CategoryItemID: catID, StageID: &otherStage, Description: "Sand", Unit: "cum", Quantity: dec("5"), Rate: dec("1800")},
	})
	assert.ErrorIs(t, err, ErrScopeMismatch)
	assert.Equal(t, 0, n)

	items, err := s.ListBudgetItems(ctx, "proj-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSQLite_CommitImport_ForeignCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	foreignCat, _ := seedProject(t, s, "proj-2")

	_, err := s.CommitImport(ctx, "proj-1", []ImportItem{
		{CategoryItemID: foreignCat, Description: "Cement", Unit: "bag", Quantity: dec("1"), Rate: dec("1")},
	})
	assert.ErrorIs(t, err, ErrScopeMismatch)
}

func TestSQLite_GetCategoryItemByType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	catID, _ := seedProject(t, s, "proj-1")

	got, err := s.GetCategoryItemByType(ctx, "proj-1", model.CategoryMaterial)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, catID, got.ID)

	// Scoped: another project sees nothing.
	got, err = s.GetCategoryItemByType(ctx, "proj-9", model.CategoryMaterial)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetCategoryItemByType(ctx, "proj-1", model.CategoryLabour)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_GetStage_Scoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, stageID := seedProject(t, s, "proj-1")

	got, err := s.GetStage(ctx, "proj-1", stageID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Foundation", got.Name)

	got, err = s.GetStage(ctx, "proj-2", stageID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_Expenses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	catID, _ := seedProject(t, s, "proj-1")

	_, err := s.CommitImport(ctx, "proj-1", []ImportItem{
		{CategoryItemID: catID, Description: "Cement", Unit: "bag", Quantity: dec("10"), Rate: dec("100")},
	})
	require.NoError(t, err)

	items, err := s.ListBudgetItems(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = s.AddExpense(ctx, model.Expense{
		ProjectID:    "proj-1",
		BudgetItemID: items[0].ID,
		Description:  "First delivery",
		Quantity:     dec("1"),
		Rate:         dec("40"),
	})
	require.NoError(t, err)

	expenses, err := s.ListExpenses(ctx, "proj-1")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.True(t, expenses[0].Rate.Equal(dec("40")))
	assert.Equal(t, items[0].ID, expenses[0].BudgetItemID)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mongodb"})
	assert.Error(t, err)
}
