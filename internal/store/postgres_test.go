package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/boq-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetCategoryItemByType_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, project_id, name, category FROM category_items`).
		WithArgs("proj-1", "LABOUR").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetCategoryItemByType(context.Background(), "proj-1", model.CategoryLabour)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetStage_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, project_id, name FROM stages`).
		WithArgs("stage-1", "proj-1").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetStage(context.Background(), "proj-1", "stage-1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitImport_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	n, err := s.CommitImport(context.Background(), "proj-1", nil)
	assert.ErrorIs(t, err, ErrEmptyImport)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitImport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM category_items`).
		WithArgs("cat-1", "proj-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	// The stage argument is a typed nil *string, not an untyped nil.
	mock.ExpectExec(`INSERT INTO budget_items`).
		WithArgs(pgxmock.AnyArg(), "proj-1", "cat-1", (*string)(nil), "", "Cement", "bag",
			pgxmock.AnyArg(), pgxmock.AnyArg(), "Concrete Work", 0, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	n, err := s.CommitImport(context.Background(), "proj-1", []ImportItem{
		{CategoryItemID: "cat-1", Description: "Cement", Unit: "bag", Quantity: dec("100"), Rate: dec("450.50"), SectionName: "Concrete Work"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CommitImport_ScopeMismatchRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	stageID := "stage-other"

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM category_items`).
		WithArgs("cat-1", "proj-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM stages`).
		WithArgs(stageID, "proj-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	n, err := s.CommitImport(context.Background(), "proj-1", []ImportItem{
		{CategoryItemID: "cat-1", StageID: &stageID, Description: "Sand", Unit: "cum", Quantity: dec("5"), Rate: dec("1800")},
	})
	assert.ErrorIs(t, err, ErrScopeMismatch)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListBudgetItems(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, project_id, category_item_id, stage_id, code, description, unit, quantity, rate, section_name, created_at`).
		WithArgs("proj-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "project_id", "category_item_id", "stage_id", "code",
			"description", "unit", "quantity", "rate", "section_name", "created_at",
		}).AddRow("item-1", "proj-1", "cat-1", nil, "", "Cement", "bag",
			dec("100"), dec("450.50"), "Concrete Work", time.Now().UTC()))

	items, err := s.ListBudgetItems(context.Background(), "proj-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Cement", items[0].Description)
	assert.True(t, items[0].Rate.Equal(dec("450.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
