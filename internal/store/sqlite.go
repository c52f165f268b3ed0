package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/sells-group/boq-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Decimals are
// stored as their canonical string form; SQLite numeric affinity would
// round-trip through float.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS category_items (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL,
	category   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS stages (
	id         TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS budget_items (
	id               TEXT PRIMARY KEY,
	project_id       TEXT NOT NULL,
	category_item_id TEXT NOT NULL REFERENCES category_items(id),
	stage_id         TEXT REFERENCES stages(id),
	code             TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL,
	unit             TEXT NOT NULL,
	quantity         TEXT NOT NULL,
	rate             TEXT NOT NULL,
	section_name     TEXT NOT NULL DEFAULT '',
	position         INTEGER NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS expenses (
	id             TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	budget_item_id TEXT NOT NULL REFERENCES budget_items(id),
	description    TEXT NOT NULL DEFAULT '',
	quantity       TEXT NOT NULL,
	rate           TEXT NOT NULL,
	incurred_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_category_items_project ON category_items(project_id);
CREATE INDEX IF NOT EXISTS idx_stages_project ON stages(project_id);
CREATE INDEX IF NOT EXISTS idx_budget_items_project ON budget_items(project_id);
CREATE INDEX IF NOT EXISTS idx_expenses_project ON expenses(project_id);
CREATE INDEX IF NOT EXISTS idx_expenses_budget_item ON expenses(budget_item_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CommitImport writes the batch atomically: the transaction validates every
// category and stage reference against the project scope before any insert
// is visible, and any failure rolls the whole batch back.
func (s *SQLiteStore) CommitImport(ctx context.Context, projectID string, items []ImportItem) (int, error) {
	if len(items) == 0 {
		return 0, ErrEmptyImport
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback()

	for _, item := range items {
		if err := sqliteCheckScope(ctx, tx, "category_items", item.CategoryItemID, projectID); err != nil {
			return 0, err
		}
		if item.StageID != nil {
			if err := sqliteCheckScope(ctx, tx, "stages", *item.StageID, projectID); err != nil {
				return 0, err
			}
		}
	}

	// One timestamp per batch; position preserves document order within it.
	now := time.Now().UTC()
	for i, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO budget_items (id, project_id, category_item_id, stage_id, code, description, unit, quantity, rate, section_name, position, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), projectID, item.CategoryItemID, nullable(item.StageID),
			item.Code, item.Description, item.Unit,
			item.Quantity.String(), item.Rate.String(), item.SectionName, i, now,
		)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: insert budget item")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return len(items), nil
}

func sqliteCheckScope(ctx context.Context, tx *sql.Tx, table, id, projectID string) error {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = ? AND project_id = ?`,
		id, projectID,
	).Scan(&n)
	if err != nil {
		return eris.Wrapf(err, "sqlite: check %s scope", table)
	}
	if n == 0 {
		return ErrScopeMismatch
	}
	return nil
}

func (s *SQLiteStore) CreateCategoryItem(ctx context.Context, item model.CategoryItem) (*model.CategoryItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO category_items (id, project_id, name, category) VALUES (?, ?, ?, ?)`,
		item.ID, item.ProjectID, item.Name, string(item.Category),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert category item")
	}
	return &item, nil
}

func (s *SQLiteStore) GetCategoryItemByType(ctx context.Context, projectID string, cat model.Category) (*model.CategoryItem, error) {
	var item model.CategoryItem
	var category string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, category FROM category_items WHERE project_id = ? AND category = ? LIMIT 1`,
		projectID, string(cat),
	).Scan(&item.ID, &item.ProjectID, &item.Name, &category)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get category item %s", cat)
	}
	item.Category = model.Category(category)
	return &item, nil
}

func (s *SQLiteStore) CreateStage(ctx context.Context, stage model.Stage) (*model.Stage, error) {
	if stage.ID == "" {
		stage.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stages (id, project_id, name) VALUES (?, ?, ?)`,
		stage.ID, stage.ProjectID, stage.Name,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert stage")
	}
	return &stage, nil
}

func (s *SQLiteStore) GetStage(ctx context.Context, projectID, stageID string) (*model.Stage, error) {
	var stage model.Stage
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name FROM stages WHERE id = ? AND project_id = ?`,
		stageID, projectID,
	).Scan(&stage.ID, &stage.ProjectID, &stage.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get stage %s", stageID)
	}
	return &stage, nil
}

func (s *SQLiteStore) ListBudgetItems(ctx context.Context, projectID string) ([]model.BudgetLineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, category_item_id, stage_id, code, description, unit, quantity, rate, section_name, created_at
		 FROM budget_items WHERE project_id = ? ORDER BY created_at, position, id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list budget items")
	}
	defer rows.Close()

	var items []model.BudgetLineItem
	for rows.Next() {
		var item model.BudgetLineItem
		var stageID sql.NullString
		var qty, rate string
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.CategoryItemID, &stageID,
			&item.Code, &item.Description, &item.Unit, &qty, &rate, &item.SectionName, &item.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan budget item")
		}
		if stageID.Valid {
			item.StageID = &stageID.String
		}
		if item.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode quantity %q", qty)
		}
		if item.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode rate %q", rate)
		}
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: iterate budget items")
}

func (s *SQLiteStore) AddExpense(ctx context.Context, expense model.Expense) (*model.Expense, error) {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.IncurredAt.IsZero() {
		expense.IncurredAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO expenses (id, project_id, budget_item_id, description, quantity, rate, incurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.ProjectID, expense.BudgetItemID, expense.Description,
		expense.Quantity.String(), expense.Rate.String(), expense.IncurredAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert expense")
	}
	return &expense, nil
}

func (s *SQLiteStore) ListExpenses(ctx context.Context, projectID string) ([]model.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, budget_item_id, description, quantity, rate, incurred_at
		 FROM expenses WHERE project_id = ? ORDER BY incurred_at, id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list expenses")
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		var e model.Expense
		var qty, rate string
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.BudgetItemID, &e.Description, &qty, &rate, &e.IncurredAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan expense")
		}
		if e.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode quantity %q", qty)
		}
		if e.Rate, err = decimal.NewFromString(rate); err != nil {
			return nil, eris.Wrapf(err, "sqlite: decode rate %q", rate)
		}
		expenses = append(expenses, e)
	}
	return expenses, eris.Wrap(rows.Err(), "sqlite: iterate expenses")
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
