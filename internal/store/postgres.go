package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/boq-cli/internal/model"
)

// Pool abstracts pgxpool.Pool so the store can be unit-tested with pgxmock.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
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
	quantity         NUMERIC(18,4) NOT NULL,
	rate             NUMERIC(18,4) NOT NULL,
	section_name     TEXT NOT NULL DEFAULT '',
	position         INTEGER NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS expenses (
	id             TEXT PRIMARY KEY,
	project_id     TEXT NOT NULL,
	budget_item_id TEXT NOT NULL REFERENCES budget_items(id),
	description    TEXT NOT NULL DEFAULT '',
	quantity       NUMERIC(18,4) NOT NULL,
	rate           NUMERIC(18,4) NOT NULL,
	incurred_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_category_items_project ON category_items(project_id);
CREATE INDEX IF NOT EXISTS idx_stages_project ON stages(project_id);
CREATE INDEX IF NOT EXISTS idx_budget_items_project ON budget_items(project_id);
CREATE INDEX IF NOT EXISTS idx_expenses_project ON expenses(project_id);
CREATE INDEX IF NOT EXISTS idx_expenses_budget_item ON expenses(budget_item_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CommitImport writes the batch in one transaction: scope validation and
// inserts either all take effect or none do.
func (s *PostgresStore) CommitImport(ctx context.Context, projectID string, items []ImportItem) (int, error) {
	if len(items) == 0 {
		return 0, ErrEmptyImport
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin import")
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		if err := pgCheckScope(ctx, tx, "category_items", item.CategoryItemID, projectID); err != nil {
			return 0, err
		}
		if item.StageID != nil {
			if err := pgCheckScope(ctx, tx, "stages", *item.StageID, projectID); err != nil {
				return 0, err
			}
		}
	}

	// One timestamp per batch; position preserves document order within it.
	now := time.Now().UTC()
	for i, item := range items {
		_, err := tx.Exec(ctx,
			`INSERT INTO budget_items (id, project_id, category_item_id, stage_id, code, description, unit, quantity, rate, section_name, position, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			uuid.New().String(), projectID, item.CategoryItemID, item.StageID,
			item.Code, item.Description, item.Unit,
			item.Quantity, item.Rate, item.SectionName, i, now,
		)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: insert budget item")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit import")
	}
	return len(items), nil
}

func pgCheckScope(ctx context.Context, tx pgx.Tx, table, id, projectID string) error {
	var n int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE id = $1 AND project_id = $2`,
		id, projectID,
	).Scan(&n)
	if err != nil {
		return eris.Wrapf(err, "postgres: check %s scope", table)
	}
	if n == 0 {
		return ErrScopeMismatch
	}
	return nil
}

func (s *PostgresStore) CreateCategoryItem(ctx context.Context, item model.CategoryItem) (*model.CategoryItem, error) {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO category_items (id, project_id, name, category) VALUES ($1, $2, $3, $4)`,
		item.ID, item.ProjectID, item.Name, string(item.Category),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert category item")
	}
	return &item, nil
}

func (s *PostgresStore) GetCategoryItemByType(ctx context.Context, projectID string, cat model.Category) (*model.CategoryItem, error) {
	var item model.CategoryItem
	var category string
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, name, category FROM category_items WHERE project_id = $1 AND category = $2 LIMIT 1`,
		projectID, string(cat),
	).Scan(&item.ID, &item.ProjectID, &item.Name, &category)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get category item %s", cat)
	}
	item.Category = model.Category(category)
	return &item, nil
}

func (s *PostgresStore) CreateStage(ctx context.Context, stage model.Stage) (*model.Stage, error) {
	if stage.ID == "" {
		stage.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stages (id, project_id, name) VALUES ($1, $2, $3)`,
		stage.ID, stage.ProjectID, stage.Name,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert stage")
	}
	return &stage, nil
}

func (s *PostgresStore) GetStage(ctx context.Context, projectID, stageID string) (*model.Stage, error) {
	var stage model.Stage
	err := s.pool.QueryRow(ctx,
		`SELECT id, project_id, name FROM stages WHERE id = $1 AND project_id = $2`,
		stageID, projectID,
	).Scan(&stage.ID, &stage.ProjectID, &stage.Name)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get stage %s", stageID)
	}
	return &stage, nil
}

func (s *PostgresStore) ListBudgetItems(ctx context.Context, projectID string) ([]model.BudgetLineItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, category_item_id, stage_id, code, description, unit, quantity, rate, section_name, created_at
		 FROM budget_items WHERE project_id = $1 ORDER BY created_at, position, id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list budget items")
	}
	defer rows.Close()

	var items []model.BudgetLineItem
	for rows.Next() {
		var item model.BudgetLineItem
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.CategoryItemID, &item.StageID,
			&item.Code, &item.Description, &item.Unit, &item.Quantity, &item.Rate,
			&item.SectionName, &item.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan budget item")
		}
		items = append(items, item)
	}
	return items, eris.Wrap(rows.Err(), "postgres: iterate budget items")
}

func (s *PostgresStore) AddExpense(ctx context.Context, expense model.Expense) (*model.Expense, error) {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.IncurredAt.IsZero() {
		expense.IncurredAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO expenses (id, project_id, budget_item_id, description, quantity, rate, incurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		expense.ID, expense.ProjectID, expense.BudgetItemID, expense.Description,
		expense.Quantity, expense.Rate, expense.IncurredAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert expense")
	}
	return &expense, nil
}

func (s *PostgresStore) ListExpenses(ctx context.Context, projectID string) ([]model.Expense, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, budget_item_id, description, quantity, rate, incurred_at
		 FROM expenses WHERE project_id = $1 ORDER BY incurred_at, id`,
		projectID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list expenses")
	}
	defer rows.Close()

	var expenses []model.Expense
	for rows.Next() {
		var e model.Expense
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.BudgetItemID, &e.Description,
			&e.Quantity, &e.Rate, &e.IncurredAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan expense")
		}
		expenses = append(expenses, e)
	}
	return expenses, eris.Wrap(rows.Err(), "postgres: iterate expenses")
}
