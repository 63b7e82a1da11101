// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/hyperjump/prtrack/internal/models"
)

// driverName is the go-sqlite3 driver with a Unicode-aware fold_lower(text) function.
// SQLite's built-in lower() only folds ASCII letters.
const driverName = "sqlite3_prtrack"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold_lower", strings.ToLower, true)
		},
	})
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driverName, dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS purchase_requisitions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		issue_date TEXT NOT NULL,
		status TEXT NOT NULL,
		requisition_by TEXT,
		approved_by TEXT,
		last_modified_by TEXT,
		last_modified_timestamp DATETIME,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_requisitions_status ON purchase_requisitions(status);
	CREATE INDEX IF NOT EXISTS idx_requisitions_created_at ON purchase_requisitions(created_at);

	CREATE TABLE IF NOT EXISTS pr_items (
		id TEXT PRIMARY KEY,
		pr_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		description TEXT NOT NULL,
		original_quantity REAL NOT NULL,
		received_quantity REAL NOT NULL DEFAULT 0,
		comment TEXT NOT NULL DEFAULT '',
		is_complete INTEGER NOT NULL DEFAULT 0,
		last_modified_by TEXT,
		last_modified_timestamp DATETIME,
		FOREIGN KEY (pr_id) REFERENCES purchase_requisitions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_items_pr_id ON pr_items(pr_id, position);
	`
	_, err := db.Exec(schema)
	return err
}

const requisitionColumns = `id, name, issue_date, status, requisition_by, approved_by,
	last_modified_by, last_modified_timestamp, created_at, updated_at`

const itemColumns = `id, description, original_quantity, received_quantity, comment, is_complete,
	last_modified_by, last_modified_timestamp`

// CreateRequisition inserts a requisition and its items in one transaction.
// Returns ErrDuplicateName when the name is taken.
func (s *SQLiteStorage) CreateRequisition(ctx context.Context, pr *models.PurchaseRequisition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if pr.CreatedAt.IsZero() {
		pr.CreatedAt = now
	}
	pr.UpdatedAt = now
	user, ts := lastModifiedArgs(pr.LastModifiedBy)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO purchase_requisitions (`+requisitionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pr.ID, pr.Name, pr.IssueDate, string(pr.Status), pr.RequisitionBy, pr.ApprovedBy,
		user, ts, pr.CreatedAt, pr.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, pr.Name)
		}
		return err
	}
	if err := insertItems(ctx, tx, pr.ID, pr.Items); err != nil {
		return err
	}
	return tx.Commit()
}

func insertItems(ctx context.Context, tx *sql.Tx, prID string, items []models.PRItem) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pr_items (pr_id, position, `+itemColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		user, ts := lastModifiedArgs(it.LastModifiedBy)
		if _, err := stmt.ExecContext(ctx, prID, i,
			it.ID, it.Description, it.OriginalQuantity, it.ReceivedQuantity, it.Comment, it.IsComplete,
			user, ts,
		); err != nil {
			return fmt.Errorf("failed to insert item %s: %w", it.ID, err)
		}
	}
	return nil
}

// GetRequisition returns a requisition with its items by ID.
func (s *SQLiteStorage) GetRequisition(ctx context.Context, id string) (*models.PurchaseRequisition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requisitionColumns+` FROM purchase_requisitions WHERE id = ?`, id)
	return s.loadRequisition(ctx, row, id)
}

// GetRequisitionByName returns a requisition with its items by name.
func (s *SQLiteStorage) GetRequisitionByName(ctx context.Context, name string) (*models.PurchaseRequisition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+requisitionColumns+` FROM purchase_requisitions WHERE name = ?`, name)
	return s.loadRequisition(ctx, row, name)
}

func (s *SQLiteStorage) loadRequisition(ctx context.Context, row *sql.Row, key string) (*models.PurchaseRequisition, error) {
	pr, err := scanRequisition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("requisition %w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	items, err := s.itemsFor(ctx, pr.ID)
	if err != nil {
		return nil, err
	}
	pr.Items = items
	return pr, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequisition(row rowScanner) (*models.PurchaseRequisition, error) {
	var pr models.PurchaseRequisition
	var status string
	var reqBy, appBy, user sql.NullString
	var ts sql.NullTime
	if err := row.Scan(&pr.ID, &pr.Name, &pr.IssueDate, &status, &reqBy, &appBy,
		&user, &ts, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
		return nil, err
	}
	pr.Status = models.Status(status)
	pr.RequisitionBy = reqBy.String
	pr.ApprovedBy = appBy.String
	pr.LastModifiedBy = lastModifiedFrom(user, ts)
	return &pr, nil
}

func (s *SQLiteStorage) itemsFor(ctx context.Context, prID string) ([]models.PRItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM pr_items WHERE pr_id = ? ORDER BY position`, prID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.PRItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func scanItem(row rowScanner, extra ...any) (*models.PRItem, error) {
	var it models.PRItem
	var user sql.NullString
	var ts sql.NullTime
	dest := append([]any{&it.ID, &it.Description, &it.OriginalQuantity, &it.ReceivedQuantity,
		&it.Comment, &it.IsComplete, &user, &ts}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	it.LastModifiedBy = lastModifiedFrom(user, ts)
	return &it, nil
}

// UpdateRequisition replaces the stored requisition fields and items with pr.
func (s *SQLiteStorage) UpdateRequisition(ctx context.Context, pr *models.PurchaseRequisition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	pr.UpdatedAt = time.Now()
	user, ts := lastModifiedArgs(pr.LastModifiedBy)
	result, err := tx.ExecContext(ctx,
		`UPDATE purchase_requisitions SET name = ?, issue_date = ?, status = ?, requisition_by = ?,
		 approved_by = ?, last_modified_by = ?, last_modified_timestamp = ?, updated_at = ?
		 WHERE id = ?`,
		pr.Name, pr.IssueDate, string(pr.Status), pr.RequisitionBy, pr.ApprovedBy,
		user, ts, pr.UpdatedAt, pr.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateName, pr.Name)
		}
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("requisition %w: %s", ErrNotFound, pr.ID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pr_items WHERE pr_id = ?`, pr.ID); err != nil {
		return err
	}
	if err := insertItems(ctx, tx, pr.ID, pr.Items); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteRequisition removes a requisition and its items by ID.
func (s *SQLiteStorage) DeleteRequisition(ctx context.Context, id string) error {
	n, err := s.DeleteRequisitions(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("requisition %w: %s", ErrNotFound, id)
	}
	return nil
}

// DeleteRequisitions removes every listed requisition in one transaction and returns how
// many existed. Unknown ids are ignored.
func (s *SQLiteStorage) DeleteRequisitions(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var deleted int64
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM pr_items WHERE pr_id = ?`, id); err != nil {
			return 0, err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM purchase_requisitions WHERE id = ?`, id)
		if err != nil {
			return 0, err
		}
		n, _ := result.RowsAffected()
		deleted += n
	}
	return deleted, tx.Commit()
}

// ListRequisitions returns requisition summaries, newest first.
func (s *SQLiteStorage) ListRequisitions(ctx context.Context, filter models.ListFilter) ([]*models.Summary, error) {
	query := `SELECT p.id, p.name, p.issue_date, p.status, p.requisition_by, p.approved_by,
		p.last_modified_by, p.last_modified_timestamp, p.created_at,
		(SELECT COUNT(*) FROM pr_items i WHERE i.pr_id = p.id),
		(SELECT COUNT(*) FROM pr_items i WHERE i.pr_id = p.id AND i.is_complete = 1)
		FROM purchase_requisitions p`
	var args []any
	if filter.Status != "" {
		query += ` WHERE p.status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY p.created_at DESC, p.name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Summary
	for rows.Next() {
		var sum models.Summary
		var status string
		var reqBy, appBy, user sql.NullString
		var ts sql.NullTime
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.IssueDate, &status, &reqBy, &appBy,
			&user, &ts, &sum.CreatedAt, &sum.ItemCount, &sum.CompleteCount); err != nil {
			return nil, err
		}
		sum.Status = models.Status(status)
		sum.RequisitionBy = reqBy.String
		sum.ApprovedBy = appBy.String
		sum.LastModifiedBy = lastModifiedFrom(user, ts)
		out = append(out, &sum)
	}
	return out, rows.Err()
}

// AllRequisitions returns every requisition with its items, newest first.
func (s *SQLiteStorage) AllRequisitions(ctx context.Context) ([]*models.PurchaseRequisition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+requisitionColumns+` FROM purchase_requisitions ORDER BY created_at DESC, name`)
	if err != nil {
		return nil, err
	}
	var prs []*models.PurchaseRequisition
	for rows.Next() {
		pr, err := scanRequisition(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		prs = append(prs, pr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, pr := range prs {
		items, err := s.itemsFor(ctx, pr.ID)
		if err != nil {
			return nil, err
		}
		pr.Items = items
	}
	return prs, nil
}

// SearchItems returns items whose description contains query, case-insensitively.
func (s *SQLiteStorage) SearchItems(ctx context.Context, query string, limit int) ([]*models.ItemHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.description, i.original_quantity, i.received_quantity, i.comment, i.is_complete,
		 i.last_modified_by, i.last_modified_timestamp, p.id, p.name
		 FROM pr_items i JOIN purchase_requisitions p ON p.id = i.pr_id
		 WHERE instr(fold_lower(i.description), ?) > 0
		 ORDER BY p.created_at DESC, i.position
		 LIMIT ?`,
		strings.ToLower(query), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanHits(rows)
}

// GetItemHits returns the items with the given ids in the order given. Unknown ids are skipped.
func (s *SQLiteStorage) GetItemHits(ctx context.Context, itemIDs []string) ([]*models.ItemHit, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.description, i.original_quantity, i.received_quantity, i.comment, i.is_complete,
		 i.last_modified_by, i.last_modified_timestamp, p.id, p.name
		 FROM pr_items i JOIN purchase_requisitions p ON p.id = i.pr_id
		 WHERE i.id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	hits, err := scanHits(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.ItemHit, len(hits))
	for _, h := range hits {
		byID[h.Item.ID] = h
	}
	ordered := make([]*models.ItemHit, 0, len(hits))
	for _, id := range itemIDs {
		if h, ok := byID[id]; ok {
			ordered = append(ordered, h)
		}
	}
	return ordered, nil
}

func scanHits(rows *sql.Rows) ([]*models.ItemHit, error) {
	var hits []*models.ItemHit
	for rows.Next() {
		var h models.ItemHit
		it, err := scanItem(rows, &h.PRID, &h.PRName)
		if err != nil {
			return nil, err
		}
		h.Item = *it
		hits = append(hits, &h)
	}
	return hits, rows.Err()
}

// CountRequisitions returns the total number of requisitions.
func (s *SQLiteStorage) CountRequisitions(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_requisitions`).Scan(&count)
	return count, err
}

// CountItems returns the total number of line items.
func (s *SQLiteStorage) CountItems(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pr_items`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func lastModifiedArgs(lm *models.LastModified) (any, any) {
	if lm == nil {
		return nil, nil
	}
	return lm.UserName, lm.Timestamp
}

func lastModifiedFrom(user sql.NullString, ts sql.NullTime) *models.LastModified {
	if !user.Valid {
		return nil
	}
	return &models.LastModified{UserName: user.String, Timestamp: ts.Time}
}

func isUniqueViolation(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
