package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"romaneio-service/internal/models"

	"github.com/lib/pq"
)

// ErrBatchNotFound el lote no está en el journal
var ErrBatchNotFound = errors.New("romaneio batch not found")

const journalSchema = `
CREATE TABLE IF NOT EXISTS romaneio_journal (
	batch_id      TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL DEFAULT '',
	client_id     INTEGER,
	notes         TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS romaneio_journal_items (
	batch_id    TEXT NOT NULL REFERENCES romaneio_journal(batch_id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	product_id  INTEGER NOT NULL,
	name        TEXT NOT NULL,
	barcode     TEXT,
	unit        TEXT NOT NULL DEFAULT '',
	quantity    DOUBLE PRECISION NOT NULL,
	unit_price  DOUBLE PRECISION NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	movement_id INTEGER,
	error       TEXT NOT NULL DEFAULT '',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (batch_id, position)
);
CREATE INDEX IF NOT EXISTS idx_romaneio_journal_created_at ON romaneio_journal (created_at DESC);
`

// JournalRepository define la persistencia del journal de finalización
type JournalRepository interface {
	Create(ctx context.Context, batch *models.JournalBatch) error
	MarkItem(ctx context.Context, batchID string, position int, status models.ItemStatus, movementID *int, errMsg string) error
	Get(ctx context.Context, batchID string) (*models.JournalBatch, error)
	ListRecent(ctx context.Context, limit int) ([]models.JournalBatch, error)
	Close() error
}

// journalRepository implementa JournalRepository sobre PostgreSQL
type journalRepository struct {
	db    *sql.DB
	stmts map[string]*sql.Stmt
}

// NewJournalRepository crea las tablas si faltan y prepara las consultas
func NewJournalRepository(ctx context.Context, db *sql.DB) (JournalRepository, error) {
	if _, err := db.ExecContext(ctx, journalSchema); err != nil {
		return nil, fmt.Errorf("failed to ensure journal schema: %w", err)
	}

	repo := &journalRepository{
		db:    db,
		stmts: make(map[string]*sql.Stmt),
	}

	if err := repo.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return repo, nil
}

// prepareStatements prepara todas las consultas SQL
func (r *journalRepository) prepareStatements() error {
	statements := map[string]string{
		"create_batch": `
			INSERT INTO romaneio_journal (batch_id, customer_name, client_id, notes, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`,
		"create_item": `
			INSERT INTO romaneio_journal_items
			(batch_id, position, product_id, name, barcode, unit, quantity, unit_price, status, movement_id, error, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
		"mark_item": `
			UPDATE romaneio_journal_items
			SET status = $3, movement_id = $4, error = $5, updated_at = NOW()
			WHERE batch_id = $1 AND position = $2
		`,
		"get_batch": `
			SELECT batch_id, customer_name, client_id, notes, created_at
			FROM romaneio_journal
			WHERE batch_id = $1
		`,
		"list_batches": `
			SELECT batch_id, customer_name, client_id, notes, created_at
			FROM romaneio_journal
			ORDER BY created_at DESC
			LIMIT $1
		`,
		"get_items": `
			SELECT batch_id, position, product_id, name, barcode, unit, quantity, unit_price,
				   status, movement_id, error, updated_at
			FROM romaneio_journal_items
			WHERE batch_id = ANY($1)
			ORDER BY batch_id, position
		`,
	}

	for name, query := range statements {
		stmt, err := r.db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare %s: %w", name, err)
		}
		r.stmts[name] = stmt
	}

	return nil
}

// Create registra el lote y todas sus líneas en una transacción
func (r *journalRepository) Create(ctx context.Context, batch *models.JournalBatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.StmtContext(ctx, r.stmts["create_batch"]).ExecContext(ctx,
		batch.BatchID, batch.CustomerName, nullInt(batch.ClientID), batch.Notes, batch.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	itemStmt := tx.StmtContext(ctx, r.stmts["create_item"])
	for _, it := range batch.Items {
		if _, err := itemStmt.ExecContext(ctx,
			batch.BatchID, it.Position, it.Item.ProductID, it.Item.Name, nullString(it.Item.Barcode),
			it.Item.Unit, it.Item.Quantity, it.Item.UnitPrice, string(it.Status),
			nullInt(it.MovementID), it.Error, it.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create item %d: %w", it.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

func (r *journalRepository) MarkItem(ctx context.Context, batchID string, position int, status models.ItemStatus, movementID *int, errMsg string) error {
	result, err := r.stmts["mark_item"].ExecContext(ctx, batchID, position, string(status), nullInt(movementID), errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("item %d of %s: %w", position, batchID, ErrBatchNotFound)
	}
	return nil
}

func (r *journalRepository) Get(ctx context.Context, batchID string) (*models.JournalBatch, error) {
	batch, err := scanBatch(r.stmts["get_batch"].QueryRowContext(ctx, batchID))
	if err == sql.ErrNoRows {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	if err := r.loadItems(ctx, []*models.JournalBatch{batch}); err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *journalRepository) ListRecent(ctx context.Context, limit int) ([]models.JournalBatch, error) {
	rows, err := r.stmts["list_batches"].QueryContext(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []*models.JournalBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batches: %w", err)
	}

	if err := r.loadItems(ctx, batches); err != nil {
		return nil, err
	}

	out := make([]models.JournalBatch, 0, len(batches))
	for _, b := range batches {
		out = append(out, *b)
	}
	return out, nil
}

// loadItems trae las líneas de varios lotes en una sola consulta
func (r *journalRepository) loadItems(ctx context.Context, batches []*models.JournalBatch) error {
	if len(batches) == 0 {
		return nil
	}

	byID := make(map[string]*models.JournalBatch, len(batches))
	ids := make([]string, 0, len(batches))
	for _, b := range batches {
		byID[b.BatchID] = b
		ids = append(ids, b.BatchID)
	}

	rows, err := r.stmts["get_items"].QueryContext(ctx, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			batchID    string
			it         models.JournalItem
			barcode    sql.NullString
			movementID sql.NullInt64
			status     string
			updatedAt  time.Time
		)
		if err := rows.Scan(
			&batchID, &it.Position, &it.Item.ProductID, &it.Item.Name, &barcode, &it.Item.Unit,
			&it.Item.Quantity, &it.Item.UnitPrice, &status, &movementID, &it.Error, &updatedAt,
		); err != nil {
			return fmt.Errorf("failed to scan item: %w", err)
		}
		if barcode.Valid {
			b := barcode.String
			it.Item.Barcode = &b
		}
		if movementID.Valid {
			id := int(movementID.Int64)
			it.MovementID = &id
		}
		it.Status = models.ItemStatus(status)
		it.UpdatedAt = updatedAt

		if b, ok := byID[batchID]; ok {
			b.Items = append(b.Items, it)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBatch(row rowScanner) (*models.JournalBatch, error) {
	var (
		batch    models.JournalBatch
		clientID sql.NullInt64
	)
	if err := row.Scan(&batch.BatchID, &batch.CustomerName, &clientID, &batch.Notes, &batch.CreatedAt); err != nil {
		return nil, err
	}
	if clientID.Valid {
		id := int(clientID.Int64)
		batch.ClientID = &id
	}
	return &batch, nil
}

// Close libera las consultas preparadas
func (r *journalRepository) Close() error {
	for _, stmt := range r.stmts {
		stmt.Close()
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
