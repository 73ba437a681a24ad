package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool used by PGStore.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps invoice snapshots in the invoices table as jsonb.
type PGStore struct {
	DB DBTX
}

const (
	upsertInvoiceSQL = `INSERT INTO invoices (id, kind, number, payload, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET number = EXCLUDED.number, payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`
	selectInvoiceSQL = `SELECT id::text, kind, number, payload, created_at, updated_at FROM invoices WHERE id = $1`
	deleteInvoiceSQL = `DELETE FROM invoices WHERE id = $1`
	listInvoicesSQL  = `SELECT id::text, kind, number, payload, created_at, updated_at
FROM invoices WHERE kind = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	countInvoicesSQL = `SELECT count(*) FROM invoices WHERE kind = $1`
)

func (p PGStore) Save(ctx context.Context, rec Record) error {
	if _, err := uuid.Parse(rec.ID); err != nil {
		return fmt.Errorf("invoice id %q: %w", rec.ID, ErrInvalidInput)
	}
	if _, err := p.DB.Exec(ctx, upsertInvoiceSQL, rec.ID, string(rec.Kind), rec.Number, []byte(rec.Payload), rec.CreatedAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("save invoice: %w", err)
	}
	return nil
}

func (p PGStore) Load(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}
	rec, err := scanRecord(p.DB.QueryRow(ctx, selectInvoiceSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load invoice: %w", err)
	}
	return rec, nil
}

func (p PGStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	tag, err := p.DB.Exec(ctx, deleteInvoiceSQL, id)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p PGStore) List(ctx context.Context, kind Kind, limit, offset int) ([]Record, int, error) {
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := p.DB.QueryRow(ctx, countInvoicesSQL, string(kind)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	rows, err := p.DB.Query(ctx, listInvoicesSQL, string(kind), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	out := make([]Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	return out, total, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec     Record
		kind    string
		payload []byte
	)
	if err := row.Scan(&rec.ID, &kind, &rec.Number, &payload, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	rec.Kind = Kind(kind)
	rec.Payload = payload
	return rec, nil
}
