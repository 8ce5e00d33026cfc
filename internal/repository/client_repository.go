package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crm-api/internal/db"
	"crm-api/internal/domain"
	"crm-api/internal/query"
)

const clientColumns = "c.id, c.name, c.email, c.phone, c.address, c.owner_id, c.created_at, c.updated_at"

type clientRepository struct {
	db         db.DBTX
	translator *query.Translator
}

// NewClientRepository creates a repository for client records.
func NewClientRepository(exec db.DBTX) ClientRepository {
	return &clientRepository{
		db:         exec,
		translator: query.ClientTranslator(),
	}
}

func (r *clientRepository) Create(ctx context.Context, client domain.Client) (domain.Client, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO clients (name, email, phone, address, owner_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, phone, address, owner_id, created_at, updated_at`,
		client.Name, client.Email, client.Phone, client.Address, client.OwnerID,
	)
	created, err := scanClient(row)
	if err != nil {
		return domain.Client{}, fmt.Errorf("create client: %w", err)
	}
	return created, nil
}

func (r *clientRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+clientColumns+" FROM clients c WHERE c.id = $1", id)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Client{}, domain.ErrNotFound
		}
		return domain.Client{}, fmt.Errorf("get client: %w", err)
	}
	return client, nil
}

func (r *clientRepository) List(ctx context.Context, q ListQuery, qctx query.Context) ([]domain.Client, int64, error) {
	q = q.Normalize()

	where, args := r.whereFor(q, qctx)

	var total int64
	countSQL := "SELECT COUNT(*) FROM clients c" + where
	if err := r.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clients: %w", err)
	}

	pageSQL := fmt.Sprintf(
		"SELECT %s FROM clients c%s ORDER BY %s LIMIT %d OFFSET %d",
		clientColumns, where, r.translator.OrderBy(q.Sort), q.PageSize, q.Offset(),
	)
	rows, err := r.db.Query(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients, err := collectClients(rows)
	if err != nil {
		return nil, 0, err
	}
	return clients, total, nil
}

func (r *clientRepository) ListAllMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) ([]domain.Client, error) {
	where, args := whereClause(r.translator.Where(tree, qctx, 0))
	rows, err := r.db.Query(ctx,
		"SELECT "+clientColumns+" FROM clients c"+where+" ORDER BY c.created_at", args...)
	if err != nil {
		return nil, fmt.Errorf("list matching clients: %w", err)
	}
	defer rows.Close()
	return collectClients(rows)
}

func (r *clientRepository) Matches(ctx context.Context, id uuid.UUID, tree domain.FilterTree, qctx query.Context) (bool, error) {
	predicate, args := r.translator.Where(tree, qctx, 1)
	sql := "SELECT EXISTS(SELECT 1 FROM clients c WHERE c.id = $1"
	if predicate != "" {
		sql += " AND " + predicate
	}
	sql += ")"

	var matched bool
	if err := r.db.QueryRow(ctx, sql, append([]any{id}, args...)...).Scan(&matched); err != nil {
		return false, fmt.Errorf("match client: %w", err)
	}
	return matched, nil
}

func (r *clientRepository) CountMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) (int64, error) {
	where, args := whereClause(r.translator.Where(tree, qctx, 0))
	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM clients c"+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count matching clients: %w", err)
	}
	return total, nil
}

func (r *clientRepository) Update(ctx context.Context, client domain.Client) (domain.Client, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE clients
		SET name = $2, email = $3, phone = $4, address = $5, owner_id = $6, updated_at = now()
		WHERE id = $1
		RETURNING id, name, email, phone, address, owner_id, created_at, updated_at`,
		client.ID, client.Name, client.Email, client.Phone, client.Address, client.OwnerID,
	)
	updated, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Client{}, domain.ErrNotFound
		}
		return domain.Client{}, fmt.Errorf("update client: %w", err)
	}
	return updated, nil
}

func (r *clientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM clients WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// whereFor combines the filter tree and free-text search into one WHERE
// clause with correctly threaded placeholders.
func (r *clientRepository) whereFor(q ListQuery, qctx query.Context) (string, []any) {
	parts := make([]string, 0, 2)
	args := make([]any, 0, 4)

	if q.HasFilters {
		predicate, filterArgs := r.translator.Where(q.Filters, qctx, 0)
		if predicate != "" {
			parts = append(parts, predicate)
			args = append(args, filterArgs...)
		}
	}
	if predicate, searchArgs := r.translator.Search(q.Search, len(args)); predicate != "" {
		parts = append(parts, predicate)
		args = append(args, searchArgs...)
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func whereClause(predicate string, args []any) (string, []any) {
	if predicate == "" {
		return "", nil
	}
	return " WHERE " + predicate, args
}

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.OwnerID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func collectClients(rows pgx.Rows) ([]domain.Client, error) {
	clients := make([]domain.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return clients, nil
}
