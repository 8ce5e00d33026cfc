package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crm-api/internal/db"
	"crm-api/internal/domain"
)

type noteRepository struct {
	db db.DBTX
}

// NewNoteRepository creates a repository for client notes.
func NewNoteRepository(exec db.DBTX) NoteRepository {
	return &noteRepository{db: exec}
}

func (r *noteRepository) Create(ctx context.Context, note domain.Note) (domain.Note, error) {
	var authorID any
	if note.AuthorID != nil {
		authorID = *note.AuthorID
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO notes (client_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, content, client_id, author_id, created_at, updated_at`,
		note.ClientID, authorID, note.Content,
	)
	created, err := scanNote(row)
	if err != nil {
		return domain.Note{}, fmt.Errorf("create note: %w", err)
	}
	return created, nil
}

func (r *noteRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Note, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, content, client_id, author_id, created_at, updated_at
		FROM notes WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

func (r *noteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM notes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanNote(row pgx.Row) (domain.Note, error) {
	var n domain.Note
	err := row.Scan(&n.ID, &n.Content, &n.ClientID, &n.AuthorID, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}
