package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"

	"crm-api/internal/domain"
	"crm-api/internal/query"
	"crm-api/internal/repository"
)

type stubClientRepo struct {
	repository.ClientRepository
	clients []domain.Client
}

func (s *stubClientRepo) ListAllMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) ([]domain.Client, error) {
	return s.clients, nil
}

type stubTaskRepo struct {
	repository.TaskRepository
	tasks []domain.Task
}

func (s *stubTaskRepo) ListAllMatching(ctx context.Context, tree domain.FilterTree, qctx query.Context) ([]domain.Task, error) {
	return s.tasks, nil
}

func TestExportClientsCSV(t *testing.T) {
	phone := "555-0100"
	created := time.Date(2025, time.February, 3, 10, 0, 0, 0, time.UTC)
	repo := &stubClientRepo{clients: []domain.Client{
		{ID: uuid.New(), Name: "Acme", Email: "hello@acme.test", Phone: &phone, CreatedAt: created, UpdatedAt: created},
	}}
	s := NewService(repo, &stubTaskRepo{})

	var buf bytes.Buffer
	rows, err := s.Export(context.Background(), Request{
		ViewType: domain.ViewTypeClient,
		Format:   FormatCSV,
	}, query.Context{}, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if rows != 1 {
		t.Fatalf("rows = %d, want 1", rows)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("csv has %d lines, want header + 1", len(records))
	}
	if records[0][0] != "Name" || records[0][2] != "Phone" {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[1][0] != "Acme" || records[1][2] != "555-0100" {
		t.Fatalf("unexpected row %v", records[1])
	}
	if records[1][5] != "2025-02-03T10:00:00Z" {
		t.Fatalf("created_at cell = %q", records[1][5])
	}
}

func TestExportHonorsColumnOrder(t *testing.T) {
	repo := &stubTaskRepo{tasks: []domain.Task{
		{ID: uuid.New(), Title: "Call Acme", Status: "todo", Priority: "high", ClientName: "Acme"},
	}}
	s := NewService(&stubClientRepo{}, repo)

	var buf bytes.Buffer
	_, err := s.Export(context.Background(), Request{
		ViewType:    domain.ViewTypeTask,
		ColumnOrder: []string{"client_name", "title", "no_such_column", "status"},
		Format:      FormatCSV,
	}, query.Context{}, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	wantHeader := []string{"Client", "Title", "Status"}
	for i, label := range wantHeader {
		if records[0][i] != label {
			t.Fatalf("header = %v, want %v", records[0], wantHeader)
		}
	}
	if records[1][0] != "Acme" || records[1][1] != "Call Acme" || records[1][2] != "todo" {
		t.Fatalf("row = %v", records[1])
	}
}

func TestExportXLSXProducesWorkbook(t *testing.T) {
	repo := &stubClientRepo{clients: []domain.Client{{ID: uuid.New(), Name: "Acme"}}}
	s := NewService(repo, &stubTaskRepo{})

	var buf bytes.Buffer
	rows, err := s.Export(context.Background(), Request{
		ViewType: domain.ViewTypeClient,
		Format:   FormatXLSX,
	}, query.Context{}, &buf)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if rows != 1 {
		t.Fatalf("rows = %d, want 1", rows)
	}
	// XLSX files are zip archives.
	if buf.Len() < 4 || buf.Bytes()[0] != 'P' || buf.Bytes()[1] != 'K' {
		t.Fatalf("output does not look like a workbook")
	}
}

func TestExportUnknownViewType(t *testing.T) {
	s := NewService(&stubClientRepo{}, &stubTaskRepo{})
	var buf bytes.Buffer
	if _, err := s.Export(context.Background(), Request{ViewType: "contact"}, query.Context{}, &buf); err == nil {
		t.Fatalf("expected error for unknown view type")
	}
}
