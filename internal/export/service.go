// Package export renders a filtered listing to a downloadable file. Exports
// run synchronously against the same filter trees the listings use, so what
// you see in a view is exactly what lands in the file.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"crm-api/internal/domain"
	"crm-api/internal/query"
	"crm-api/internal/repository"
)

// Format selects the output file type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat normalizes a raw format string, defaulting to CSV.
func ParseFormat(raw string) Format {
	if Format(strings.ToLower(strings.TrimSpace(raw))) == FormatXLSX {
		return FormatXLSX
	}
	return FormatCSV
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Extension returns the file extension of the format.
func (f Format) Extension() string {
	if f == FormatXLSX {
		return "xlsx"
	}
	return "csv"
}

// Request describes one export: which entity type, which filters, and how
// the columns should be arranged.
type Request struct {
	ViewType    domain.ViewType
	Filters     domain.FilterTree
	HasFilters  bool
	ColumnOrder []string
	Format      Format
}

// Service renders exports from the record repositories.
type Service struct {
	clients repository.ClientRepository
	tasks   repository.TaskRepository
}

// NewService builds an export service.
func NewService(clients repository.ClientRepository, tasks repository.TaskRepository) *Service {
	return &Service{clients: clients, tasks: tasks}
}

// Export writes the requested listing to w and returns the row count.
func (s *Service) Export(ctx context.Context, req Request, qctx query.Context, w io.Writer) (int, error) {
	columns, rows, err := s.collect(ctx, req, qctx)
	if err != nil {
		return 0, err
	}

	switch req.Format {
	case FormatXLSX:
		if err := writeXLSX(w, string(req.ViewType), columns, rows); err != nil {
			return 0, err
		}
	default:
		if err := writeCSV(w, columns, rows); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func (s *Service) collect(ctx context.Context, req Request, qctx query.Context) ([]column, [][]string, error) {
	tree := req.Filters
	if !req.HasFilters {
		tree = domain.FilterTree{}
	}

	switch req.ViewType {
	case domain.ViewTypeTask:
		tasks, err := s.tasks.ListAllMatching(ctx, tree, qctx)
		if err != nil {
			return nil, nil, err
		}
		columns := arrangeColumns(taskColumns, req.ColumnOrder)
		rows := make([][]string, 0, len(tasks))
		for _, task := range tasks {
			row := make([]string, len(columns))
			for i, col := range columns {
				row[i] = col.task(task)
			}
			rows = append(rows, row)
		}
		return columns, rows, nil
	case domain.ViewTypeClient:
		clients, err := s.clients.ListAllMatching(ctx, tree, qctx)
		if err != nil {
			return nil, nil, err
		}
		columns := arrangeColumns(clientColumns, req.ColumnOrder)
		rows := make([][]string, 0, len(clients))
		for _, client := range clients {
			row := make([]string, len(columns))
			for i, col := range columns {
				row[i] = col.client(client)
			}
			rows = append(rows, row)
		}
		return columns, rows, nil
	default:
		return nil, nil, fmt.Errorf("unknown view type %q", req.ViewType)
	}
}

type column struct {
	id     string
	label  string
	client func(domain.Client) string
	task   func(domain.Task) string
}

var clientColumns = []column{
	{id: "name", label: "Name", client: func(c domain.Client) string { return c.Name }},
	{id: "email", label: "Email", client: func(c domain.Client) string { return c.Email }},
	{id: "phone", label: "Phone", client: func(c domain.Client) string { return strOrEmpty(c.Phone) }},
	{id: "address", label: "Address", client: func(c domain.Client) string { return strOrEmpty(c.Address) }},
	{id: "owner", label: "Owner", client: func(c domain.Client) string { return uuidOrEmpty(c.OwnerID) }},
	{id: "created_at", label: "Created At", client: func(c domain.Client) string { return formatTime(&c.CreatedAt) }},
	{id: "updated_at", label: "Updated At", client: func(c domain.Client) string { return formatTime(&c.UpdatedAt) }},
}

var taskColumns = []column{
	{id: "title", label: "Title", task: func(t domain.Task) string { return t.Title }},
	{id: "status", label: "Status", task: func(t domain.Task) string { return t.Status }},
	{id: "priority", label: "Priority", task: func(t domain.Task) string { return t.Priority }},
	{id: "due_date", label: "Due Date", task: func(t domain.Task) string { return formatTime(t.DueDate) }},
	{id: "completed_at", label: "Completed At", task: func(t domain.Task) string { return formatTime(t.CompletedAt) }},
	{id: "client_name", label: "Client", task: func(t domain.Task) string { return t.ClientName }},
	{id: "assigned_to_name", label: "Assigned To", task: func(t domain.Task) string { return t.AssignedTo }},
	{id: "created_at", label: "Created At", task: func(t domain.Task) string { return formatTime(&t.CreatedAt) }},
	{id: "updated_at", label: "Updated At", task: func(t domain.Task) string { return formatTime(&t.UpdatedAt) }},
}

// arrangeColumns applies a saved view's column order: listed columns first
// in that order, unknown IDs skipped, unlisted columns omitted. An empty
// order exports every column in its default position.
func arrangeColumns(available []column, order []string) []column {
	if len(order) == 0 {
		return available
	}
	byID := make(map[string]column, len(available))
	for _, col := range available {
		byID[col.id] = col
	}
	arranged := make([]column, 0, len(order))
	for _, id := range order {
		if col, ok := byID[id]; ok {
			arranged = append(arranged, col)
		}
	}
	if len(arranged) == 0 {
		return available
	}
	return arranged
}

func writeCSV(w io.Writer, columns []column, rows [][]string) error {
	writer := csv.NewWriter(w)
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.label
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, sheet string, columns []column, rows [][]string) error {
	file := excelize.NewFile()
	defer file.Close()

	sheetName := "Records"
	switch domain.ViewType(sheet) {
	case domain.ViewTypeClient:
		sheetName = "Clients"
	case domain.ViewTypeTask:
		sheetName = "Tasks"
	}
	if err := file.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col.label
	}
	if err := setRow(file, sheetName, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		if err := setRow(file, sheetName, i+2, cells); err != nil {
			return err
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(file *excelize.File, sheet string, rowIndex int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowIndex)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := file.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("set row %d: %w", rowIndex, err)
	}
	return nil
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func uuidOrEmpty(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
