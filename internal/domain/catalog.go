package domain

// FieldType represents the semantic type of a filterable field.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeNumber  FieldType = "number"
	FieldTypeDate    FieldType = "date"
	FieldTypeSelect  FieldType = "select"
	FieldTypeUser    FieldType = "user"
	FieldTypeBoolean FieldType = "boolean"
)

// SelectOption is one enumerated choice for a select-typed field.
type SelectOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FieldDescriptor declares a filterable field of an entity type. Conditions
// reference fields by ID; descriptors themselves are never embedded in a
// filter tree.
type FieldDescriptor struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Type    FieldType      `json:"type"`
	Options []SelectOption `json:"options,omitempty"`
}

// ViewType identifies which entity type a catalog, listing, or saved view
// applies to.
type ViewType string

const (
	ViewTypeClient ViewType = "client"
	ViewTypeTask   ViewType = "task"
)

// Catalog is the ordered set of filterable fields for one entity type.
// Catalogs are static; the first field is the default used for new
// conditions.
type Catalog struct {
	ViewType ViewType
	Fields   []FieldDescriptor
}

// DefaultField returns the catalog's default field for new conditions.
func (c Catalog) DefaultField() FieldDescriptor {
	if len(c.Fields) == 0 {
		return FieldDescriptor{ID: "name", Type: FieldTypeString}
	}
	return c.Fields[0]
}

// FieldByID looks up a field descriptor by its ID.
func (c Catalog) FieldByID(id string) (FieldDescriptor, bool) {
	for _, field := range c.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FieldDescriptor{}, false
}

// FieldTypeOf returns the semantic type of the given field, defaulting to
// string when the field is not declared. The defensive default keeps stale
// saved views usable after a catalog change.
func (c Catalog) FieldTypeOf(id string) FieldType {
	if field, ok := c.FieldByID(id); ok {
		return field.Type
	}
	return FieldTypeString
}

var taskStatusOptions = []SelectOption{
	{Label: "To Do", Value: "todo"},
	{Label: "In Progress", Value: "in_progress"},
	{Label: "Done", Value: "done"},
}

var taskPriorityOptions = []SelectOption{
	{Label: "Low", Value: "low"},
	{Label: "Medium", Value: "medium"},
	{Label: "High", Value: "high"},
}

// ClientCatalog declares the filterable fields of the client entity.
var ClientCatalog = Catalog{
	ViewType: ViewTypeClient,
	Fields: []FieldDescriptor{
		{ID: "name", Label: "Name", Type: FieldTypeString},
		{ID: "email", Label: "Email", Type: FieldTypeString},
		{ID: "phone", Label: "Phone", Type: FieldTypeString},
		{ID: "address", Label: "Address", Type: FieldTypeString},
		{ID: "owner", Label: "Owner", Type: FieldTypeUser},
		{ID: "created_at", Label: "Created At", Type: FieldTypeDate},
		{ID: "updated_at", Label: "Updated At", Type: FieldTypeDate},
	},
}

// TaskCatalog declares the filterable fields of the task entity.
var TaskCatalog = Catalog{
	ViewType: ViewTypeTask,
	Fields: []FieldDescriptor{
		{ID: "title", Label: "Title", Type: FieldTypeString},
		{ID: "status", Label: "Status", Type: FieldTypeSelect, Options: taskStatusOptions},
		{ID: "priority", Label: "Priority", Type: FieldTypeSelect, Options: taskPriorityOptions},
		{ID: "due_date", Label: "Due Date", Type: FieldTypeDate},
		{ID: "completed_at", Label: "Completed At", Type: FieldTypeDate},
		{ID: "client", Label: "Client", Type: FieldTypeString},
		{ID: "assigned_to", Label: "Assigned To", Type: FieldTypeUser},
		{ID: "created_at", Label: "Created At", Type: FieldTypeDate},
		{ID: "updated_at", Label: "Updated At", Type: FieldTypeDate},
	},
}

// CatalogFor returns the field catalog for the given view type. Unknown view
// types fall back to the client catalog.
func CatalogFor(viewType ViewType) Catalog {
	switch viewType {
	case ViewTypeTask:
		return TaskCatalog
	default:
		return ClientCatalog
	}
}
