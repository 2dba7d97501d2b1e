package agent

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reslab/reslab/logging"
	"github.com/reslab/reslab/model"
	"github.com/reslab/reslab/record"
)

func TestProjectAgent_Operations(t *testing.T) {
	a := NewProjectAgent(record.NewInMemoryStore())

	ops := a.Operations()
	require.Len(t, ops, 4)

	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, op.Name)
		assert.Equal(t, "project_agent", op.Target)
	}
	assert.ElementsMatch(t, []string{"list_projects", "get_project", "create_project", "update_project"}, names)

	create, ok := model.Request{Operations: ops}.OperationByName("create_project")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"title", "status"}, create.Parameters["required"])
}

func TestRecordAgent_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := record.NewInMemoryStore()
	a := NewProjectAgent(store)

	fragment := a.Execute(ctx, model.OperationRequest{
		Target: "project_agent",
		Action: ActionCreate,
		Fields: map[string]any{"title": "Alpha", "status": "active"},
	})
	assert.Contains(t, fragment, `Created project "Alpha"`)

	docs, err := store.List(ctx, record.CollectionProjects, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	got := a.Execute(ctx, model.OperationRequest{
		Target: "project_agent",
		Action: ActionGet,
		Fields: map[string]any{"id": docs[0].ID},
	})
	assert.Contains(t, got, "Project "+docs[0].ID)
	assert.Contains(t, got, "title=Alpha")
}

func TestRecordAgent_CreateMissingRequiredField(t *testing.T) {
	ctx := context.Background()
	store := record.NewInMemoryStore()
	a := NewProjectAgent(store)

	fragment := a.Execute(ctx, model.OperationRequest{
		Target: "project_agent",
		Action: ActionCreate,
		Fields: map[string]any{"title": "Alpha"}, // status missing
	})
	assert.Contains(t, fragment, "Cannot create a project")
	assert.Contains(t, fragment, "status")

	docs, err := store.List(ctx, record.CollectionProjects, nil)
	require.NoError(t, err)
	assert.Empty(t, docs, "validation failure must not touch the store")
}

func TestRecordAgent_CreateUnknownField(t *testing.T) {
	a := NewPersonAgent(record.NewInMemoryStore())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "person_agent",
		Action: ActionCreate,
		Fields: map[string]any{"name": "Ada", "email": "ada@example.edu", "favorite_color": "blue"},
	})
	assert.Contains(t, fragment, "Cannot create a person")
	assert.Contains(t, fragment, "favorite_color")
}

func TestRecordAgent_CreateWrongType(t *testing.T) {
	a := NewProjectAgent(record.NewInMemoryStore())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "project_agent",
		Action: ActionCreate,
		Fields: map[string]any{"title": "Alpha", "status": "active", "award_amount": "a lot"},
	})
	assert.Contains(t, fragment, "Cannot create a project")
	assert.Contains(t, fragment, "award_amount")
}

func TestRecordAgent_ListEmpty(t *testing.T) {
	a := NewProjectAgent(record.NewInMemoryStore())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "project_agent",
		Action: ActionList,
	})
	assert.Equal(t, "No records found in projects.", fragment)
}

func TestRecordAgent_ListWithFilter(t *testing.T) {
	ctx := context.Background()
	store := record.NewInMemoryStore()
	a := NewProjectAgent(store)

	_, err := store.Create(ctx, record.CollectionProjects, record.Fields{"title": "Alpha", "status": "active"})
	require.NoError(t, err)
	_, err = store.Create(ctx, record.CollectionProjects, record.Fields{"title": "Beta", "status": "completed"})
	require.NoError(t, err)

	fragment := a.Execute(ctx, model.OperationRequest{
		Target: "project_agent",
		Action: ActionList,
		Fields: map[string]any{"status": "active"},
	})
	assert.Contains(t, fragment, "Found 1 projects")
	assert.Contains(t, fragment, "title=Alpha")
	assert.NotContains(t, fragment, "Beta")
}

func TestRecordAgent_ListIgnoresNonFilterableFields(t *testing.T) {
	ctx := context.Background()
	store := record.NewInMemoryStore()
	a := NewProjectAgent(store)

	_, err := store.Create(ctx, record.CollectionProjects, record.Fields{"title": "Alpha", "status": "active"})
	require.NoError(t, err)

	// title is not declared filterable, so a title "filter" must not narrow
	// the listing to nothing.
	fragment := a.Execute(ctx, model.OperationRequest{
		Target: "project_agent",
		Action: ActionList,
		Fields: map[string]any{"title": "Nonexistent"},
	})
	assert.Contains(t, fragment, "Found 1 projects")
}

func TestPersonAgent_LookupByName(t *testing.T) {
	ctx := context.Background()
	store := record.NewInMemoryStore()
	a := NewPersonAgent(store)

	_, err := store.Create(ctx, record.CollectionPeople, record.Fields{"name": "Ada Lovelace", "email": "ada@example.edu"})
	require.NoError(t, err)
	_, err = store.Create(ctx, record.CollectionPeople, record.Fields{"name": "Grace Hopper", "email": "grace@example.edu"})
	require.NoError(t, err)

	fragment := a.Execute(ctx, model.OperationRequest{
		Target: "person_agent",
		Action: ActionList,
		Fields: map[string]any{"name": "Ada Lovelace"},
	})
	assert.Contains(t, fragment, "Found 1 people")
	assert.Contains(t, fragment, "Ada Lovelace")
	assert.NotContains(t, fragment, "Grace Hopper")
}

func TestPersonAgent_LookupByEmail(t *testing.T) {
	ctx := context.Background()
	store := record.NewInMemoryStore()
	a := NewPersonAgent(store)

	_, err := store.Create(ctx, record.CollectionPeople, record.Fields{"name": "Ada Lovelace", "email": "ada@example.edu"})
	require.NoError(t, err)
	_, err = store.Create(ctx, record.CollectionPeople, record.Fields{"name": "Grace Hopper", "email": "grace@example.edu"})
	require.NoError(t, err)

	fragment := a.Execute(ctx, model.OperationRequest{
		Target: "person_agent",
		Action: ActionList,
		Fields: map[string]any{"email": "grace@example.edu"},
	})
	assert.Contains(t, fragment, "Found 1 people")
	assert.Contains(t, fragment, "Grace Hopper")
	assert.NotContains(t, fragment, "Ada Lovelace")
}

func TestRecordAgent_GetNotFound(t *testing.T) {
	a := NewProjectAgent(record.NewInMemoryStore())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "project_agent",
		Action: ActionGet,
		Fields: map[string]any{"id": "missing"},
	})
	assert.Equal(t, `No project with id "missing" was found in the projects collection.`, fragment)
}

func TestRecordAgent_Update(t *testing.T) {
	ctx := context.Background()
	store := record.NewInMemoryStore()
	a := NewProjectAgent(store)

	id, err := store.Create(ctx, record.CollectionProjects, record.Fields{"title": "Alpha", "status": "active"})
	require.NoError(t, err)

	fragment := a.Execute(ctx, model.OperationRequest{
		Target: "project_agent",
		Action: ActionUpdate,
		Fields: map[string]any{"id": id, "status": "completed"},
	})
	assert.Contains(t, fragment, "Updated project "+id)
	assert.Contains(t, fragment, "status")

	doc, err := store.Get(ctx, record.CollectionProjects, id)
	require.NoError(t, err)
	assert.Equal(t, "completed", doc.Fields["status"])
	assert.Equal(t, "Alpha", doc.Fields["title"])
}

func TestRecordAgent_UpdateWithoutChanges(t *testing.T) {
	a := NewProjectAgent(record.NewInMemoryStore())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "project_agent",
		Action: ActionUpdate,
		Fields: map[string]any{"id": "some-id"},
	})
	assert.Contains(t, fragment, "Cannot update a project")
	assert.Contains(t, fragment, "no fields provided")
}

func TestRecordAgent_UpdateNotFound(t *testing.T) {
	a := NewPersonAgent(record.NewInMemoryStore())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "person_agent",
		Action: ActionUpdate,
		Fields: map[string]any{"id": "missing", "role": "Investigator"},
	})
	assert.Equal(t, `No person with id "missing" was found in the people collection.`, fragment)
}

func TestRecordAgent_UnknownAction(t *testing.T) {
	a := NewProjectAgent(record.NewInMemoryStore())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "project_agent",
		Action: "delete",
	})
	assert.Contains(t, fragment, "Cannot delete a project")
}

// failingStore returns a fixed error from every call.
type failingStore struct{ err error }

func (f failingStore) List(context.Context, string, record.Fields) ([]record.Document, error) {
	return nil, f.err
}
func (f failingStore) Get(context.Context, string, string) (record.Document, error) {
	return record.Document{}, f.err
}
func (f failingStore) Create(context.Context, string, record.Fields) (string, error) {
	return "", f.err
}
func (f failingStore) Update(context.Context, string, string, record.Fields) error {
	return f.err
}

func TestRecordAgent_StoreFailure(t *testing.T) {
	a := NewProjectAgent(failingStore{err: errors.New("disk on fire")})

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "project_agent",
		Action: ActionList,
	})
	assert.Contains(t, fragment, "currently unavailable")
	assert.NotContains(t, fragment, "disk on fire", "internal errors stay out of user-facing fragments")
}

func TestRecordAgent_OperationMetricsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "json", Output: &buf})
	a := NewProjectAgent(record.NewInMemoryStore(), func(o *Options) { o.Logger = logger })

	a.Execute(context.Background(), model.OperationRequest{
		Target: "project_agent",
		Action: ActionList,
	})
	assert.Contains(t, buf.String(), "Operation completed")

	buf.Reset()
	a.Execute(context.Background(), model.OperationRequest{
		Target: "project_agent",
		Action: ActionGet,
		Fields: map[string]any{"id": "missing"},
	})
	assert.Contains(t, buf.String(), "Operation failed")
}
