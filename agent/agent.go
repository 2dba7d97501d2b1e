// Package agent implements the record sub-agents. Each sub-agent owns one
// record type: it validates an operation request against the record's declared
// field set, executes it against the record store and renders the outcome as a
// plain-text fragment. Validation and store failures become explanatory
// fragments, never errors raised to the coordinator. Sub-agents are stateless
// between invocations.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/reslab/reslab/logging"
	"github.com/reslab/reslab/model"
	"github.com/reslab/reslab/record"
)

// Actions accepted by record sub-agents.
const (
	ActionList   = "list"
	ActionGet    = "get"
	ActionCreate = "create"
	ActionUpdate = "update"
)

// ValidationError reports a field-level problem with an operation request.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// Field declares one attribute of a record type.
type Field struct {
	Name        string
	Type        string // JSON schema type: "string", "number", "array"
	Description string
	Required    bool // must be present on create
	Filterable  bool // usable as a list filter
}

// Schema is the declared field set of a record type with its required and
// optional split. It drives validation at the sub-agent boundary and the
// operation catalog exposed to the model.
type Schema struct {
	Singular   string // e.g. "project"
	Plural     string // e.g. "projects"
	Collection string // record store collection name
	Fields     []Field
}

func (s Schema) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) properties(filterableOnly bool) map[string]any {
	props := make(map[string]any)
	for _, f := range s.Fields {
		if filterableOnly && !f.Filterable {
			continue
		}
		prop := map[string]any{"type": f.Type}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		props[f.Name] = prop
	}
	return props
}

// SubAgent is the dispatch boundary the coordinator routes operations to.
// Implementations validate the request, perform the work and render the
// outcome as a plain-text fragment; they never surface errors upward.
type SubAgent interface {
	Name() string
	Description() string
	Operations() []model.OperationDefinition
	Execute(ctx context.Context, op model.OperationRequest) string
}

// RecordAgent is a sub-agent performing one record type's CRUD operations.
type RecordAgent struct {
	name        string
	description string
	schema      Schema
	store       record.Store
	logger      logging.Logger
}

// Options configure a RecordAgent.
type Options struct {
	Logger logging.Logger
}

// NewRecordAgent constructs a sub-agent for the given schema bound to a
// record store.
func NewRecordAgent(schema Schema, description string, store record.Store, optFns ...func(o *Options)) *RecordAgent {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RecordAgent{
		name:        schema.Singular + "_agent",
		description: description,
		schema:      schema,
		store:       store,
		logger:      opts.Logger,
	}
}

// Name returns the sub-agent's identifier, used as the operation target.
func (a *RecordAgent) Name() string { return a.name }

// Description returns a human-readable description of the sub-agent's purpose.
func (a *RecordAgent) Description() string { return a.description }

// Operations returns the catalog entries this sub-agent exposes to the model.
func (a *RecordAgent) Operations() []model.OperationDefinition {
	s := a.schema
	idProp := map[string]any{
		"id": map[string]any{"type": "string", "description": "Identifier of the " + s.Singular},
	}
	createProps := s.properties(false)
	required := []string{}
	for _, f := range s.Fields {
		if f.Required {
			required = append(required, f.Name)
		}
	}
	updateProps := s.properties(false)
	updateProps["id"] = idProp["id"]

	return []model.OperationDefinition{
		{
			Name:        ActionList + "_" + s.Plural,
			Target:      a.name,
			Action:      ActionList,
			Description: fmt.Sprintf("List %s, optionally filtered by exact field values.", s.Plural),
			Parameters:  map[string]any{"type": "object", "properties": s.properties(true)},
		},
		{
			Name:        ActionGet + "_" + s.Singular,
			Target:      a.name,
			Action:      ActionGet,
			Description: fmt.Sprintf("Retrieve all details of a single %s by its identifier.", s.Singular),
			Parameters:  map[string]any{"type": "object", "properties": idProp, "required": []string{"id"}},
		},
		{
			Name:        ActionCreate + "_" + s.Singular,
			Target:      a.name,
			Action:      ActionCreate,
			Description: fmt.Sprintf("Add a new %s. Requires %s.", s.Singular, strings.Join(required, ", ")),
			Parameters:  map[string]any{"type": "object", "properties": createProps, "required": required},
		},
		{
			Name:        ActionUpdate + "_" + s.Singular,
			Target:      a.name,
			Action:      ActionUpdate,
			Description: fmt.Sprintf("Merge new field values into an existing %s. Requires the identifier; unspecified fields are left unchanged.", s.Singular),
			Parameters:  map[string]any{"type": "object", "properties": updateProps, "required": []string{"id"}},
		},
	}
}

// Execute runs an operation request already scoped to this record type and
// returns a natural-language result fragment. All failures (validation, store
// errors, missing records) are converted into explanatory fragments.
func (a *RecordAgent) Execute(ctx context.Context, op model.OperationRequest) string {
	start := time.Now()
	fragment, err := a.execute(ctx, op)
	logOperation(a.logger, a.name, op.Action, time.Since(start), err)
	if err != nil {
		return a.describeFailure(op, err)
	}
	return fragment
}

// logOperation reports the outcome through the richer OperationLogger when the
// configured logger supports it, falling back to plain key/value logging.
func logOperation(logger logging.Logger, target, action string, dur time.Duration, err error) {
	if ol, ok := logger.(logging.OperationLogger); ok {
		ol.LogOperation(target, action, dur, err == nil, err)
		return
	}
	if err != nil {
		logger.Warn("agent.operation.failed",
			"agent", target, "action", action, "error", err.Error(),
			"duration_ms", dur.Milliseconds())
		return
	}
	logger.Info("agent.operation.success",
		"agent", target, "action", action,
		"duration_ms", dur.Milliseconds())
}

func (a *RecordAgent) execute(ctx context.Context, op model.OperationRequest) (string, error) {
	switch op.Action {
	case ActionList:
		return a.list(ctx, op.Fields)
	case ActionGet:
		return a.get(ctx, op.Fields)
	case ActionCreate:
		return a.create(ctx, op.Fields)
	case ActionUpdate:
		return a.update(ctx, op.Fields)
	default:
		return "", &ValidationError{Field: "action", Message: fmt.Sprintf("unsupported action %q", op.Action)}
	}
}

func (a *RecordAgent) list(ctx context.Context, fields map[string]any) (string, error) {
	filter := record.Fields{}
	for k, v := range fields {
		if f, ok := a.schema.field(k); ok && f.Filterable {
			filter[k] = v
		}
	}
	docs, err := a.store.List(ctx, a.schema.Collection, filter)
	if err != nil {
		return "", fmt.Errorf("listing %s: %w", a.schema.Plural, err)
	}
	if len(docs) == 0 {
		if len(filter) > 0 {
			return fmt.Sprintf("No records found in %s matching %s.", a.schema.Plural, renderFilter(filter)), nil
		}
		return fmt.Sprintf("No records found in %s.", a.schema.Plural), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s:\n", len(docs), a.schema.Plural)
	for _, doc := range docs {
		fmt.Fprintf(&b, "- %s: %s\n", doc.ID, a.renderFields(doc.Fields))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *RecordAgent) get(ctx context.Context, fields map[string]any) (string, error) {
	id, err := requireString(fields, "id")
	if err != nil {
		return "", err
	}
	doc, err := a.store.Get(ctx, a.schema.Collection, id)
	if err != nil {
		return "", fmt.Errorf("getting %s %q: %w", a.schema.Singular, id, err)
	}
	return fmt.Sprintf("%s %s: %s", capitalize(a.schema.Singular), doc.ID, a.renderFields(doc.Fields)), nil
}

func (a *RecordAgent) create(ctx context.Context, fields map[string]any) (string, error) {
	if err := a.validate(fields, true); err != nil {
		return "", err
	}
	id, err := a.store.Create(ctx, a.schema.Collection, record.Fields(fields))
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", a.schema.Singular, err)
	}
	label := a.label(fields)
	return fmt.Sprintf("Created %s %q with id %s.", a.schema.Singular, label, id), nil
}

func (a *RecordAgent) update(ctx context.Context, fields map[string]any) (string, error) {
	id, err := requireString(fields, "id")
	if err != nil {
		return "", err
	}
	changes := record.Fields{}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		changes[k] = v
	}
	if len(changes) == 0 {
		return "", &ValidationError{Field: "fields", Message: "no fields provided for update"}
	}
	if err := a.validate(changes, false); err != nil {
		return "", err
	}
	if err := a.store.Update(ctx, a.schema.Collection, id, changes); err != nil {
		return "", fmt.Errorf("updating %s %q: %w", a.schema.Singular, id, err)
	}
	names := make([]string, 0, len(changes))
	for k := range changes {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Sprintf("Updated %s %s (fields: %s).", a.schema.Singular, id, strings.Join(names, ", ")), nil
}

// validate checks field presence and shape against the schema. Required
// fields are enforced only on create; unknown fields are rejected so the
// model cannot invent attributes.
func (a *RecordAgent) validate(fields map[string]any, requireAll bool) error {
	if requireAll {
		for _, f := range a.schema.Fields {
			if !f.Required {
				continue
			}
			v, ok := fields[f.Name]
			if !ok || isEmpty(v) {
				return &ValidationError{Field: f.Name, Message: "required field is missing"}
			}
		}
	}
	for name, value := range fields {
		f, ok := a.schema.field(name)
		if !ok {
			return &ValidationError{Field: name, Message: "unknown field"}
		}
		if !typeMatches(value, f.Type) {
			return &ValidationError{Field: name, Message: fmt.Sprintf("expected type %s, got %T", f.Type, value)}
		}
	}
	return nil
}

// describeFailure turns an internal error into an explanatory fragment.
func (a *RecordAgent) describeFailure(op model.OperationRequest, err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("Cannot %s a %s: %s (%s).", op.Action, a.schema.Singular, verr.Message, verr.Field)
	case errors.Is(err, record.ErrNotFound):
		id, _ := op.Fields["id"].(string)
		return fmt.Sprintf("No %s with id %q was found in the %s collection.", a.schema.Singular, id, a.schema.Plural)
	default:
		return fmt.Sprintf("The %s store is currently unavailable; the %s operation was not completed.", a.schema.Plural, op.Action)
	}
}

// label picks a human-readable identifier for a freshly created record.
func (a *RecordAgent) label(fields map[string]any) string {
	for _, key := range []string{"title", "name"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return a.schema.Singular
}

// renderFields joins schema fields present on the document in declaration
// order, so fragments stay stable across runs.
func (a *RecordAgent) renderFields(fields record.Fields) string {
	return a.schema.render(fields)
}

// render joins declared fields present on the document in declaration order,
// then any extras sorted by name.
func (s Schema) render(fields record.Fields) string {
	parts := make([]string, 0, len(fields))
	seen := map[string]bool{}
	for _, f := range s.Fields {
		if v, ok := fields[f.Name]; ok && !isEmpty(v) {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Name, v))
			seen[f.Name] = true
		}
	}
	extras := make([]string, 0)
	for k, v := range fields {
		if !seen[k] && !isEmpty(v) {
			extras = append(extras, fmt.Sprintf("%s=%v", k, v))
		}
	}
	sort.Strings(extras)
	parts = append(parts, extras...)
	if len(parts) == 0 {
		return "(no fields)"
	}
	return strings.Join(parts, ", ")
}

func renderFilter(filter record.Fields) string {
	parts := make([]string, 0, len(filter))
	for k, v := range filter {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func requireString(fields map[string]any, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", &ValidationError{Field: name, Message: "required field is missing"}
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", &ValidationError{Field: name, Message: "must be a non-empty string"}
	}
	return s, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}

func typeMatches(value any, schemaType string) bool {
	switch schemaType {
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "array":
		_, ok := value.([]any)
		return ok
	default:
		return true
	}
}
