package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reslab/reslab/model"
	"github.com/reslab/reslab/record"
)

func TestAdministratorAgent_Operations(t *testing.T) {
	a := NewAdministratorAgent(record.NewInMemoryStore(), model.NewMockClient())

	ops := a.Operations()
	require.Len(t, ops, 1)
	assert.Equal(t, "evaluate_funding_eligibility", ops[0].Name)
	assert.Equal(t, "research_administrator", ops[0].Target)
	assert.Equal(t, ActionEvaluate, ops[0].Action)
}

func TestAdministratorAgent_EvaluateFromDescription(t *testing.T) {
	client := model.NewMockClient()
	a := NewAdministratorAgent(record.NewInMemoryStore(), client)

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "research_administrator",
		Action: ActionEvaluate,
		Fields: map[string]any{"description": "Restoring coral reefs with heat-tolerant symbionts."},
	})
	assert.NotEmpty(t, fragment)
	assert.Contains(t, fragment, "heat-tolerant symbionts")

	// The evaluation prompt must carry the description to the model.
	require.NotEmpty(t, client.Requests)
	req := client.Requests[0]
	assert.Contains(t, req.Instructions, "funding eligibility")
	require.Len(t, req.History, 1)
	assert.Contains(t, req.History[0].Text, "heat-tolerant symbionts")
}

func TestAdministratorAgent_EvaluateByProjectID(t *testing.T) {
	ctx := context.Background()
	store := record.NewInMemoryStore()
	client := model.NewMockClient()
	a := NewAdministratorAgent(store, client)

	id, err := store.Create(ctx, record.CollectionProjects, record.Fields{
		"title":       "Bee Census",
		"status":      "active",
		"description": "Counting native pollinators across three counties.",
	})
	require.NoError(t, err)

	fragment := a.Execute(ctx, model.OperationRequest{
		Target: "research_administrator",
		Action: ActionEvaluate,
		Fields: map[string]any{"project_id": id},
	})
	assert.Contains(t, fragment, "Bee Census")
	assert.Contains(t, fragment, "native pollinators")
}

func TestAdministratorAgent_EvaluateMissingInput(t *testing.T) {
	a := NewAdministratorAgent(record.NewInMemoryStore(), model.NewMockClient())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "research_administrator",
		Action: ActionEvaluate,
	})
	assert.Contains(t, fragment, "Cannot evaluate funding eligibility")
	assert.Contains(t, fragment, "description")
}

func TestAdministratorAgent_EvaluateUnknownProject(t *testing.T) {
	a := NewAdministratorAgent(record.NewInMemoryStore(), model.NewMockClient())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "research_administrator",
		Action: ActionEvaluate,
		Fields: map[string]any{"project_id": "missing"},
	})
	assert.Equal(t, `No project with id "missing" was found in the projects collection.`, fragment)
}

func TestAdministratorAgent_ModelFailure(t *testing.T) {
	client := model.NewMockClient()
	client.FailNext(errors.New("model down"))
	a := NewAdministratorAgent(record.NewInMemoryStore(), client)

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "research_administrator",
		Action: ActionEvaluate,
		Fields: map[string]any{"description": "A project."},
	})
	assert.Contains(t, fragment, "currently unavailable")
	assert.NotContains(t, fragment, "model down")
}

func TestAdministratorAgent_UnknownAction(t *testing.T) {
	a := NewAdministratorAgent(record.NewInMemoryStore(), model.NewMockClient())

	fragment := a.Execute(context.Background(), model.OperationRequest{
		Target: "research_administrator",
		Action: ActionList,
	})
	assert.Contains(t, fragment, "Cannot evaluate funding eligibility")
	assert.Contains(t, fragment, "unsupported action")
}
