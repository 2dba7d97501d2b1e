package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reslab/reslab/logging"
	"github.com/reslab/reslab/model"
	"github.com/reslab/reslab/record"
)

// ActionEvaluate assesses a project description against funding criteria.
const ActionEvaluate = "evaluate"

// eligibilityInstructions drive the funding assessment. The criteria follow
// standard federal grant review practice: merit, impact, clarity, feasibility.
const eligibilityInstructions = `You are an expert research grant proposal evaluator. ` +
	`Assess the funding eligibility of the project description in the last message against standard review criteria. ` +
	`For each criterion give a concise assessment of one to three sentences:
1. Intellectual merit: potential to advance knowledge, originality, clarity of research questions.
2. Broader impacts: potential to benefit society, contribution to real-world problems, dissemination plans.
3. Clarity and conciseness: is the description well organized and free of unnecessary jargon?
4. Feasibility and methodology: are the proposed methods sound and the plan realistic for the scope?
Finish with an overall eligibility recommendation (Highly Eligible, Potentially Eligible, Not Eligible, or Requires Significant Revision) and a confidence score from 0 to 100 percent. ` +
	`Respond in plain text, never in markup. The principal investigator remains accountable for the final eligibility determination; your assessment supports that decision.`

// AdministratorAgent is the research administration sub-agent. It carries no
// record schema of its own: it evaluates funding eligibility of a project
// description through the text-completion client, resolving stored projects by
// id when no description is supplied.
type AdministratorAgent struct {
	name        string
	description string
	client      model.Client
	store       record.Store
	logger      logging.Logger
}

// NewAdministratorAgent constructs the research administration sub-agent
// bound to the record store (for project lookups) and the completion client.
func NewAdministratorAgent(store record.Store, client model.Client, optFns ...func(o *Options)) *AdministratorAgent {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &AdministratorAgent{
		name:        "research_administrator",
		description: "Supports research administration tasks: evaluates the funding eligibility of projects against standard review criteria.",
		client:      client,
		store:       store,
		logger:      opts.Logger,
	}
}

// Name returns the sub-agent's identifier, used as the operation target.
func (a *AdministratorAgent) Name() string { return a.name }

// Description returns a human-readable description of the sub-agent's purpose.
func (a *AdministratorAgent) Description() string { return a.description }

// Operations returns the catalog entries this sub-agent exposes to the model.
func (a *AdministratorAgent) Operations() []model.OperationDefinition {
	return []model.OperationDefinition{
		{
			Name:        "evaluate_funding_eligibility",
			Target:      a.name,
			Action:      ActionEvaluate,
			Description: "Evaluate the funding eligibility of a research project against standard review criteria. Supply the project description directly, or the id of a stored project to evaluate its recorded details.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id":  map[string]any{"type": "string", "description": "Identifier of a stored project to evaluate"},
					"description": map[string]any{"type": "string", "description": "Project description text to evaluate"},
				},
			},
		},
	}
}

// Execute runs an evaluation request and returns a plain-text assessment
// fragment. Missing input, unknown project ids and model failures all become
// explanatory fragments.
func (a *AdministratorAgent) Execute(ctx context.Context, op model.OperationRequest) string {
	start := time.Now()
	fragment, err := a.execute(ctx, op)
	logOperation(a.logger, a.name, op.Action, time.Since(start), err)
	if err != nil {
		return a.describeFailure(op, err)
	}
	return fragment
}

func (a *AdministratorAgent) execute(ctx context.Context, op model.OperationRequest) (string, error) {
	if op.Action != ActionEvaluate {
		return "", &ValidationError{Field: "action", Message: fmt.Sprintf("unsupported action %q", op.Action)}
	}

	subject, err := a.subject(ctx, op.Fields)
	if err != nil {
		return "", err
	}

	resp, err := a.client.Complete(ctx, model.Request{
		Instructions: eligibilityInstructions,
		History: []model.Message{{
			Role: "user",
			Text: "Project description:\n" + subject,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("evaluating eligibility: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("evaluating eligibility: %w", model.ErrMalformedOutput)
	}
	return resp.Text, nil
}

// subject resolves the text to evaluate: the supplied description, or the
// rendered fields of a stored project when only an id is given.
func (a *AdministratorAgent) subject(ctx context.Context, fields map[string]any) (string, error) {
	if desc, ok := fields["description"].(string); ok && desc != "" {
		return desc, nil
	}
	id, ok := fields["project_id"].(string)
	if !ok || id == "" {
		return "", &ValidationError{Field: "description", Message: "provide a project description or the id of a stored project"}
	}
	doc, err := a.store.Get(ctx, record.CollectionProjects, id)
	if err != nil {
		return "", fmt.Errorf("resolving project %q: %w", id, err)
	}
	return ProjectSchema.render(doc.Fields), nil
}

func (a *AdministratorAgent) describeFailure(op model.OperationRequest, err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return fmt.Sprintf("Cannot evaluate funding eligibility: %s (%s).", verr.Message, verr.Field)
	case errors.Is(err, record.ErrNotFound):
		id, _ := op.Fields["project_id"].(string)
		return fmt.Sprintf("No project with id %q was found in the projects collection.", id)
	default:
		return "The funding eligibility evaluation is currently unavailable; please try again."
	}
}
