package agent

import (
	"github.com/reslab/reslab/record"
)

// ProjectSchema is the declared field set for research projects. Title and
// status are required; everything else is optional.
var ProjectSchema = Schema{
	Singular:   "project",
	Plural:     "projects",
	Collection: record.CollectionProjects,
	Fields: []Field{
		{Name: "title", Type: "string", Description: "Project title", Required: true},
		{Name: "status", Type: "string", Description: `Project status, e.g. "Planning", "Active", "Completed", "On Hold"`, Required: true, Filterable: true},
		{Name: "investigator", Type: "string", Description: "Lead investigator name"},
		{Name: "description", Type: "string", Description: "Free-form project description"},
		{Name: "sponsor", Type: "string", Description: "Sponsoring organization, e.g. National Institutes of Health", Filterable: true},
		{Name: "affiliation", Type: "string", Description: "Affiliated unit, e.g. College of Engineering", Filterable: true},
		{Name: "start_date", Type: "string", Description: "Start date (YYYY-MM-DD)"},
		{Name: "end_date", Type: "string", Description: "End date (YYYY-MM-DD)"},
		{Name: "human_subjects", Type: "string", Description: `"yes" or "no"`},
		{Name: "animal_subjects", Type: "string", Description: `"yes" or "no"`},
		{Name: "award_amount", Type: "number", Description: "Award amount in USD"},
		{Name: "award_number", Type: "string", Description: "Sponsor award number"},
		{Name: "tags", Type: "array", Description: "Free-form tags"},
	},
}

// NewProjectAgent constructs the sub-agent managing the projects collection.
func NewProjectAgent(store record.Store, optFns ...func(o *Options)) *RecordAgent {
	return NewRecordAgent(
		ProjectSchema,
		"Manages research project records: list, look up, create and update projects.",
		store,
		optFns...,
	)
}
