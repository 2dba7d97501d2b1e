package agent

import (
	"github.com/reslab/reslab/record"
)

// PersonSchema is the declared field set for people records. Name and email
// are required; everything else is optional.
var PersonSchema = Schema{
	Singular:   "person",
	Plural:     "people",
	Collection: record.CollectionPeople,
	Fields: []Field{
		{Name: "name", Type: "string", Description: "Full name (firstname lastname)", Required: true, Filterable: true},
		{Name: "email", Type: "string", Description: "Email address", Required: true, Filterable: true},
		{Name: "affiliation", Type: "string", Description: "Affiliated unit, e.g. College of Engineering", Filterable: true},
		{Name: "role", Type: "string", Description: `Role, e.g. "Investigator", "Research Administrator"`, Filterable: true},
	},
}

// NewPersonAgent constructs the sub-agent managing the people collection.
func NewPersonAgent(store record.Store, optFns ...func(o *Options)) *RecordAgent {
	return NewRecordAgent(
		PersonSchema,
		"Manages people records: list, look up, create and update people.",
		store,
		optFns...,
	)
}
