// Package record defines the structured visit record produced by the parser
// and the post-processing passes (cleanup, merge, sort) applied to a raw
// record list before export.
package record

import "strings"

// Section identifies which SOAP field continuation lines are appended to.
type Section int

// SOAP sections, plus the unset state a record starts in.
const (
	SectionUnset Section = iota
	SectionSubject
	SectionObject
	SectionAssessment
	SectionPlan
	SectionComment
	SectionSummary
)

var sectionNames = [...]string{
	SectionUnset:      "",
	SectionSubject:    "subject",
	SectionObject:     "object",
	SectionAssessment: "assessment",
	SectionPlan:       "plan",
	SectionComment:    "comment",
	SectionSummary:    "summary",
}

// String returns the JSON field name of the section, or "" when unset.
func (s Section) String() string {
	if s < 0 || int(s) >= len(sectionNames) {
		return ""
	}
	return sectionNames[s]
}

// TextSections lists the six text sections in output order.
var TextSections = []Section{
	SectionSubject,
	SectionObject,
	SectionAssessment,
	SectionPlan,
	SectionComment,
	SectionSummary,
}

// Visit is one encounter extracted from free text.
// Empty text fields are treated as absent and omitted from JSON.
type Visit struct {
	Timestamp  string `json:"timestamp,omitempty"`
	Department string `json:"department,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Object     string `json:"object,omitempty"`
	Assessment string `json:"assessment,omitempty"`
	Plan       string `json:"plan,omitempty"`
	Comment    string `json:"comment,omitempty"`
	Summary    string `json:"summary,omitempty"`

	// Section is the field continuation lines currently flow into.
	// Only meaningful while the parser is building the record.
	Section Section `json:"-"`
}

// Field returns a pointer to the text field for s, or nil for SectionUnset.
func (v *Visit) Field(s Section) *string {
	switch s {
	case SectionSubject:
		return &v.Subject
	case SectionObject:
		return &v.Object
	case SectionAssessment:
		return &v.Assessment
	case SectionPlan:
		return &v.Plan
	case SectionComment:
		return &v.Comment
	case SectionSummary:
		return &v.Summary
	}
	return nil
}

// Append adds content to the field for s, joining with a line break when the
// field already holds text. Empty content and SectionUnset are no-ops.
func (v *Visit) Append(s Section, content string) {
	f := v.Field(s)
	if f == nil {
		return
	}
	*f = AppendLine(*f, content)
}

// Key identifies the merge group of a visit.
type Key struct {
	Timestamp  string
	Department string
}

// Key returns the (timestamp, department) pair used for merging.
func (v *Visit) Key() Key {
	return Key{Timestamp: v.Timestamp, Department: v.Department}
}

// Complete reports whether the visit has both a timestamp and a department.
func (v *Visit) Complete() bool {
	return v.Timestamp != "" && v.Department != ""
}

// AppendLine joins existing and next with "\n", skipping empty sides.
func AppendLine(existing, next string) string {
	switch {
	case existing == "":
		return next
	case next == "":
		return existing
	}
	return existing + "\n" + next
}

// blankToAbsent maps whitespace-only text to the empty (absent) value.
func blankToAbsent(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
