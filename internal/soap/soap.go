// Package soap assigns the lines of one visit to its SOAP fields.
//
// A marker line ("S > …", "O＞…", "P　…") switches the visit's current
// section. Unmarked lines continue whichever section is open. When no
// section has been opened yet the configured Policy decides where the line
// goes.
package soap

import (
	"strings"

	"medirecord-converter/internal/record"
	"medirecord-converter/internal/segment"
)

// Policy decides the section of an unmarked line when the visit has no
// current section.
type Policy string

// Supported continuation policies.
const (
	// PolicyHeuristic guesses from keywords: objective findings, then
	// assessment language, then plan language, else subject.
	PolicyHeuristic Policy = "heuristic"
	// PolicyComment files every such line under comment.
	PolicyComment Policy = "comment"
)

// ParsePolicy maps a config string to a Policy, defaulting to heuristic.
func ParsePolicy(s string) Policy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(PolicyComment):
		return PolicyComment
	default:
		return PolicyHeuristic
	}
}

// Classifier applies classified lines to visits.
// It holds no per-visit state; the current section lives on the visit.
type Classifier struct {
	policy Policy
}

// New returns a Classifier using the given policy.
func New(policy Policy) *Classifier {
	if policy != PolicyComment {
		policy = PolicyHeuristic
	}
	return &Classifier{policy: policy}
}

// Policy returns the continuation policy in effect.
func (c *Classifier) Policy() Policy { return c.policy }

// Classify classifies a raw line and applies it to v.
// A nil visit is a no-op.
func (c *Classifier) Classify(line string, v *record.Visit) {
	if v == nil {
		return
	}
	c.Apply(v, segment.Classify(line))
}

// Apply mutates v according to an already classified line. Only marker and
// text lines have any effect; blank, header, date and annotation lines
// leave the visit untouched.
func (c *Classifier) Apply(v *record.Visit, l segment.Line) {
	if v == nil {
		return
	}
	switch l.Kind {
	case segment.KindMarker:
		v.Section = l.Section
		if l.Content != "" {
			v.Append(l.Section, l.Content)
		}
	case segment.KindText:
		c.continueLine(v, l.Text)
	}
}

func (c *Classifier) continueLine(v *record.Visit, text string) {
	if v.Section == record.SectionUnset {
		v.Section = c.fallback(text)
	}
	v.Append(v.Section, text)
}

func (c *Classifier) fallback(text string) record.Section {
	if c.policy == PolicyComment {
		return record.SectionComment
	}
	return Guess(text)
}

// Guess picks a section for unmarked text from keyword lists.
func Guess(text string) record.Section {
	switch {
	case containsAny(text, objectiveKeywords):
		return record.SectionObject
	case containsAny(text, assessmentKeywords):
		return record.SectionAssessment
	case containsAny(text, planKeywords):
		return record.SectionPlan
	}
	return record.SectionSubject
}

var objectiveKeywords = []string{
	"結膜", "角膜", "前房", "水晶体", "乳頭", "網膜", "眼圧", "視力",
	"血圧", "体温", "脈拍", "呼吸", "血液検査", "検査結果", "画像", "所見",
	"slit", "cor", "ac", "lens", "disc", "fds", "AVG", "mmHg",
}

var assessmentKeywords = []string{
	"＃", "#", "診断", "評価", "慢性", "症", "病", "疾患", "状態", "不全",
	"出血", "白内障", "緑内障", "進行", "影響",
}

var planKeywords = []string{
	"治療", "処方", "継続", "指導", "制限", "予定", "検討", "再開",
	"維持", "採血", "注射", "薬", "mg", "錠", "単位", "再診",
	"medi", "終了", "指示", "週間後",
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
