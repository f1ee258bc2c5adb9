// Package segment recognizes the structural lines of charting text: date
// lines, record headers ("department staff HH:MM …") and SOAP markers.
//
// Recognizers never fail loudly. A line that matches nothing, or matches a
// pattern but carries impossible values, is simply reported as ok == false.
package segment

import (
	"regexp"
	"slices"
	"strings"
)

// departments is the closed vocabulary a record header must start with.
// 耳鼻咽喉科 and 耳鼻科 are both spellings of ENT. The header patterns are
// compiled from it at init.
var departments = []string{
	"内科",
	"外科",
	"透析",
	"整形外科",
	"皮膚科",
	"眼科",
	"耳鼻咽喉科",
	"耳鼻科",
	"泌尿器科",
	"婦人科",
	"小児科",
	"精神科",
	"放射線科",
	"麻酔科",
	"病理科",
	"リハビリ科",
	"薬剤科",
	"検査科",
	"栄養科",
}

// Departments returns a copy of the recognized department names.
func Departments() []string {
	return slices.Clone(departments)
}

// Annotation markers that may trail a record header.
const (
	EmergencyTag = "【救急】"
	LastUpdated  = "最終更新"
)

// Header is the department and clock time pulled from a record header line.
type Header struct {
	Department string
	Time       string
}

const (
	sep     = `[\s　]`
	clock   = `(\d{1,2}:\d{2})`
	updated = `[(（]` + LastUpdated + `.*?[)）]`
	urgent  = EmergencyTag
)

// headerPatterns are tried in order, most specific first. Each captures the
// department in group 1 and the time in group 2.
var headerPatterns = compileHeaderPatterns()

func compileHeaderPatterns() []*regexp.Regexp {
	dept := `^(` + strings.Join(departments, "|") + `)`
	staff := sep + `+.*?` + sep + `+` + clock
	exprs := []string{
		dept + staff + sep + `*` + updated + sep + `*` + urgent,
		dept + staff + sep + `*` + urgent + sep + `*` + updated,
		dept + staff + sep + `*` + updated,
		dept + staff + sep + `*` + urgent,
		dept + staff + `(?:` + sep + `|$)`,
		dept + `.*?` + clock,
	}
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// ExtractHeader matches a trimmed line against the header patterns and
// returns the department and time of the first one that matches.
func ExtractHeader(line string) (Header, bool) {
	if line == "" {
		return Header{}, false
	}
	for _, re := range headerPatterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return Header{Department: m[1], Time: m[2]}, true
	}
	return Header{}, false
}

// isHeaderLine is the loose "looks like a header" probe: a department,
// whitespace and a time somewhere later in the line.
var isHeaderLine = regexp.MustCompile(`^(` + strings.Join(departments, "|") + `)` + sep + `+.*?\d{1,2}:\d{2}`)

// IsRecordHeader reports whether line has the shape of a record header.
func IsRecordHeader(line string) bool {
	return line != "" && isHeaderLine.MatchString(line)
}
