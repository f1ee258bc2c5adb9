package segment

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"

	"medirecord-converter/internal/record"
)

// Kind tags what a single line of charting text is.
type Kind int

// Line kinds, in the priority order Classify checks them.
const (
	KindBlank      Kind = iota // empty or whitespace-only
	KindHeader                 // record header: opens a new visit
	KindDate                   // date line: sets the pending date
	KindMarker                 // SOAP marker, optionally with content
	KindAnnotation             // header-like text that must not feed a field
	KindText                   // unmarked continuation text
)

var kindNames = [...]string{"blank", "header", "date", "marker", "annotation", "text"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Line is the classification of one trimmed input line. Only the fields
// relevant to Kind are set.
type Line struct {
	Kind Kind
	Text string // trimmed line

	Header Header // KindHeader
	Date   string // KindDate: "YYYY-MM-DDT"

	Section record.Section // KindMarker
	Content string         // KindMarker: text after the marker, may be empty
}

// marker maps a SOAP marker to its section.
type marker struct {
	prefix  string
	section record.Section
}

// markers are tried in this order against folded text, so full-width Ｓ
// and half-width ｻ match as S and サ.
var markers = []marker{
	{"S", record.SectionSubject},
	{"O", record.SectionObject},
	{"A", record.SectionAssessment},
	{"P", record.SectionPlan},
	{"F", record.SectionComment},
	{"サ", record.SectionSummary},
}

// markerSeparators follow a marker; all are tried before the next marker.
var markerSeparators = []string{" >", ">", " ", "　"}

// MatchMarker reports whether a trimmed line opens a SOAP section and returns
// the trimmed content after the marker. The marker is recognized on the
// folded line; content is cut from the original and keeps its width.
func MatchMarker(line string) (record.Section, string, bool) {
	folded := Fold(line)
	for _, mk := range markers {
		if !strings.HasPrefix(folded, mk.prefix) {
			continue
		}
		rest := folded[len(mk.prefix):]
		for _, sep := range markerSeparators {
			if strings.HasPrefix(rest, sep) {
				n := utf8.RuneCountInString(mk.prefix + sep)
				return mk.section, strings.TrimSpace(string([]rune(line)[n:])), true
			}
		}
	}
	return record.SectionUnset, "", false
}

// Fold maps full-width digits and punctuation to ASCII and half-width
// katakana to full-width, so "２０２４／１２／２５" reads as a date line.
// Only recognition sees folded text; stored content keeps the original.
func Fold(s string) string {
	return width.Fold.String(s)
}

// IsHeaderLike reports whether a line belongs to the header block of a
// visit: a date-prefixed line, a record header, or a line carrying the
// emergency tag or last-updated note.
func IsHeaderLike(line string) bool {
	return datePrefix.MatchString(line) ||
		IsRecordHeader(line) ||
		strings.Contains(line, EmergencyTag) ||
		strings.Contains(line, LastUpdated)
}

// Classify tags a raw line. Recognition runs once here so callers can act on
// the result without probing the line again.
func Classify(raw string) Line {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Line{Kind: KindBlank}
	}
	folded := Fold(text)
	if h, ok := ExtractHeader(folded); ok {
		return Line{Kind: KindHeader, Text: text, Header: h}
	}
	if d, ok := ExtractDate(folded); ok {
		return Line{Kind: KindDate, Text: text, Date: d}
	}
	if s, content, ok := MatchMarker(text); ok {
		return Line{Kind: KindMarker, Text: text, Section: s, Content: content}
	}
	if IsHeaderLike(folded) {
		return Line{Kind: KindAnnotation, Text: text}
	}
	return Line{Kind: KindText, Text: text}
}
