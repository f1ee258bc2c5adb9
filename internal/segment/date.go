package segment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLine matches a line that is only a date, with an optional weekday in
// half- or full-width parentheses.
var dateLine = regexp.MustCompile(`^(\d{4})/(\d{1,2})/(\d{1,2})(?:[(（][月火水木金土日][)）])?$`)

// datePrefix matches any line that starts with a date. Such lines are
// header-like and never feed a SOAP field.
var datePrefix = regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}`)

// dateLayout is the normalized date prefix a timestamp is built from.
const dateLayout = "2006-01-02T"

// ExtractDate returns the normalized "YYYY-MM-DDT" prefix of a date line.
// Record header lines and impossible calendar dates are not dates.
func ExtractDate(line string) (string, bool) {
	if line == "" || IsRecordHeader(line) {
		return "", false
	}
	m := dateLine.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	d, ok := calendarDate(m[1], m[2], m[3])
	if !ok {
		return "", false
	}
	return d.Format(dateLayout), true
}

// calendarDate builds a date and rejects values time.Date would normalize,
// such as February 30th.
func calendarDate(ys, ms, ds string) (time.Time, bool) {
	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// CombineTimestamp joins a date prefix from ExtractDate with an "H:MM" time
// into "YYYY-MM-DDTHH:MM:00Z". Empty or malformed input yields "".
func CombineTimestamp(date, clock string) string {
	if date == "" || clock == "" {
		return ""
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return ""
	}
	hs, ms, found := strings.Cut(clock, ":")
	if !found {
		return ""
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return ""
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return ""
	}
	return fmt.Sprintf("%s%02d:%02d:00Z", date, h, m)
}
