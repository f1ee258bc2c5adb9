// Package parser turns a whole buffer of charting text into visit records.
//
// The pass is a single left-to-right walk over the lines. It owns two pieces
// of state: the visit currently being built and the most recent date line.
// For each line, in priority order:
//
//  1. a record header closes the open visit and opens a new one stamped with
//     the pending date and the header's time;
//  2. a date line replaces the pending date and leaves the open visit alone;
//  3. anything else goes to the SOAP classifier if a visit is open, or is
//     discarded if none is.
//
// Closed visits are then cleaned, merged and sorted (see package record).
package parser

import (
	"fmt"
	"strings"
	"time"

	"medirecord-converter/internal/logger"
	"medirecord-converter/internal/metrics"
	"medirecord-converter/internal/record"
	"medirecord-converter/internal/segment"
	"medirecord-converter/internal/soap"
)

// Parser converts charting text into visits. It is safe to reuse across
// calls; each Parse call keeps its state on the stack.
type Parser struct {
	classifier *soap.Classifier
	log        *logger.Logger
	metrics    *metrics.Metrics // nil = no metrics
}

// New creates a Parser. A nil logger discards output; m may be nil.
func New(classifier *soap.Classifier, log *logger.Logger, m *metrics.Metrics) *Parser {
	if classifier == nil {
		classifier = soap.New(soap.PolicyHeuristic)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Parser{classifier: classifier, log: log, metrics: m}
}

// pass is the state of one Parse call.
type pass struct {
	current     *record.Visit
	pendingDate string
	closed      []record.Visit

	lines     int
	discarded int
	opened    int
	finishing bool
}

func (p *pass) close() {
	if p.current != nil {
		p.closed = append(p.closed, *p.current)
		p.current = nil
	}
}

// Parse extracts visits from text. Empty input yields no visits. Parse never
// panics: a failure mid-pass is logged and the visits closed so far are
// post-processed and returned.
func (p *Parser) Parse(text string) (visits []record.Visit) {
	start := time.Now()
	st := &pass{}

	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("parse_recovered", "line %d: %v", st.lines, r)
			if p.metrics != nil {
				p.metrics.ParseRecovered.Add(1)
			}
			if st.finishing {
				visits = []record.Visit{}
				return
			}
			st.close()
			visits = p.finish(st, start)
		}
	}()

	if strings.TrimSpace(text) == "" {
		p.log.Debug("parse_empty", "input is blank")
		return p.finish(st, start)
	}

	for _, raw := range splitLines(text) {
		p.step(st, segment.Classify(raw))
	}
	st.close()
	return p.finish(st, start)
}

func (p *Parser) step(st *pass, l segment.Line) {
	if l.Kind == segment.KindBlank {
		return
	}
	st.lines++

	switch l.Kind {
	case segment.KindHeader:
		st.close()
		st.opened++
		ts := segment.CombineTimestamp(st.pendingDate, l.Header.Time)
		st.current = &record.Visit{Timestamp: ts, Department: l.Header.Department}
		p.log.Debugf("visit_open", "%s %s (date %q)", l.Header.Department, l.Header.Time, st.pendingDate)
		if ts == "" {
			p.log.Debugf("visit_no_timestamp", "%s header without usable date: %q", l.Header.Department, l.Text)
		}
	case segment.KindDate:
		st.pendingDate = l.Date
		p.log.Debugf("date", "%s", l.Date)
	default:
		if st.current == nil {
			st.discarded++
			p.log.Debugf("line_discarded", "no open visit: %q", l.Text)
			return
		}
		p.classifier.Apply(st.current, l)
	}
}

func (p *Parser) finish(st *pass, start time.Time) []record.Visit {
	st.finishing = true
	cleaned := record.Cleanup(st.closed)
	merged := record.Merge(cleaned)
	out := record.Sort(merged)

	dropped := len(st.closed) - len(cleaned)
	folded := len(cleaned) - len(merged)
	p.log.Infof("parse_done", "%d lines, %d headers -> %d visits (%d dropped, %d merged, %d lines discarded)",
		st.lines, st.opened, len(out), dropped, folded, st.discarded)

	if m := p.metrics; m != nil {
		m.Parses.Add(1)
		m.LinesRead.Add(int64(st.lines))
		m.LinesDiscarded.Add(int64(st.discarded))
		m.VisitsOpened.Add(int64(st.opened))
		m.VisitsDropped.Add(int64(dropped))
		m.VisitsMerged.Add(int64(folded))
		m.VisitsEmitted.Add(int64(len(out)))
		m.RecordParseLatency(time.Since(start))
	}
	return out
}

// splitLines splits on CR and LF, dropping the empty pieces between them.
func splitLines(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return r == '\r' || r == '\n' })
}

// Summary renders visits as a short human-readable listing, one visit per
// line. Used by the CLI in verbose mode.
func Summary(visits []record.Visit) string {
	var b strings.Builder
	for _, v := range visits {
		var filled []string
		for _, s := range record.TextSections {
			if *v.Field(s) != "" {
				filled = append(filled, s.String())
			}
		}
		fmt.Fprintf(&b, "%s %s [%s]\n", v.Timestamp, v.Department, strings.Join(filled, ","))
	}
	return b.String()
}
