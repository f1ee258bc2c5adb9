// Package metrics keeps lock-minimal counters for conversion and
// anonymization passes.
//
// Counters use sync/atomic so they can be bumped from concurrent management
// handlers. Latency statistics use a single mutex per dimension and are
// updated at most once per pass.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds all runtime counters for one converter instance.
// The zero value is usable; New additionally records the start time.
type Metrics struct {
	// Parser counters
	Parses         atomic.Int64 // Parse calls
	LinesRead      atomic.Int64 // non-blank lines seen
	LinesDiscarded atomic.Int64 // lines seen before any record header
	VisitsOpened   atomic.Int64 // record headers recognized
	VisitsDropped  atomic.Int64 // incomplete visits removed by cleanup
	VisitsMerged   atomic.Int64 // visits folded into an earlier same-key visit
	VisitsEmitted  atomic.Int64 // visits in final output
	ParseRecovered atomic.Int64 // panics recovered inside Parse

	// Anonymizer counters
	AnonymizePasses  atomic.Int64
	Replacements     atomic.Int64
	WordListLoads    atomic.Int64
	WordListFailures atomic.Int64

	parseMu   sync.Mutex
	parseStat latencyStats

	anonMu   sync.Mutex
	anonStat latencyStats

	startTime time.Time
}

// New returns a Metrics with the start time recorded.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordParseLatency records the duration of one parse pass.
func (m *Metrics) RecordParseLatency(d time.Duration) {
	m.parseMu.Lock()
	m.parseStat.record(float64(d.Microseconds()) / 1000.0)
	m.parseMu.Unlock()
}

// RecordAnonLatency records the duration of one anonymization pass.
func (m *Metrics) RecordAnonLatency(d time.Duration) {
	m.anonMu.Lock()
	m.anonStat.record(float64(d.Microseconds()) / 1000.0)
	m.anonMu.Unlock()
}

// Snapshot returns a point-in-time copy of all metrics, safe for JSON encoding.
func (m *Metrics) Snapshot() Snapshot {
	m.parseMu.Lock()
	parse := m.parseStat.snapshot()
	m.parseMu.Unlock()

	m.anonMu.Lock()
	anon := m.anonStat.snapshot()
	m.anonMu.Unlock()

	var uptime float64
	if !m.startTime.IsZero() {
		uptime = time.Since(m.startTime).Seconds()
	}

	return Snapshot{
		Parser: ParserSnapshot{
			Parses:         m.Parses.Load(),
			LinesRead:      m.LinesRead.Load(),
			LinesDiscarded: m.LinesDiscarded.Load(),
			VisitsOpened:   m.VisitsOpened.Load(),
			VisitsDropped:  m.VisitsDropped.Load(),
			VisitsMerged:   m.VisitsMerged.Load(),
			VisitsEmitted:  m.VisitsEmitted.Load(),
			Recovered:      m.ParseRecovered.Load(),
		},
		Anonymizer: AnonymizerSnapshot{
			Passes:           m.AnonymizePasses.Load(),
			Replacements:     m.Replacements.Load(),
			WordListLoads:    m.WordListLoads.Load(),
			WordListFailures: m.WordListFailures.Load(),
		},
		Latency: LatencyGroup{
			ParseMs:         parse,
			AnonymizationMs: anon,
		},
		UptimeSecs: uptime,
	}
}

// --- JSON-serialisable snapshot types ---

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Parser     ParserSnapshot     `json:"parser"`
	Anonymizer AnonymizerSnapshot `json:"anonymizer"`
	Latency    LatencyGroup       `json:"latency"`
	UptimeSecs float64            `json:"uptimeSecs"`
}

// ParserSnapshot holds parse pass counters.
type ParserSnapshot struct {
	Parses         int64 `json:"parses"`
	LinesRead      int64 `json:"linesRead"`
	LinesDiscarded int64 `json:"linesDiscarded"`
	VisitsOpened   int64 `json:"visitsOpened"`
	VisitsDropped  int64 `json:"visitsDropped"`
	VisitsMerged   int64 `json:"visitsMerged"`
	VisitsEmitted  int64 `json:"visitsEmitted"`
	Recovered      int64 `json:"recovered"`
}

// AnonymizerSnapshot holds substitution and word list counters.
type AnonymizerSnapshot struct {
	Passes           int64 `json:"passes"`
	Replacements     int64 `json:"replacements"`
	WordListLoads    int64 `json:"wordListLoads"`
	WordListFailures int64 `json:"wordListFailures"`
}

// LatencyGroup groups the two latency dimensions.
type LatencyGroup struct {
	ParseMs         LatencySnapshot `json:"parseMs"`
	AnonymizationMs LatencySnapshot `json:"anonymizationMs"`
}

// LatencySnapshot is a min/mean/max summary for one latency dimension.
type LatencySnapshot struct {
	Count  int64   `json:"count"`
	MinMs  float64 `json:"minMs"`
	MeanMs float64 `json:"meanMs"`
	MaxMs  float64 `json:"maxMs"`
}

// --- internal accumulator ---

type latencyStats struct {
	count int64
	sum   float64
	min   float64
	max   float64
}

func (s *latencyStats) record(ms float64) {
	s.count++
	s.sum += ms
	if s.count == 1 || ms < s.min {
		s.min = ms
	}
	if ms > s.max {
		s.max = ms
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *latencyStats) snapshot() LatencySnapshot {
	if s.count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count:  s.count,
		MinMs:  round2(s.min),
		MeanMs: round2(s.sum / float64(s.count)),
		MaxMs:  round2(s.max),
	}
}
