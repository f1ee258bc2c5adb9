// Package anonymizer redacts dictionary words from text.
//
// The dictionary is a replacement list loaded from disk (see wordlist.go).
// Substitution is a literal substring replace with a fixed glyph: there is
// no tokenization and no word-boundary awareness, so a word also matches
// inside longer tokens. Words are applied longest first so that a short word
// cannot split a longer one that contains it.
package anonymizer

import (
	"sort"
	"strings"
	"sync"
	"time"

	"medirecord-converter/internal/logger"
	"medirecord-converter/internal/metrics"
	"medirecord-converter/internal/record"
)

// DefaultGlyph replaces every matched word.
const DefaultGlyph = "●●"

// Engine holds the loaded word set and the running replacement counter.
// All methods are safe for concurrent use; per-pass counts are only
// meaningful when one pass runs at a time.
type Engine struct {
	mu           sync.Mutex
	words        []string // ordered: longest first, then lexicographic
	glyph        string
	listPath     string
	resolvedPath string
	encoding     string
	total        int
	lastLoad     time.Time

	loader  Loader
	log     *logger.Logger
	metrics *metrics.Metrics // nil = no metrics
}

// New creates an Engine with an empty word set. An empty glyph falls back to
// DefaultGlyph. log and m may be nil.
func New(glyph, listPath string, log *logger.Logger, m *metrics.Metrics) *Engine {
	if glyph == "" {
		glyph = DefaultGlyph
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{glyph: glyph, listPath: listPath, log: log, metrics: m}
}

// SetBases overrides the directories a relative list path is resolved
// against. Intended for tests and for embedding callers with their own
// layout.
func (e *Engine) SetBases(bases []string) {
	e.mu.Lock()
	e.loader.Bases = bases
	e.mu.Unlock()
}

// Load reads the configured replacement list. It returns false when no
// candidate file exists or no decoder accepts its contents; the previously
// loaded set is kept in that case.
func (e *Engine) Load() bool {
	e.mu.Lock()
	path, loader := e.listPath, e.loader
	e.mu.Unlock()

	f, err := loader.Read(path)
	if err != nil {
		e.log.Warnf("wordlist_load_failed", "%v", err)
		if e.metrics != nil {
			e.metrics.WordListFailures.Add(1)
		}
		return false
	}

	e.mu.Lock()
	e.words = orderWords(f.Words)
	e.resolvedPath = f.Path
	e.encoding = f.Encoding
	e.lastLoad = time.Now()
	n := len(e.words)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.WordListLoads.Add(1)
	}
	e.log.Infof("wordlist_loaded", "%d words from %s (%s)", n, f.Path, f.Encoding)
	return true
}

// SetWords replaces the word set directly. Blank entries are ignored.
func (e *Engine) SetWords(words []string) {
	set := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			set = append(set, w)
		}
	}
	e.mu.Lock()
	e.words = orderWords(set)
	e.resolvedPath = ""
	e.encoding = ""
	e.lastLoad = time.Now()
	e.mu.Unlock()
	e.log.Debugf("wordlist_set", "%d words", len(set))
}

// orderWords deduplicates and sorts longest first, ties lexicographic.
func orderWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// Anonymize replaces every dictionary word in text with the glyph and adds
// the number of replacements to the running total. Blank text or an empty
// word set returns text unchanged.
func (e *Engine) Anonymize(text string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out, n := e.substitute(text)
	e.total += n
	return out
}

// AnonymizeDocument resets the counter and redacts a whole serialized
// document. It returns the redacted document and the replacement count.
func (e *Engine) AnonymizeDocument(doc string) (string, int) {
	start := time.Now()
	e.mu.Lock()
	e.total = 0
	out, n := e.substitute(doc)
	e.total = n
	e.mu.Unlock()

	e.observe(n, start)
	return out, n
}

// AnonymizeRecords resets the counter and redacts each string field of each
// visit. The input slice is not modified.
func (e *Engine) AnonymizeRecords(visits []record.Visit) ([]record.Visit, int) {
	start := time.Now()
	out := make([]record.Visit, len(visits))

	e.mu.Lock()
	e.total = 0
	for i, v := range visits {
		for _, f := range []*string{
			&v.Timestamp, &v.Department,
			&v.Subject, &v.Object, &v.Assessment, &v.Plan, &v.Comment, &v.Summary,
		} {
			var n int
			*f, n = e.substitute(*f)
			e.total += n
		}
		out[i] = v
	}
	n := e.total
	e.mu.Unlock()

	e.observe(n, start)
	return out, n
}

func (e *Engine) observe(n int, start time.Time) {
	e.log.Debugf("anonymize_done", "%d replacements", n)
	if m := e.metrics; m != nil {
		m.AnonymizePasses.Add(1)
		m.Replacements.Add(int64(n))
		m.RecordAnonLatency(time.Since(start))
	}
}

// substitute must be called with e.mu held.
func (e *Engine) substitute(text string) (string, int) {
	if len(e.words) == 0 || strings.TrimSpace(text) == "" {
		return text, 0
	}
	total := 0
	for _, w := range e.words {
		if n := strings.Count(text, w); n > 0 {
			total += n
			text = strings.ReplaceAll(text, w, e.glyph)
		}
	}
	return text, total
}

// Reset zeroes the running replacement counter.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.total = 0
	e.mu.Unlock()
}

// Loaded reports whether a non-empty word set is present.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.words) > 0
}

// Stats is an observational summary of the engine state.
type Stats struct {
	TotalReplacements int       `json:"totalReplacements"`
	WordCount         int       `json:"wordCount"`
	LastLoad          time.Time `json:"lastLoad"`
	Glyph             string    `json:"glyph"`
	ListPath          string    `json:"listPath"`
	ResolvedPath      string    `json:"resolvedPath,omitempty"`
	Encoding          string    `json:"encoding,omitempty"`
}

// Stats returns a snapshot of the counter and word set.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		TotalReplacements: e.total,
		WordCount:         len(e.words),
		LastLoad:          e.lastLoad,
		Glyph:             e.glyph,
		ListPath:          e.listPath,
		ResolvedPath:      e.resolvedPath,
		Encoding:          e.encoding,
	}
}
