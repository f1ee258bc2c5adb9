// Package convert runs the full pipeline: parse charting text into visits,
// serialize them to JSON and optionally redact dictionary words.
//
// Redaction has two scopes. "document" substitutes over the serialized JSON
// string as a whole; "fields" substitutes field by field before
// serializing, which leaves JSON keys untouched whatever the word list
// contains.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"

	"medirecord-converter/internal/anonymizer"
	"medirecord-converter/internal/config"
	"medirecord-converter/internal/logger"
	"medirecord-converter/internal/parser"
	"medirecord-converter/internal/record"
)

// DefaultIndent is the per-level indent of serialized output.
const DefaultIndent = "  "

// Options controls one Converter.
type Options struct {
	Anonymize bool
	Scope     string // config.ScopeDocument or config.ScopeFields
	Indent    string // "" = compact
}

// OptionsFrom derives Options from loaded configuration.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Anonymize: cfg.Anonymize,
		Scope:     cfg.AnonymizeScope,
		Indent:    DefaultIndent,
	}
}

// Converter wires a Parser to an anonymizer Engine.
type Converter struct {
	parser *parser.Parser
	engine *anonymizer.Engine // nil = never redact
	opts   Options
	log    *logger.Logger
}

// New creates a Converter. engine may be nil; a nil logger discards output.
func New(p *parser.Parser, engine *anonymizer.Engine, opts Options, log *logger.Logger) *Converter {
	if p == nil {
		p = parser.New(nil, nil, nil)
	}
	if log == nil {
		log = logger.Discard()
	}
	if opts.Scope == "" {
		opts.Scope = config.ScopeDocument
	}
	return &Converter{parser: p, engine: engine, opts: opts, log: log}
}

// WithAnonymize returns a copy of c with redaction switched on or off. The
// parser and engine are shared.
func (c *Converter) WithAnonymize(on bool) *Converter {
	cp := *c
	cp.opts.Anonymize = on
	return &cp
}

// WithIndent returns a copy of c serializing with the given indent; "" is
// compact.
func (c *Converter) WithIndent(indent string) *Converter {
	cp := *c
	cp.opts.Indent = indent
	return &cp
}

// Options returns the options in effect.
func (c *Converter) Options() Options { return c.opts }

// Result is the outcome of one conversion.
type Result struct {
	Visits       []record.Visit `json:"visits"`
	JSON         string         `json:"-"`
	Anonymized   bool           `json:"anonymized"`
	Replacements int            `json:"replacements"`
}

// Convert parses text and serializes the visits. When redaction is enabled
// and a word list is loaded, Visits and JSON are both redacted.
func (c *Converter) Convert(text string) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("convert_recovered", "%v", r)
			res, err = Result{}, fmt.Errorf("convert: internal error: %v", r)
		}
	}()

	visits := c.parser.Parse(text)
	anonymize := c.opts.Anonymize && c.engine != nil && c.engine.Loaded()

	if anonymize && c.opts.Scope == config.ScopeFields {
		visits, res.Replacements = c.engine.AnonymizeRecords(visits)
		res.Anonymized = true
	}

	doc, err := Marshal(visits, c.opts.Indent)
	if err != nil {
		return Result{}, err
	}

	if anonymize && c.opts.Scope == config.ScopeDocument {
		doc, res.Replacements = c.engine.AnonymizeDocument(doc)
		res.Anonymized = true
		if err := json.Unmarshal([]byte(doc), &visits); err != nil {
			// A word list entry matched JSON syntax; keep the redacted text.
			c.log.Warnf("convert_reparse", "redacted document is not valid JSON: %v", err)
			visits = nil
		}
	}

	if c.opts.Anonymize && !anonymize {
		c.log.Debug("convert_plain", "anonymization requested but no word list is loaded")
	}
	c.log.Infof("convert_done", "%d visits, %d replacements", len(visits), res.Replacements)

	res.Visits = visits
	res.JSON = doc
	return res, nil
}

// Redact anonymizes free text without parsing it. It returns text unchanged
// when no engine or word list is available.
func (c *Converter) Redact(text string) (string, int) {
	if c.engine == nil || !c.engine.Loaded() {
		return text, 0
	}
	return c.engine.AnonymizeDocument(text)
}

// Marshal serializes visits as a JSON array. Empty input yields "[]".
// HTML characters are not escaped so that clinical notation such as "<" and
// "&" survives verbatim.
func Marshal(visits []record.Visit, indent string) (string, error) {
	if visits == nil {
		visits = []record.Visit{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(visits); err != nil {
		return "", fmt.Errorf("marshal visits: %w", err)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
