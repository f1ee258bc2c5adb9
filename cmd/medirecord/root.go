package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"medirecord-converter/internal/anonymizer"
	"medirecord-converter/internal/config"
	"medirecord-converter/internal/convert"
	"medirecord-converter/internal/logger"
	"medirecord-converter/internal/metrics"
	"medirecord-converter/internal/parser"
	"medirecord-converter/internal/soap"
)

// app is the wired pipeline shared by all subcommands.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	engine  *anonymizer.Engine
	conv    *convert.Converter
}

// rootOptions holds persistent flag values.
type rootOptions struct {
	configFile string
	logLevel   string
	listPath   string
	policy     string
	scope      string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	root := &cobra.Command{
		Use:   "medirecord",
		Short: "Convert clinical charting text into SOAP visit records",
		Long: `
medirecord turns charting text exported from an electronic medical record
into one JSON record per visit, filed under subject, object, assessment,
plan, comment and summary, and redacts the words listed in a replacement
list before the result leaves the machine.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "config file (default is ./"+config.DefaultFile+")")
	pf.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&opts.listPath, "list", "", "replacement list path")
	pf.StringVar(&opts.policy, "policy", "", "unmarked first-line policy: heuristic or comment")
	pf.StringVar(&opts.scope, "scope", "", "anonymization scope: document or fields")

	root.AddCommand(newConvertCmd(a), newAnonymizeCmd(a), newServeCmd(a))
	return root
}

// setup loads configuration, applies flag overrides and wires the pipeline.
func (a *app) setup(cmd *cobra.Command, opts *rootOptions) error {
	cfg := config.LoadFrom(opts.configFile)
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.listPath != "" {
		cfg.ReplacementListPath = opts.listPath
	}
	if opts.policy != "" {
		cfg.ContinuationPolicy = opts.policy
	}
	if opts.scope != "" {
		cfg.AnonymizeScope = opts.scope
	}

	switch soap.Policy(strings.ToLower(cfg.ContinuationPolicy)) {
	case soap.PolicyHeuristic, soap.PolicyComment:
	default:
		return fmt.Errorf("unknown policy %q (want heuristic or comment)", cfg.ContinuationPolicy)
	}
	cfg.AnonymizeScope = strings.ToLower(cfg.AnonymizeScope)
	if cfg.AnonymizeScope != config.ScopeDocument && cfg.AnonymizeScope != config.ScopeFields {
		return fmt.Errorf("unknown scope %q (want document or fields)", cfg.AnonymizeScope)
	}

	base := logger.NewWriter("CLI", cfg.LogLevel, cmd.ErrOrStderr())
	a.cfg = cfg
	a.log = base
	a.metrics = metrics.New()
	a.engine = anonymizer.New(cfg.AnonymizationSymbol, cfg.ReplacementListPath, base.Child("ANONYMIZER"), a.metrics)
	p := parser.New(soap.New(soap.ParsePolicy(cfg.ContinuationPolicy)), base.Child("PARSER"), a.metrics)
	a.conv = convert.New(p, a.engine, convert.OptionsFrom(cfg), base.Child("CONVERT"))
	return nil
}

// loadWords loads the replacement list once. A failure is logged and
// reported; callers decide whether it is fatal.
func (a *app) loadWords() bool {
	if a.engine.Loaded() {
		return true
	}
	if !a.engine.Load() {
		a.log.Warnf("wordlist", "replacement list %q unavailable, output will not be anonymized", a.cfg.ReplacementListPath)
		return false
	}
	return true
}

// readInput reads the named file, or stdin when args is empty, up to
// cfg.MaxInputBytes. File contents go through the same decoder list as
// replacement lists so legacy-encoded exports are accepted.
func (a *app) readInput(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	name := "stdin"
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0]) // #nosec G304 -- path supplied by the operator
		if err != nil {
			return "", fmt.Errorf("open input: %w", err)
		}
		defer f.Close() //nolint:errcheck // read-only
		r, name = f, args[0]
	}

	data, err := io.ReadAll(io.LimitReader(r, a.cfg.MaxInputBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(data)) > a.cfg.MaxInputBytes {
		return "", fmt.Errorf("%s exceeds %d bytes", name, a.cfg.MaxInputBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}

	text, enc, err := anonymizer.Decode(data, anonymizer.DefaultDecoders)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	a.log.Debugf("input", "%s: %d bytes (%s)", name, len(data), enc)
	return text, nil
}

// writeOutput writes s to path, or to stdout when path is empty or "-".
func writeOutput(cmd *cobra.Command, path, s string) error {
	if path == "" || path == "-" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), s)
		return err
	}
	if err := os.WriteFile(path, []byte(s+"\n"), 0o600); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
