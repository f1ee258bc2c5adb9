package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"medirecord-converter/internal/config"
	"medirecord-converter/internal/management"
	"medirecord-converter/internal/parser"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		anonymize bool
		output    string
		compact   bool
		verbose   bool
	)
	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert charting text into JSON visit records",
		Long: `Convert reads charting text from file (or stdin when omitted) and writes
a JSON array with one object per visit. Dictionary words are redacted when
anonymization is enabled and the replacement list can be loaded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := a.readInput(cmd, args)
			if err != nil {
				return err
			}

			conv := a.conv
			if cmd.Flags().Changed("anonymize") {
				conv = conv.WithAnonymize(anonymize)
			}
			if compact {
				conv = conv.WithIndent("")
			}
			if conv.Options().Anonymize {
				a.loadWords()
			}

			res, err := conv.Convert(text)
			if err != nil {
				return err
			}
			if verbose {
				fmt.Fprint(cmd.ErrOrStderr(), parser.Summary(res.Visits))
			}
			a.log.Infof("convert", "%d visits, %d replacements", len(res.Visits), res.Replacements)
			return writeOutput(cmd, output, res.JSON)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&anonymize, "anonymize", true, "redact replacement list words (default from config)")
	f.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	f.BoolVar(&compact, "compact", false, "write compact JSON")
	f.BoolVarP(&verbose, "verbose", "v", false, "print a visit summary to stderr")
	return cmd
}

func newAnonymizeCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "anonymize [file]",
		Short: "Redact replacement list words from free text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.loadWords() {
				return fmt.Errorf("no replacement list loaded from %q", a.cfg.ReplacementListPath)
			}
			text, err := a.readInput(cmd, args)
			if err != nil {
				return err
			}
			out, n := a.conv.Redact(text)
			a.log.Infof("anonymize", "%d replacements", n)
			return writeOutput(cmd, output, out)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the management HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.ManagementPort = port
			}
			printBanner(a.cfg)
			if a.cfg.Anonymize {
				a.loadWords()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := management.New(a.cfg, a.conv, a.engine, a.metrics, a.log.Child("MANAGEMENT"))
			if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("management server: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "management port (default from config)")
	return cmd
}

func printBanner(cfg *config.Config) {
	anonymize := "off"
	if cfg.Anonymize {
		anonymize = "on (" + cfg.AnonymizeScope + ")"
	}
	fmt.Printf(`
╔══════════════════════════════════════════════════════╗
║          MediRecord Converter  (Go)                  ║
╚══════════════════════════════════════════════════════╝
  Management API  : %s:%d
  Replacement list: %s
  Glyph           : %s
  Anonymization   : %s
  Continuation    : %s

  Convert over HTTP:
    curl --data-binary @chart.txt http://localhost:%d/convert

  Check status:
    curl http://localhost:%d/status
`, cfg.BindAddress, cfg.ManagementPort,
		cfg.ReplacementListPath,
		cfg.AnonymizationSymbol,
		anonymize,
		cfg.ContinuationPolicy,
		cfg.ManagementPort,
		cfg.ManagementPort)
}
