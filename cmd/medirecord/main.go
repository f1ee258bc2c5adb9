// Command medirecord converts clinical charting text into SOAP visit records
// and redacts dictionary words from the result.
//
// Usage:
//
//	# Convert a chart export, redacting names from replacement_list.txt
//	medirecord convert chart.txt -o visits.json
//
//	# Read from stdin, keep names
//	pbpaste | medirecord convert --anonymize=false
//
//	# Redact free text only
//	medirecord anonymize note.txt
//
//	# Run the management API on 127.0.0.1:8090
//	medirecord serve
//
// Configuration is read from medirecord-config.json (or --config) and the
// environment; flags override both.
package main

import (
	"os"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
