package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type printer struct {
	w      io.Writer
	format string
}

func newPrinter(w io.Writer, format string) (*printer, error) {
	switch format {
	case "text", "json", "yaml":
		return &printer{w: w, format: format}, nil
	default:
		return nil, fmt.Errorf("%w: unknown output format %q", errUsage, format)
	}
}

// print renders v as json or yaml, or calls text with a tab-aligned writer.
func (p *printer) print(v any, text func(tw *tabwriter.Writer)) error {
	switch p.format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("launchpad: encode json: %w", err)
		}
		_, err = fmt.Fprintf(p.w, "%s\n", data)
		return err
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("launchpad: encode yaml: %w", err)
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
		text(tw)
		return tw.Flush()
	}
}
