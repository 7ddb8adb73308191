package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tsderive/internal/macro"
)

var macrosFormat string

func init() {
	macrosCmd.Flags().StringVar(&macrosFormat, "format", "pretty", "output format (pretty|json)")
}

var macrosCmd = &cobra.Command{
	Use:   "macros",
	Short: "List registered macros",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := newRegistry()
		if err != nil {
			return err
		}
		switch strings.ToLower(macrosFormat) {
		case "pretty":
			return renderMacrosPretty(cmd.OutOrStdout(), reg.Entries())
		case "json":
			return renderMacrosJSON(cmd.OutOrStdout(), reg.Entries())
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", macrosFormat)
		}
	},
}

type macroPayload struct {
	Module      string `json:"module"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Version     uint32 `json:"version"`
	Description string `json:"description,omitempty"`
}

func macroRows(entries []macro.Entry) []macroPayload {
	rows := make([]macroPayload, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, macroPayload{
			Module:      e.Key.Module,
			Name:        e.Key.Name,
			Kind:        e.Macro.Kind().String(),
			Version:     macro.VersionOf(e.Macro),
			Description: macro.DescriptionOf(e.Macro),
		})
	}
	return rows
}

func renderMacrosPretty(out io.Writer, entries []macro.Entry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODULE\tNAME\tKIND\tVERSION\tDESCRIPTION")
	for _, r := range macroRows(entries) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.Module, r.Name, r.Kind, r.Version, r.Description)
	}
	return tw.Flush()
}

func renderMacrosJSON(out io.Writer, entries []macro.Entry) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(macroRows(entries))
}
