package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/williballenthin/EVTXtract/evtx"
	"github.com/williballenthin/EVTXtract/evtx/logger"
	"github.com/williballenthin/EVTXtract/internal/mmfile"
)

func init() {
	rootCmd.AddCommand(newExtractCmd())
}

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <image>",
		Short: "Carve and reconstruct EVTX records from a raw image",
		Long: `The extract command maps the given file read-only and runs the
two-pass reconstruction pipeline over it, printing one reconstructed
record per line.

Example:
  evtxtract extract disk.img
  evtxtract extract disk.img --json > records.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(args)
		},
	}
	return cmd
}

// outputRecord is the JSON-mode shape for both Complete and Incomplete
// records; Complete records carry xml, Incomplete records carry their
// substitutions (omitted when none were recovered).
type outputRecord struct {
	Offset        uint64              `json:"offset"`
	EventID       uint32              `json:"event_id,omitempty"`
	Complete      bool                `json:"complete"`
	XML           string              `json:"xml,omitempty"`
	Substitutions []substitutionField `json:"substitutions,omitempty"`
}

type substitutionField struct {
	Type  byte   `json:"type"`
	Value string `json:"value"`
}

func runExtract(args []string) error {
	path := args[0]

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger.Init(logger.Options{Enabled: true, Level: level, Writer: os.Stderr})

	printInfo("Mapping %s\n", path)
	data, cleanup, err := mmfile.Map(path)
	if err != nil {
		return fmt.Errorf("failed to map %s: %w", path, err)
	}
	defer cleanup()

	var complete, incomplete int
	for rec := range evtx.Extract(data) {
		switch {
		case rec.Complete != nil:
			complete++
			if err := emitComplete(*rec.Complete); err != nil {
				printError("failed to emit record at 0x%x: %v\n", rec.Complete.Offset, err)
			}
		case rec.Incomplete != nil:
			incomplete++
			if err := emitIncomplete(*rec.Incomplete); err != nil {
				printError("failed to emit record at 0x%x: %v\n", rec.Incomplete.Offset, err)
			}
		}
	}

	printInfo("\n%d complete, %d incomplete\n", complete, incomplete)
	return nil
}

func emitComplete(c evtx.Complete) error {
	if jsonOut {
		return printJSON(outputRecord{Offset: c.Offset, EventID: c.EventID, Complete: true, XML: c.XML})
	}
	fmt.Println(c.XML)
	return nil
}

func emitIncomplete(r evtx.Incomplete) error {
	fields := make([]substitutionField, len(r.Substitutions))
	for i, s := range r.Substitutions {
		fields[i] = substitutionField{Type: s.Type, Value: s.Value.Rendered}
	}
	if jsonOut {
		return printJSON(outputRecord{Offset: r.Offset, EventID: r.EventID, Complete: false, Substitutions: fields})
	}

	values, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	fmt.Printf("<Incomplete offset=\"0x%x\" event_id=\"%d\" substitutions=%s/>\n", r.Offset, r.EventID, values)
	return nil
}
