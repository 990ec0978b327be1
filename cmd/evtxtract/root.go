package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	quiet   bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "evtxtract",
	Short: "Carve and reconstruct Windows Event Log records from raw images",
	Long: `evtxtract recovers EVTX records from a raw disk image, unallocated
space, or a damaged .evtx file. It reconstructs complete event XML wherever
a matching template can be identified, and preserves the raw substitutions
of any record it cannot.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress messages; records and errors are still printed")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output one JSON object per record")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	return encoder.Encode(v)
}
