package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "notepipe",
	Short: "Turn scanned handwritten notes into Markdown documents",
	Long: `notepipe picks up note scans from a cloud folder, transcribes and refines them
with a vision-capable model, and publishes a Markdown document next to the image.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, json, toml)")
	rootCmd.AddCommand(runCmd, watchCmd, loginCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
