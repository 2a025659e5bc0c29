package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "constellations",
		Short: "Force-directed diagrams of people and the things they are linked to",
		Long: `constellations lays out a graph of people and things, either freely
with a force simulation or along a timeline, and streams the result to
browser clients or writes it as SVG.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRenderCmd())
	return rootCmd
}
