// Command repcircle-play runs workouts offline in the terminal and bridges
// the RepCircle MCP tools to a remote server over stdio.
package main

import "os"

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
