package main

import (
	"errors"
	"os"

	"github.com/meltforce/repcircle/internal/logging"
	"github.com/meltforce/repcircle/internal/mcp"
	"github.com/spf13/cobra"
)

var (
	mcpRemote string
	mcpAPIKey string
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the RepCircle MCP tools over stdio against a remote server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if mcpRemote == "" {
			return errors.New("--remote is required")
		}
		userID, err := resolveUser()
		if err != nil {
			return err
		}
		if mcpAPIKey == "" {
			mcpAPIKey = os.Getenv("REPCIRCLE_AUTH_API_KEY")
		}

		// stdout carries the protocol.
		log := logging.New(os.Stderr, "info", "text")
		client := mcp.NewHTTPClient(mcpRemote, mcpAPIKey)
		log.Info("serving MCP over stdio", "remote", mcpRemote, "user_id", userID)
		return mcp.ServeStdio(mcp.New(client, Version, log), userID)
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpRemote, "remote", "", "RepCircle server URL")
	mcpCmd.Flags().StringVar(&mcpAPIKey, "api-key", "", "API key for write tools (default $REPCIRCLE_AUTH_API_KEY)")
	rootCmd.AddCommand(mcpCmd)
}
