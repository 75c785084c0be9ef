package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	dbPath   string
	userFlag string
)

var rootCmd = &cobra.Command{
	Use:          "repcircle-play",
	Short:        "Play RepCircle workouts from the terminal",
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath(), "local SQLite database")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "user id (defaults to one derived from the OS user)")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "repcircle.db"
	}
	return filepath.Join(home, ".repcircle", "local.db")
}

var localUserNamespace = uuid.MustParse("0f6c1c0e-94b2-4f43-a3c1-5d2b8e7a9c41")

// resolveUser parses --user or derives a stable id from the OS account so
// the same person gets the same history without configuration.
func resolveUser() (uuid.UUID, error) {
	if userFlag != "" {
		id, err := uuid.Parse(userFlag)
		if err != nil || id == uuid.Nil {
			return uuid.Nil, fmt.Errorf("invalid --user %q", userFlag)
		}
		return id, nil
	}
	name := os.Getenv("USER")
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return uuid.NewSHA1(localUserNamespace, []byte(name)), nil
}
