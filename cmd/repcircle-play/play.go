package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/google/uuid"
	"github.com/meltforce/repcircle/internal/config"
	"github.com/meltforce/repcircle/internal/localstore"
	"github.com/meltforce/repcircle/internal/logging"
	"github.com/meltforce/repcircle/internal/planfile"
	"github.com/meltforce/repcircle/internal/player"
	"github.com/meltforce/repcircle/internal/tui"
	"github.com/spf13/cobra"
)

var (
	playFresh   bool
	playLogFile string
	playTick    time.Duration
)

var playCmd = &cobra.Command{
	Use:   "play <plan.yaml>",
	Short: "Play a planned workout",
	Long: "Play a planned workout from a YAML file. An unfinished session of the\n" +
		"same plan is resumed unless --fresh is given.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(os.Stdin.Fd()) {
			return errors.New("play needs an interactive terminal")
		}
		userID, err := resolveUser()
		if err != nil {
			return err
		}
		plan, err := planfile.Load(args[0], userID)
		if err != nil {
			return err
		}

		log, closer := playLogger()
		if closer != nil {
			defer closer.Close()
		}

		store, err := localstore.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		sess, err := openSession(ctx, store, plan.ID, userID, log, func(opts ...player.Option) (*player.Session, error) {
			opts = append(opts,
				player.WithLogger(log),
				player.WithRestTimer(player.NewRestTimer(player.WithTickInterval(playTick))))
			return player.New(plan, userID, store, opts...)
		})
		if err != nil {
			return err
		}
		if err := store.RememberExercises(ctx, plan.Exercises); err != nil {
			return err
		}
		if _, err := sess.Start(ctx); err != nil {
			return err
		}

		final, err := tui.Run(ctx, sess)
		if err != nil {
			sess.Abandon()
			return fmt.Errorf("running player: %w", err)
		}

		out := cmd.OutOrStdout()
		st := final.State()
		if _, ok := final.Finished(); ok {
			fmt.Fprintf(out, "Finished %s: %d/%d sets in %s\n", plan.Name, st.CompletedSets, st.TotalSets, player.FormatClock(st.ElapsedSeconds))
		} else {
			fmt.Fprintf(out, "Paused %s at %d/%d sets. Run play again to resume.\n", plan.Name, st.CompletedSets, st.TotalSets)
		}
		return nil
	},
}

// openSession resumes the unfinished session for the plan unless --fresh.
func openSession(ctx context.Context, store *localstore.Store, planID, userID uuid.UUID, log *slog.Logger,
	build func(...player.Option) (*player.Session, error)) (*player.Session, error) {
	if playFresh {
		return build()
	}
	unfinished, err := store.FindUnfinishedSession(ctx, planID, userID)
	if err != nil {
		return nil, err
	}
	if unfinished == nil {
		return build()
	}
	log.Info("resuming session", "session_id", unfinished.ID, "sets", len(unfinished.Sets))
	return build(player.WithResume(unfinished))
}

// playLogger writes to a rotated file when --log is set. The terminal
// belongs to the player otherwise.
func playLogger() (*slog.Logger, io.Closer) {
	if playLogFile == "" {
		return logging.Discard(), nil
	}
	return logging.Setup(config.LogConfig{Level: "debug", Format: "text", File: playLogFile, MaxSizeMB: 5})
}

func init() {
	playCmd.Flags().BoolVar(&playFresh, "fresh", false, "start a new session even if one is unfinished")
	playCmd.Flags().StringVar(&playLogFile, "log", "", "write debug logs to this file")
	playCmd.Flags().DurationVar(&playTick, "rest-tick", time.Second, "rest countdown cadence")
	rootCmd.AddCommand(playCmd)
}
