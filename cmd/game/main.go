// Command game is a terminal text adventure narrated by a language model.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/saves"
	"github.com/tatianab/text-quest/internal/sim"
	"github.com/tatianab/text-quest/internal/tui"
)

const (
	Version = "0.1.0"
	appName = "text-quest"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "game",
		Short: "Text adventure narrated by a language model",
		Long: `A terminal text adventure. Every scene is written by a chat-completion
model and ends with three choices; pick one to continue the story.

Configuration comes from environment variables (AI_PROVIDER, AI_API_KEY,
AI_MODEL, SAVE_DIR, ...), optionally loaded from a .env file.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with configuration")

	play := playCmd(&envFile)
	cmd.RunE = play.RunE
	cmd.AddCommand(play, simulateCmd(&envFile), savesCmd(&envFile), versionCmd())
	return cmd
}

func playCmd(envFile *string) *cobra.Command {
	var continueSlot string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start the interactive game",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *envFile, playLogging)
			if err != nil {
				return err
			}
			defer a.Close()

			if continueSlot != "" {
				g, err := a.store.Load(ctx, continueSlot)
				if err != nil {
					return err
				}
				a.session.LoadGame(g.Title, g.CurrentScene, g.History)
			}
			return tui.Run(ctx, a.session, a.store, a.logger)
		},
	}
	cmd.Flags().StringVar(&continueSlot, "continue", "", "Resume the game saved in this slot (the autosave slot is \""+saves.AutosaveSlot+"\")")
	return cmd
}

func simulateCmd(envFile *string) *cobra.Command {
	var (
		turns  int
		seed   uint64
		title  string
		prompt string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a game headless with random choices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *envFile, simulateLogging)
			if err != nil {
				return err
			}
			defer a.Close()

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			report, err := sim.Run(ctx, a.session, sim.Options{
				Title:   title,
				Prompt:  prompt,
				Turns:   turns,
				Chooser: sim.NewRandomChooser(seed),
				Out:     cmd.OutOrStdout(),
			}, a.logger)
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d scenes, %d choices (seed %d)\n", report.Scenes, len(report.Choices), seed)
			return err
		},
	}
	cmd.Flags().IntVar(&turns, "turns", sim.DefaultTurns, "Number of choices to make")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed for choices (0 picks one)")
	cmd.Flags().StringVar(&title, "title", tui.DefaultTitle, "Game title")
	cmd.Flags().StringVar(&prompt, "prompt", "", "First user prompt (defaults to the start prompt)")
	return cmd
}

func savesCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saves",
		Short: "Manage saved games",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openSaves(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer closeStore()

			infos, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved games.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SLOT\tTITLE\tSCENES\tSAVED")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", info.Slot, info.Title, info.Scenes, info.SavedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <slot>",
		Short: "Delete a saved game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openSaves(cmd.Context(), *envFile)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, saves.ErrNotFound) {
					return fmt.Errorf("no saved game in slot %q", args[0])
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	}
}

// openSaves opens only the save store, for commands that never talk to
// the model.
func openSaves(ctx context.Context, envFile string) (saves.Store, func(), error) {
	cfg, log, err := base(envFile, simulateLogging)
	if err != nil {
		return nil, nil, err
	}
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			log.Warn("close failed", zap.Error(err))
		}
		_ = log.Sync()
	}
	return store, closeStore, nil
}
