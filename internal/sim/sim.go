// Package sim plays a game without a terminal UI, picking choices at
// random. It is meant for trying prompts and models end to end.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/engine"
	"github.com/tatianab/text-quest/internal/models"
)

const DefaultTurns = 10

// Chooser picks the id of the choice to play in a scene.
type Chooser interface {
	Choose(scene models.Scene) string
}

type RandomChooser struct {
	rng *rand.Rand
}

func NewRandomChooser(seed uint64) *RandomChooser {
	return &RandomChooser{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (c *RandomChooser) Choose(scene models.Scene) string {
	if len(scene.Choices) == 0 {
		return ""
	}
	return scene.Choices[c.rng.IntN(len(scene.Choices))].ID
}

type Options struct {
	Title   string
	Prompt  string
	Turns   int
	Chooser Chooser
	Out     io.Writer
}

// Report summarizes a finished simulation.
type Report struct {
	Scenes  int
	Choices []string
}

// Run starts a game on session and plays until opts.Turns choices have
// been made. The first failed turn stops the run and is returned.
func Run(ctx context.Context, session *engine.Session, opts Options, logger *zap.Logger) (Report, error) {
	if opts.Turns <= 0 {
		opts.Turns = DefaultTurns
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Chooser == nil {
		opts.Chooser = NewRandomChooser(0)
	}

	var report Report
	fmt.Fprintf(opts.Out, "--- %s ---\n", opts.Title)
	if err := session.StartGame(ctx, opts.Title, opts.Prompt); err != nil {
		return report, turnError(session, err)
	}

	for turn := 1; ; turn++ {
		st := session.State()
		if st.CurrentScene == nil {
			return report, errors.New("sim: session has no current scene")
		}
		report.Scenes++
		printScene(opts.Out, turn, *st.CurrentScene)

		if turn > opts.Turns {
			return report, nil
		}

		id := opts.Chooser.Choose(*st.CurrentScene)
		choice, ok := st.CurrentScene.Choice(id)
		if !ok {
			return report, fmt.Errorf("sim: chooser picked unknown choice %q", id)
		}
		report.Choices = append(report.Choices, choice.Text)
		fmt.Fprintf(opts.Out, "Player chose: %s\n\n", choice.Text)
		logger.Debug("simulated choice", zap.Int("turn", turn), zap.String("choice_id", id))

		if err := session.MakeChoice(ctx, id); err != nil {
			return report, turnError(session, err)
		}
	}
}

func printScene(w io.Writer, turn int, scene models.Scene) {
	fmt.Fprintf(w, "--- Scene %d ---\n%s\n", turn, scene.Text)
	var sb strings.Builder
	for _, c := range scene.Choices {
		fmt.Fprintf(&sb, "  %s) %s\n", c.ID, c.Text)
	}
	fmt.Fprint(w, sb.String())
}

func turnError(session *engine.Session, err error) error {
	if msg := session.State().ErrorMessage; msg != "" {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}
