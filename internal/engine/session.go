package engine

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/models"
)

// StartGame names the game and plays its first turn. An empty prompt
// falls back to the configured start prompt.
func (s *Session) StartGame(ctx context.Context, title, prompt string) error {
	if prompt == "" {
		prompt = s.settings.Prompts.Start
	}
	s.logger.Info("starting game", zap.String("title", title))
	return s.playTurn(ctx, func(st *models.State) (string, error) {
		st.GameTitle = title
		st.GameStarted = true
		return prompt, nil
	})
}

// MakeChoice records the player's pick in the current scene and plays the
// next turn. An id that is not offered returns ErrUnknownChoice and leaves
// the state alone. The pick is recorded and the turn claimed together, so
// a concurrent pick cannot overwrite it.
func (s *Session) MakeChoice(ctx context.Context, choiceID string) error {
	return s.playTurn(ctx, func(st *models.State) (string, error) {
		if st.CurrentScene == nil {
			return "", fmt.Errorf("%w: %q (no current scene)", ErrUnknownChoice, choiceID)
		}
		choice, ok := st.CurrentScene.Choice(choiceID)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownChoice, choiceID)
		}
		st.CurrentScene.ChosenChoiceID = choiceID
		if n := len(st.History); n > 0 && st.History[n-1].ID == st.CurrentScene.ID {
			st.History[n-1].ChosenChoiceID = choiceID
		}
		s.logger.Debug("choice made", zap.String("choice_id", choiceID), zap.String("text", choice.Text))
		return s.settings.Prompts.ChoicePrompt(choice.Text), nil
	})
}

// ResetGame clears the played scenes and abandons a running turn. The
// title is kept.
func (s *Session) ResetGame() {
	s.update(func(st *models.State) {
		s.abortTurn()
		st.CurrentScene = nil
		st.History = nil
		st.GameStarted = false
		st.IsLoading = false
		st.HasError = false
		st.ErrorMessage = ""
		st.StatusMessage = ""
	})
	s.logger.Info("game reset")
}

// LoadGame replaces the session with a saved game, abandoning a running
// turn. The scenes are taken as given.
func (s *Session) LoadGame(title string, scene *models.Scene, history []models.Scene) {
	s.update(func(st *models.State) {
		s.abortTurn()
		st.GameTitle = title
		st.CurrentScene = nil
		if scene != nil {
			current := scene.Clone()
			st.CurrentScene = &current
		}
		st.History = models.CloneHistory(history)
		st.GameStarted = true
		st.IsLoading = false
		st.HasError = false
		st.ErrorMessage = ""
		st.StatusMessage = ""

		for _, sc := range st.History {
			if id, err := strconv.ParseInt(sc.ID, 10, 64); err == nil && id > s.lastID {
				s.lastID = id
			}
		}
	})
	s.logger.Info("game loaded", zap.String("title", title), zap.Int("scenes", len(history)))
}
