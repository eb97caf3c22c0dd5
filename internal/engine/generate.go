package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/llm"
	"github.com/tatianab/text-quest/internal/metrics"
	"github.com/tatianab/text-quest/internal/models"
	"github.com/tatianab/text-quest/internal/parser"
)

// Turn outcomes, as recorded in textquest_turns_total.
const (
	outcomeSuccess   = "success"
	outcomeError     = "error"
	outcomeExhausted = "exhausted"
	outcomeCanceled  = "canceled"
)

// GenerateScene plays one turn: it sends the history plus prompt to the
// model, retrying transient failures, and appends the parsed scene. It
// blocks until the turn ends. Failures are reported in the state as well
// as returned; a turn superseded by ResetGame or LoadGame returns
// ErrTurnCanceled and changes nothing.
func (s *Session) GenerateScene(ctx context.Context, prompt string) error {
	return s.playTurn(ctx, func(*models.State) (string, error) { return prompt, nil })
}

// playTurn claims the turn and runs it. prepare runs under the lock once
// the guard has passed; it returns the user prompt for the turn, and an
// error from it abandons the turn before anything is claimed. Whatever
// prepare changes in the state is kept even when the credential check
// fails afterwards.
func (s *Session) playTurn(ctx context.Context, prepare func(st *models.State) (string, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		gen     uint64
		history []models.Scene
		prompt  string
		err     error
	)
	s.update(func(st *models.State) {
		if s.turning {
			err = ErrTurnInProgress
			return
		}
		if prompt, err = prepare(st); err != nil {
			return
		}
		if !llm.HasCredential(s.llm) {
			st.HasError = true
			st.ErrorMessage = MsgMissingCredential
			err = ErrMissingCredential
			return
		}
		gen = s.claimTurn(st, cancel)
		history = models.CloneHistory(st.History)
	})
	if err != nil {
		return err
	}
	return s.runTurn(ctx, gen, history, prompt)
}

// claimTurn starts a new turn and returns its generation. Callers hold
// s.mu and have checked s.turning.
func (s *Session) claimTurn(st *models.State, cancel context.CancelFunc) uint64 {
	s.gen++
	s.turning = true
	s.cancel = cancel

	st.IsLoading = true
	st.HasError = false
	st.ErrorMessage = ""
	st.StatusMessage = ""
	return s.gen
}

// runTurn is the body of turn gen, claimed by playTurn.
func (s *Session) runTurn(ctx context.Context, gen uint64, history []models.Scene, prompt string) error {
	log := s.logger.With(zap.String("turn_id", uuid.NewString()))
	p := s.settings.Prompts
	req := llm.Request{
		Model:       s.settings.Model,
		Messages:    BuildMessages(p.System, p.Initial, history, prompt),
		Temperature: s.settings.Temperature,
		MaxTokens:   s.settings.MaxTokens,
	}
	retry := s.settings.Retry
	log.Info("generating scene",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.Int("history", len(history)))

	start := time.Now()
	for attempt := 1; ; attempt++ {
		resp, err := s.llm.Complete(ctx, req)
		if err == nil {
			return s.finishScene(gen, resp.Content, log, attempt, start)
		}
		if ctx.Err() != nil {
			return s.cancelTurn(gen, log, ctx.Err())
		}

		if !llm.IsTransient(err) {
			log.Error("scene generation failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			return s.failTurn(gen, outcomeError, terminalMessage(err), err)
		}

		if attempt >= retry.Attempts() {
			log.Error("scene generation failed after retries",
				zap.Int("attempts", attempt),
				zap.Error(err))
			msg := fmt.Sprintf(msgExhausted, attempt, err.Error())
			return s.failTurn(gen, outcomeExhausted, msg, err)
		}

		backoff := retry.Backoff(attempt)
		log.Warn("transient provider failure, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", retry.Attempts()),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		metrics.IncRetry()
		if !s.updateTurn(gen, func(st *models.State) {
			st.StatusMessage = fmt.Sprintf(msgRetrying, attempt, retry.MaxRetries)
		}) {
			return s.cancelTurn(gen, log, ErrTurnCanceled)
		}

		if err := wait(ctx, backoff); err != nil {
			return s.cancelTurn(gen, log, err)
		}
	}
}

func (s *Session) finishScene(gen uint64, content string, log *zap.Logger, attempts int, start time.Time) error {
	parsed := parser.ParseResponse(content)
	if !parsed.Delimited {
		metrics.IncMalformedReply()
		log.Warn("reply has no choice block, using default choices", zap.Int("length", len(content)))
	}

	var sceneID string
	ok := s.updateTurn(gen, func(st *models.State) {
		scene := models.Scene{
			ID:      s.nextSceneID(),
			Text:    parsed.Narrative,
			Choices: parsed.Choices,
		}
		sceneID = scene.ID
		st.History = append(st.History, scene)
		current := scene.Clone()
		st.CurrentScene = &current
		st.IsLoading = false
		st.StatusMessage = ""
		s.endTurn()
	})
	if !ok {
		return s.cancelTurn(gen, log, ErrTurnCanceled)
	}

	metrics.RecordTurn(outcomeSuccess)
	log.Info("scene generated",
		zap.String("scene_id", sceneID),
		zap.Int("attempts", attempts),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Session) failTurn(gen uint64, outcome, msg string, err error) error {
	if !s.updateTurn(gen, func(st *models.State) {
		st.IsLoading = false
		st.HasError = true
		st.ErrorMessage = msg
		st.StatusMessage = ""
		s.endTurn()
	}) {
		return fmt.Errorf("%w: %w", ErrTurnCanceled, err)
	}
	metrics.RecordTurn(outcome)
	return fmt.Errorf("generate scene: %w", err)
}

// cancelTurn ends a turn whose context was canceled. A turn already
// superseded by reset or load has nothing left to clean up.
func (s *Session) cancelTurn(gen uint64, log *zap.Logger, cause error) error {
	s.updateTurn(gen, func(st *models.State) {
		st.IsLoading = false
		st.StatusMessage = ""
		s.endTurn()
	})
	metrics.RecordTurn(outcomeCanceled)
	log.Info("turn canceled", zap.Error(cause))
	if errors.Is(cause, ErrTurnCanceled) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrTurnCanceled, cause)
}

// endTurn releases the turn guard. Callers hold s.mu.
func (s *Session) endTurn() {
	s.turning = false
	s.cancel = nil
}

func terminalMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgGenerationFailed
}
