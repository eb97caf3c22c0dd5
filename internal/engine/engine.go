// Package engine runs a text-adventure session: it serializes the scenes
// played so far, asks the model for the next one with retries, parses the
// reply and keeps the game state.
package engine

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/llm"
	"github.com/tatianab/text-quest/internal/models"
)

const (
	DefaultModel       = "meta-llama/llama-3.3-70b-instruct:free"
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 1500
)

// Player-facing messages stored in State.ErrorMessage and StatusMessage.
const (
	MsgMissingCredential = "API ключ не установлен"
	MsgGenerationFailed  = "Произошла ошибка при генерации сцены"
	msgRetrying          = "Ошибка сети. Повторная попытка %d из %d..."
	msgExhausted         = "Не удалось получить ответ после %d попыток: %s"
)

var (
	ErrMissingCredential = errors.New("engine: provider credential is not set")
	ErrTurnInProgress    = errors.New("engine: a turn is already in progress")
	ErrUnknownChoice     = errors.New("engine: no such choice in the current scene")
	ErrTurnCanceled      = errors.New("engine: turn canceled")
)

type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Retry       RetryConfig
	Prompts     Prompts
}

func DefaultSettings() Settings {
	return Settings{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Retry:       DefaultRetryConfig(),
		Prompts:     DefaultPrompts(),
	}
}

// Session is one game in progress. Readers may call State from any
// goroutine; at most one turn runs at a time.
type Session struct {
	llm      llm.Completer
	settings Settings
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	state     models.State
	lastID    int64
	gen       uint64
	turning   bool
	cancel    context.CancelFunc
	observers []func(models.State)
}

func NewSession(completer llm.Completer, settings Settings, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		llm:      completer,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// State returns a deep copy of the current game state.
func (s *Session) State() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Observe registers fn to be called with a fresh snapshot after every
// state change. fn runs on the goroutine that made the change.
func (s *Session) Observe(fn func(models.State)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Session) snapshot() models.State {
	out := s.state
	out.History = models.CloneHistory(s.state.History)
	if s.state.CurrentScene != nil {
		scene := s.state.CurrentScene.Clone()
		out.CurrentScene = &scene
	}
	return out
}

// update applies fn under the lock and notifies observers afterwards.
func (s *Session) update(fn func(st *models.State)) {
	s.mu.Lock()
	fn(&s.state)
	snap := s.snapshot()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

// updateTurn is update for code running inside turn gen. It does nothing
// and reports false when the turn has been superseded.
func (s *Session) updateTurn(gen uint64, fn func(st *models.State)) bool {
	applied := false
	s.update(func(st *models.State) {
		if s.gen != gen {
			return
		}
		applied = true
		fn(st)
	})
	return applied
}

// nextSceneID returns the current Unix time in milliseconds, bumped when
// needed so ids keep increasing. Callers hold s.mu.
func (s *Session) nextSceneID() string {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// abortTurn supersedes the running turn, if any. Callers hold s.mu.
func (s *Session) abortTurn() {
	s.gen++
	s.turning = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
