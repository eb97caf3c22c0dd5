package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/engine"
	"github.com/tatianab/text-quest/internal/models"
	"github.com/tatianab/text-quest/internal/saves"
)

// DefaultTitle is used when the player starts without naming the game.
const DefaultTitle = "Текстовое приключение"

type sessionState int

const (
	stateInputTitle sessionState = iota
	statePlaying
)

type model struct {
	ctx     context.Context
	state   sessionState
	session *engine.Session
	store   saves.Store
	logger  *zap.Logger

	snapshot  models.State
	textInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	notice    string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			PaddingLeft(2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

func NewModel(ctx context.Context, session *engine.Session, store saves.Store, logger *zap.Logger) model {
	ti := textinput.New()
	ti.Placeholder = DefaultTitle
	ti.Focus()
	ti.CharLimit = 80
	ti.Width = 40

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := model{
		ctx:       ctx,
		state:     stateInputTitle,
		session:   session,
		store:     store,
		logger:    logger,
		snapshot:  session.State(),
		textInput: ti,
		viewport:  viewport.New(80, 20),
		spinner:   sp,
	}
	// a loaded game goes straight to its current scene
	if m.snapshot.GameStarted {
		m.state = statePlaying
		m.viewport.SetContent(m.renderLog())
		m.viewport.GotoBottom()
	}
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// stateMsg carries a session snapshot pushed by the session observer.
type stateMsg struct {
	state models.State
}

type turnDoneMsg struct {
	err error
}

type savedMsg struct {
	slot string
	auto bool
	err  error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "ctrl+r":
			m.state = stateInputTitle
			m.notice = ""
			m.textInput.Reset()
			return m, m.resetGame()
		case "ctrl+s":
			if m.state == statePlaying && !m.snapshot.IsLoading {
				return m, m.save("save-"+time.Now().Format("20060102-150405"), false)
			}
			return m, nil
		}

		if m.state == stateInputTitle {
			if msg.Type == tea.KeyEnter {
				title := strings.TrimSpace(m.textInput.Value())
				if title == "" {
					title = DefaultTitle
				}
				m.state = statePlaying
				m.snapshot.IsLoading = true
				return m, tea.Batch(m.spinner.Tick, m.startGame(title))
			}
			m.textInput, cmd = m.textInput.Update(msg)
			return m, cmd
		}

		if m.snapshot.IsLoading {
			return m, nil
		}
		switch msg.String() {
		case "1", "2", "3":
			if m.snapshot.CurrentScene == nil {
				return m, nil
			}
			m.notice = ""
			m.snapshot.IsLoading = true
			return m, tea.Batch(m.spinner.Tick, m.choose(msg.String()))
		case "enter":
			if retry := m.retry(); m.snapshot.HasError && retry != nil {
				m.snapshot.IsLoading = true
				return m, tea.Batch(m.spinner.Tick, retry)
			}
		}
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-10, 3)
		m.viewport.SetContent(m.renderLog())
		return m, nil

	case stateMsg:
		m.apply(msg.state)
		return m, nil

	case turnDoneMsg:
		m.apply(m.session.State())
		if msg.err != nil {
			if !errors.Is(msg.err, engine.ErrTurnCanceled) {
				m.logger.Warn("turn failed", zap.Error(msg.err))
			}
			return m, nil
		}
		return m, m.save(saves.AutosaveSlot, true)

	case savedMsg:
		switch {
		case msg.err != nil:
			m.logger.Error("save failed", zap.String("slot", msg.slot), zap.Error(msg.err))
			m.notice = "Не удалось сохранить игру: " + msg.err.Error()
		case !msg.auto:
			m.notice = "Игра сохранена в слот " + msg.slot
		}
		return m, nil

	case spinner.TickMsg:
		if !m.snapshot.IsLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *model) apply(st models.State) {
	grew := len(st.History) != len(m.snapshot.History)
	m.snapshot = st
	m.viewport.SetContent(m.renderLog())
	if grew {
		m.viewport.GotoBottom()
	}
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateInputTitle:
		s = fmt.Sprintf(
			"Текстовое приключение\n\n%s\n\n%s\n\n%s",
			"Как назовём вашу историю?",
			m.textInput.View(),
			helpStyle.Render("Enter — начать, Esc — выход"),
		)

	case statePlaying:
		parts := []string{
			titleStyle.Render(m.snapshot.GameTitle),
			m.viewport.View(),
		}
		parts = append(parts, m.renderFooter())
		if m.notice != "" {
			parts = append(parts, helpStyle.Render(m.notice))
		}
		parts = append(parts, helpStyle.Render("1-3 — выбор, ctrl+s — сохранить, ctrl+r — новая игра, esc — выход"))
		s = lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	return "\n" + s + "\n"
}

// renderLog renders the played scenes with the picks made in them.
func (m model) renderLog() string {
	width := m.textWidth()
	var sb strings.Builder
	for i, scene := range m.snapshot.History {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(gameStyle.Width(width).Render(scene.Text))
		if choice, ok := scene.Chosen(); ok {
			sb.WriteString("\n\n")
			sb.WriteString(userStyle.Width(width).Render("> " + choice.Text))
		}
	}
	return sb.String()
}

func (m model) renderFooter() string {
	st := m.snapshot
	switch {
	case st.IsLoading:
		status := "Генерация сцены..."
		if st.StatusMessage != "" {
			status = st.StatusMessage
		}
		return m.spinner.View() + " " + status
	case st.HasError:
		return errorStyle.Render("Ошибка: "+st.ErrorMessage) + "\n" + helpStyle.Render("Enter — повторить")
	case st.CurrentScene != nil:
		var lines []string
		for _, c := range st.CurrentScene.Choices {
			lines = append(lines, choiceStyle.Render(c.ID+") "+c.Text))
		}
		return strings.Join(lines, "\n")
	}
	return ""
}

func (m model) textWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.9)
}

func (m model) startGame(title string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.session.StartGame(m.ctx, title, "")}
	}
}

func (m model) choose(id string) tea.Cmd {
	return func() tea.Msg {
		return turnDoneMsg{err: m.session.MakeChoice(m.ctx, id)}
	}
}

// retry replays the turn that failed: the first scene when nothing has
// been generated yet, otherwise the pick already made in the current one.
func (m model) retry() tea.Cmd {
	st := m.snapshot
	if st.CurrentScene == nil {
		return m.startGame(st.GameTitle)
	}
	if id := st.CurrentScene.ChosenChoiceID; id != "" {
		return m.choose(id)
	}
	return nil
}

func (m model) resetGame() tea.Cmd {
	return func() tea.Msg {
		m.session.ResetGame()
		return stateMsg{state: m.session.State()}
	}
}

func (m model) save(slot string, auto bool) tea.Cmd {
	if m.store == nil {
		return nil
	}
	game := saves.FromState(m.snapshot, time.Now())
	return func() tea.Msg {
		return savedMsg{slot: slot, auto: auto, err: m.store.Save(m.ctx, slot, game)}
	}
}

// Run shows the game until the player quits.
func Run(ctx context.Context, session *engine.Session, store saves.Store, logger *zap.Logger) error {
	p := tea.NewProgram(NewModel(ctx, session, store, logger), tea.WithAltScreen(), tea.WithContext(ctx))
	session.Observe(func(st models.State) { p.Send(stateMsg{state: st}) })
	_, err := p.Run()
	return err
}
