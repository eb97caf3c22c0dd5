// Package saves keeps played games in named slots so they can be resumed
// later.
package saves

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/text-quest/internal/models"
)

// AutosaveSlot is written after every generated scene.
const AutosaveSlot = "current"

var (
	ErrNotFound    = errors.New("saves: slot not found")
	ErrInvalidSlot = errors.New("saves: invalid slot name")
)

var slotName = regexp.MustCompile(`^[\p{L}\p{N}_-]{1,64}$`)

// Game is the saved form of a session.
type Game struct {
	Title        string         `yaml:"title"`
	CurrentScene *models.Scene  `yaml:"current_scene,omitempty"`
	History      []models.Scene `yaml:"history"`
	SavedAt      time.Time      `yaml:"saved_at"`
}

// Info describes a slot for listings.
type Info struct {
	Slot    string
	Title   string
	Scenes  int
	SavedAt time.Time
}

type Store interface {
	Save(ctx context.Context, slot string, g Game) error
	Load(ctx context.Context, slot string) (Game, error)
	// List returns the saved slots, most recent first.
	List(ctx context.Context) ([]Info, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}

// FromState captures the persistent part of a session state.
func FromState(st models.State, now time.Time) Game {
	g := Game{
		Title:   st.GameTitle,
		History: models.CloneHistory(st.History),
		SavedAt: now.UTC(),
	}
	if st.CurrentScene != nil {
		scene := st.CurrentScene.Clone()
		g.CurrentScene = &scene
	}
	return g
}

func ValidateSlot(slot string) error {
	if !slotName.MatchString(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

func encode(g Game) ([]byte, error) {
	data, err := yaml.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return data, nil
}

func decode(data []byte) (Game, error) {
	var g Game
	if err := yaml.Unmarshal(data, &g); err != nil {
		return Game{}, fmt.Errorf("decode save: %w", err)
	}
	return g, nil
}

func info(slot string, g Game) Info {
	return Info{Slot: slot, Title: g.Title, Scenes: len(g.History), SavedAt: g.SavedAt}
}

func sortInfos(infos []Info) {
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].SavedAt.Equal(infos[j].SavedAt) {
			return infos[i].SavedAt.After(infos[j].SavedAt)
		}
		return infos[i].Slot < infos[j].Slot
	})
}
