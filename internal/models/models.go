package models

// Choice is one player-facing option of a scene. IDs are "1".."3" in
// presentation order.
type Choice struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// Scene is one generated narrative beat plus its choices.
type Scene struct {
	ID             string   `yaml:"id"`
	Text           string   `yaml:"text"`
	Choices        []Choice `yaml:"choices"`
	ChosenChoiceID string   `yaml:"chosen_choice_id,omitempty"` // empty until the player acts
}

// Choice looks up a choice of the scene by id.
func (s Scene) Choice(id string) (Choice, bool) {
	for _, c := range s.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// Chosen returns the choice the player picked in this scene, if any.
func (s Scene) Chosen() (Choice, bool) {
	if s.ChosenChoiceID == "" {
		return Choice{}, false
	}
	return s.Choice(s.ChosenChoiceID)
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	out := s
	out.Choices = append([]Choice(nil), s.Choices...)
	return out
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    Role   `yaml:"role"`
	Content string `yaml:"content"`
}

// State is a point-in-time snapshot of a game session.
type State struct {
	CurrentScene  *Scene  `yaml:"current_scene,omitempty"` // always the last element of History
	History       []Scene `yaml:"history"`
	IsLoading     bool    `yaml:"-"`
	HasError      bool    `yaml:"-"`
	ErrorMessage  string  `yaml:"-"`
	StatusMessage string  `yaml:"-"` // progress text while a turn is retrying
	GameTitle     string  `yaml:"game_title"`
	GameStarted   bool    `yaml:"game_started"`
}

// CloneHistory deep-copies a scene slice.
func CloneHistory(history []Scene) []Scene {
	if history == nil {
		return nil
	}
	out := make([]Scene, len(history))
	for i, s := range history {
		out[i] = s.Clone()
	}
	return out
}
