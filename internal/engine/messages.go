package engine

import (
	"fmt"
	"strings"

	"github.com/tatianab/text-quest/internal/models"
	"github.com/tatianab/text-quest/internal/parser"
)

// BuildMessages serializes a session into the conversation sent to the
// model: the system prompt, the optional initial prompt, every past scene
// as an assistant message followed by the player's pick, and finally
// userPrompt.
func BuildMessages(systemPrompt, initialPrompt string, history []models.Scene, userPrompt string) []models.Message {
	messages := make([]models.Message, 0, len(history)*2+3)
	messages = append(messages, models.Message{Role: models.RoleSystem, Content: systemPrompt})
	if initialPrompt != "" {
		messages = append(messages, models.Message{Role: models.RoleUser, Content: initialPrompt})
	}

	for _, scene := range history {
		messages = append(messages, models.Message{Role: models.RoleAssistant, Content: sceneContent(scene)})
		if choice, ok := scene.Chosen(); ok {
			messages = append(messages, models.Message{
				Role:    models.RoleUser,
				Content: `Игрок выбрал: "` + choice.Text + `"`,
			})
		}
	}

	return append(messages, models.Message{Role: models.RoleUser, Content: userPrompt})
}

// sceneContent renders a scene back into the reply format the model is
// asked to produce.
func sceneContent(scene models.Scene) string {
	var sb strings.Builder
	sb.WriteString(scene.Text)
	sb.WriteString("\n\n")
	sb.WriteString(parser.Delimiter)
	sb.WriteString("\n")
	for i, c := range scene.Choices {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Text)
	}
	return sb.String()
}
