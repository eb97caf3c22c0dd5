package engine

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// ChoicePlaceholder is replaced by the text of the chosen option in the
// user choice template.
const ChoicePlaceholder = "{choice}"

// Prompts are the fixed texts a session sends around the scene history.
type Prompts struct {
	System     string // system.txt
	Initial    string // initial.txt, may be empty
	UserChoice string // user_choice.txt, contains {choice}
	Start      string // start.txt, used when a game starts without a prompt
}

var promptFiles = []struct {
	name string
	dst  func(*Prompts) *string
}{
	{"system.txt", func(p *Prompts) *string { return &p.System }},
	{"initial.txt", func(p *Prompts) *string { return &p.Initial }},
	{"user_choice.txt", func(p *Prompts) *string { return &p.UserChoice }},
	{"start.txt", func(p *Prompts) *string { return &p.Start }},
}

// DefaultPrompts returns the prompts built into the binary.
func DefaultPrompts() Prompts {
	p, err := readPrompts(promptFS, "prompts", Prompts{})
	if err != nil {
		panic(fmt.Sprintf("embedded prompts: %v", err))
	}
	return p
}

// LoadPrompts returns the built-in prompts with every file found in dir
// taking precedence. An empty dir means no overrides.
func LoadPrompts(dir string) (Prompts, error) {
	p := DefaultPrompts()
	if dir == "" {
		return p, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return Prompts{}, fmt.Errorf("prompts dir: %w", err)
	}
	if !info.IsDir() {
		return Prompts{}, fmt.Errorf("prompts dir %s is not a directory", dir)
	}
	return readPrompts(os.DirFS(dir), ".", p)
}

func readPrompts(fsys fs.FS, dir string, p Prompts) (Prompts, error) {
	for _, f := range promptFiles {
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, f.name)))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Prompts{}, fmt.Errorf("read prompt %s: %w", f.name, err)
		}
		*f.dst(&p) = strings.TrimSpace(string(data))
	}
	if !strings.Contains(p.UserChoice, ChoicePlaceholder) {
		return Prompts{}, fmt.Errorf("user_choice.txt must contain %s", ChoicePlaceholder)
	}
	return p, nil
}

// ChoicePrompt fills the first {choice} of the template with text.
func (p Prompts) ChoicePrompt(text string) string {
	return strings.Replace(p.UserChoice, ChoicePlaceholder, text, 1)
}
