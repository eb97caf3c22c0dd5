package sim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tatianab/text-quest/internal/engine"
	"github.com/tatianab/text-quest/internal/llm"
	"github.com/tatianab/text-quest/internal/models"
)

type firstChooser struct{}

func (firstChooser) Choose(scene models.Scene) string { return scene.Choices[0].ID }

// openRouterStub answers chat completions with a numbered scene.
func openRouterStub(t *testing.T, failFrom int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1))
		if failFrom > 0 && n >= failFrom {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"context length exceeded","code":400}}`)
			return
		}
		content := fmt.Sprintf("Сцена номер %d.\nВАРИАНТЫ:\n1. Вперёд %d\n2. Назад %d\n3. Ждать %d", n, n, n, n)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":%q}}]}`, content)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newSession(t *testing.T, url string) *engine.Session {
	t.Helper()
	client := llm.NewOpenAI(llm.Config{APIKey: "k", BaseURL: url, Timeout: 5 * time.Second}, zap.NewNop())
	settings := engine.DefaultSettings()
	settings.Retry.Delay = time.Millisecond
	return engine.NewSession(client, settings, zap.NewNop())
}

func TestRun(t *testing.T) {
	server, calls := openRouterStub(t, 0)
	session := newSession(t, server.URL)
	var out bytes.Buffer

	report, err := Run(context.Background(), session, Options{
		Title:   "Симуляция",
		Turns:   3,
		Chooser: firstChooser{},
		Out:     &out,
	}, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, 4, report.Scenes)
	assert.Equal(t, []string{"Вперёд 1", "Вперёд 2", "Вперёд 3"}, report.Choices)
	assert.Contains(t, out.String(), "--- Scene 4 ---\nСцена номер 4.")
	assert.Contains(t, out.String(), "Player chose: Вперёд 2")
	assert.Len(t, session.State().History, 4)
}

func TestRun_StopsOnFailedTurn(t *testing.T) {
	server, calls := openRouterStub(t, 3)
	session := newSession(t, server.URL)

	report, err := Run(context.Background(), session, Options{Title: "t", Turns: 5, Chooser: firstChooser{}}, zap.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "context length exceeded")
	assert.Equal(t, int32(3), calls.Load(), "client errors are not retried")
	assert.Equal(t, 2, report.Scenes)
}

func TestRun_MissingKey(t *testing.T) {
	client := llm.NewOpenAI(llm.Config{}, zap.NewNop())
	session := engine.NewSession(client, engine.DefaultSettings(), zap.NewNop())

	_, err := Run(context.Background(), session, Options{Title: "t"}, zap.NewNop())

	assert.True(t, errors.Is(err, engine.ErrMissingCredential))
	assert.Contains(t, err.Error(), engine.MsgMissingCredential)
}

func TestRandomChooser_Seeded(t *testing.T) {
	scene := models.Scene{Choices: []models.Choice{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
	pick := func(seed uint64) []string {
		c := NewRandomChooser(seed)
		var ids []string
		for range 20 {
			ids = append(ids, c.Choose(scene))
		}
		return ids
	}

	assert.Equal(t, pick(7), pick(7))
	for _, id := range pick(7) {
		assert.Contains(t, []string{"1", "2", "3"}, id)
	}
	assert.Empty(t, NewRandomChooser(1).Choose(models.Scene{}))
}
