package refine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"modelkombat/config/storage"
	"modelkombat/internal/apperrors"
	"modelkombat/internal/ratings"
	"modelkombat/internal/rounds"
)

// chatServer is a fake OpenAI-compatible endpoint that answers
// "<model>#<n>" and records each request's model and message count.
type chatServer struct {
	mu       sync.Mutex
	models   []string
	messages []int
	status   int
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	model := gjson.GetBytes(body, "model").String()

	s.mu.Lock()
	s.models = append(s.models, model)
	s.messages = append(s.messages, len(gjson.GetBytes(body, "messages").Array()))
	n := len(s.models)
	status := s.status
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, `{"error":{"message":"denied","type":"auth"}}`)
		return
	}
	fmt.Fprintf(w, `{"id":"chatcmpl-%d","object":"chat.completion","created":1,"model":%q,
		"choices":[{"index":0,"message":{"role":"assistant","content":"%s#%d"},"finish_reason":"stop"}],
		"usage":{"prompt_tokens":5,"completion_tokens":7,"total_tokens":12}}`, n, model, model, n)
}

func newTestRunner(t *testing.T, srv *chatServer) (*Runner, *ratings.Store) {
	t.Helper()
	httpSrv := httptest.NewServer(srv)
	t.Cleanup(httpSrv.Close)

	docs, err := storage.OpenDocumentStore("")
	require.NoError(t, err)
	t.Cleanup(func() { docs.Close() })

	store := ratings.NewStore(docs)
	return NewRunner(NewClient(httpSrv.URL+"/v1", "sk-test"), store), store
}

func TestRunRoundRobin(t *testing.T) {
	srv := &chatServer{}
	runner, store := newTestRunner(t, srv)

	result, err := runner.Run(context.Background(), Request{
		ProjectID:       "p1",
		Prompt:          "Explain goroutines",
		Rounds:          4,
		EnabledModelIDs: []string{"m1", "m2", "m3"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"m1", "m2", "m3", "m1"}, srv.models)
	assert.Equal(t, []int{2, 4, 4, 4}, srv.messages)
	require.Len(t, result.Responses, 4)
	assert.Equal(t, "m1#4", result.Final())

	stored, err := store.List(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, stored, 4)
	for i, r := range stored {
		assert.Equal(t, i, r.Round)
		assert.Nil(t, r.Rating)
		assert.False(t, r.IsWinner)
	}
}

func TestRunWithoutEnabledModelsUsesAuto(t *testing.T) {
	srv := &chatServer{}
	runner, _ := newTestRunner(t, srv)

	result, err := runner.Run(context.Background(), Request{Prompt: "hi", Rounds: 2})
	require.NoError(t, err)
	assert.NotEmpty(t, result.ProjectID)
	assert.Equal(t, []string{rounds.AutoModel, rounds.AutoModel}, srv.models)
}

func TestRunValidation(t *testing.T) {
	runner, _ := newTestRunner(t, &chatServer{})

	_, err := runner.Run(context.Background(), Request{Prompt: "  ", Rounds: 1})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)

	_, err = runner.Run(context.Background(), Request{Prompt: "x", Rounds: 11})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailure)
}

func TestRunRejectedCredential(t *testing.T) {
	srv := &chatServer{status: http.StatusUnauthorized}
	runner, store := newTestRunner(t, srv)

	_, err := runner.Run(context.Background(), Request{ProjectID: "p", Prompt: "x", Rounds: 3, EnabledModelIDs: []string{"m1"}})
	assert.ErrorIs(t, err, apperrors.ErrCredentialInvalid)

	stored, err := store.List(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, stored)
}
