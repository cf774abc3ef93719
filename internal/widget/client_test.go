package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/set-night/interiorchat/internal/config"
	"github.com/set-night/interiorchat/internal/domain"
	"github.com/set-night/interiorchat/internal/handler"
	"github.com/set-night/interiorchat/internal/repository"
	"github.com/set-night/interiorchat/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assistantBackend records what the relay forwards and answers like the shop assistant.
type assistantBackend struct {
	mu        sync.Mutex
	envelopes []domain.RequestEnvelope
	pageTypes []string
	fail      bool
}

func (b *assistantBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		env := b.record(r)
		if b.failing() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, `{"response":%q,"session_id":%q}`, "Yes, the "+domain.Deref(env.SelectedText)+" is treated against stains.", domain.Deref(env.SessionID))
	})
	mux.HandleFunc("/api/chat/stream", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		fmt.Fprint(w, "data: {\"content\":\"Yes, \"}\n\n")
		fmt.Fprint(w, "data: {\"content\":\"it is.\"}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	mux.HandleFunc("/api/quick-questions", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.pageTypes = append(b.pageTypes, r.URL.Query().Get("page_type"))
		b.mu.Unlock()
		fmt.Fprint(w, `{"questions":["Is it in stock?","What are the dimensions?","Which colors are available?","Can I order a fabric sample?"]}`)
	})
	return mux
}

func (b *assistantBackend) record(r *http.Request) domain.RequestEnvelope {
	var env domain.RequestEnvelope
	_ = json.NewDecoder(r.Body).Decode(&env)
	b.mu.Lock()
	b.envelopes = append(b.envelopes, env)
	b.mu.Unlock()
	return env
}

func (b *assistantBackend) received() []domain.RequestEnvelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.RequestEnvelope(nil), b.envelopes...)
}

func (b *assistantBackend) requestedPageTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.pageTypes...)
}

func (b *assistantBackend) failing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fail
}

type relayFixture struct {
	backend *assistantBackend
	store   *repository.MemoryTranscriptStore
	client  *Client
}

func newRelayFixture(t *testing.T) relayFixture {
	t.Helper()
	backend := &assistantBackend{}
	backendSrv := httptest.NewServer(backend.handler())
	t.Cleanup(backendSrv.Close)

	upstream := service.NewBackendClient(backendSrv.URL, 5*time.Second)
	store := repository.NewMemoryTranscriptStore()
	sessions := service.NewSessionService(store)
	h := handler.New(handler.Deps{
		Cfg:            &config.Config{},
		Relay:          service.NewChatRelay(upstream, sessions, nil),
		QuickQuestions: service.NewQuickQuestionsService(upstream, time.Second, 0),
		SessionService: sessions,
	})
	relaySrv := httptest.NewServer(h.Routes())
	t.Cleanup(relaySrv.Close)

	client := NewClient(relaySrv.URL, 5*time.Second)
	t.Cleanup(client.Close)
	return relayFixture{backend: backend, store: store, client: client}
}

func TestEndToEnd_ProductPage(t *testing.T) {
	fx := newRelayFixture(t)
	identity := NewIdentity()
	c := NewController(fx.client, "/products/modern-velvet-sofa", WithIdentity(identity))
	defer c.Unmount()

	require.NoError(t, c.Open())
	waitIdle(t, c)

	assert.Equal(t, []string{"Is it in stock?", "What are the dimensions?", "Which colors are available?"}, c.QuickQuestions())
	assert.Equal(t, []string{"product"}, fx.backend.requestedPageTypes())

	require.True(t, c.Select("Emerald green velvet"))
	require.NoError(t, c.Submit(context.Background(), "Is this stain resistant?"))
	waitIdle(t, c)

	history := c.History()
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, "Is this stain resistant?", history[0].Text())
	assert.Equal(t, domain.RoleAssistant, history[1].Role)
	assert.Equal(t, "Yes, the Emerald green velvet is treated against stains.", history[1].Text())
	assert.Equal(t, StateIdle, c.State())

	received := fx.backend.received()
	require.Len(t, received, 1)
	env := received[0]
	assert.Equal(t, "Is this stain resistant?", env.Message)
	assert.Equal(t, identity.SessionID(), domain.Deref(env.SessionID))
	assert.Equal(t, "/products/modern-velvet-sofa", domain.Deref(env.PageContext))
	assert.Equal(t, "Emerald green velvet", domain.Deref(env.SelectedText))

	// Second message: selection was consumed.
	require.NoError(t, c.Submit(context.Background(), "And delivery?"))
	waitIdle(t, c)
	received = fx.backend.received()
	require.Len(t, received, 2)
	assert.Nil(t, received[1].SelectedText)

	transcript, err := fx.store.History(context.Background(), identity.SessionID(), 10)
	require.NoError(t, err)
	assert.Len(t, transcript, 4)
}

func TestEndToEnd_Streaming(t *testing.T) {
	fx := newRelayFixture(t)
	c := NewController(fx.client, "/", WithStreaming(true))
	defer c.Unmount()

	var (
		mu     sync.Mutex
		deltas []string
	)
	c.Subscribe(Hooks{OnDelta: func(d string) {
		mu.Lock()
		deltas = append(deltas, d)
		mu.Unlock()
	}})

	require.NoError(t, c.Open())
	require.NoError(t, c.Submit(context.Background(), "Stain resistant?"))
	waitIdle(t, c)

	assert.Equal(t, []string{"user: Stain resistant?", "assistant: Yes, it is."}, texts(c.History()))
	mu.Lock()
	assert.Equal(t, []string{"Yes, ", "it is."}, deltas)
	mu.Unlock()
}

func TestEndToEnd_BackendDown(t *testing.T) {
	fx := newRelayFixture(t)
	fx.backend.mu.Lock()
	fx.backend.fail = true
	fx.backend.mu.Unlock()

	c := NewController(fx.client, "/")
	defer c.Unmount()

	require.NoError(t, c.Open())
	require.NoError(t, c.Submit(context.Background(), "hello"))
	waitIdle(t, c)

	snap := c.Snapshot()
	assert.Equal(t, StateError, snap.State)
	assert.NotEmpty(t, snap.Error)
	assert.Len(t, snap.History, 1)
}

func TestClient_Send(t *testing.T) {
	fx := newRelayFixture(t)

	turn, err := fx.client.Send(context.Background(), domain.DirectSend{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAssistant, turn.Role)

	_, err = fx.client.Send(context.Background(), domain.DirectSend{})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "No message provided", ve.Message)
	assert.Equal(t, []string{"context", "text"}, ve.ReceivedKeys)
}

func TestClient_QuickQuestionsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, time.Second)
	defer client.Close()
	_, err := client.QuickQuestions(context.Background(), domain.CategoryHome)
	assert.Error(t, err)
}
