package widget

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/set-night/interiorchat/internal/domain"
)

type inflight struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

type listenerEntry struct {
	id       int
	listener Listener
}

// Controller drives one chat widget instance: open/closed state, the visible history,
// the pending selection annotation, quick questions and the single outstanding request.
type Controller struct {
	api       ChatAPI
	identity  *Identity
	streaming bool

	baseCtx   context.Context
	cancelAll context.CancelFunc
	bg        sync.WaitGroup

	mu        sync.Mutex
	unmounted bool
	open      bool
	phase     State
	lastErr   string
	history   []domain.ChatTurn
	partial   string
	input     string
	selection string
	page      domain.PageContext
	inflight  *inflight
	gen       uint64

	// tasks holds the done channels of background work whose effects are still pending.
	tasks map[chan struct{}]struct{}

	questions       []string
	questionsLoaded bool
	questionsDone   chan struct{}
	qgen            uint64

	listeners    []listenerEntry
	nextListener int
}

type Option func(*Controller)

// WithStreaming makes the controller use SendStream when the API supports it.
func WithStreaming(enabled bool) Option {
	return func(c *Controller) {
		c.streaming = enabled
	}
}

func WithIdentity(identity *Identity) Option {
	return func(c *Controller) {
		c.identity = identity
	}
}

// NewController mounts a widget on the page at path. The widget starts closed.
func NewController(api ChatAPI, path string, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		api:       api,
		baseCtx:   ctx,
		cancelAll: cancel,
		phase:     StateIdle,
		page:      domain.NewPageContext(path),
		tasks:     make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.identity == nil {
		c.identity = NewIdentity()
	}
	return c
}

// Subscribe registers l and returns a func that removes it.
func (c *Controller) Subscribe(l Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return func() {}
	}
	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, listenerEntry{id: id, listener: l})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.listeners {
			if e.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) Open() error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return domain.ErrUnmounted
	}
	if c.open {
		c.mu.Unlock()
		return nil
	}
	before := c.stateLocked()
	c.open = true
	if c.phase == StateError {
		c.phase = StateIdle
		c.lastErr = ""
	}
	// Every closed -> open transition starts from an empty question cache.
	c.invalidateQuestionsLocked()
	c.loadQuestionsLocked()
	n := c.noticeLocked(before, false)
	c.mu.Unlock()

	n.deliver()
	return nil
}

// Close hides the widget. An outstanding request keeps running.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return domain.ErrUnmounted
	}
	before := c.stateLocked()
	c.open = false
	n := c.noticeLocked(before, false)
	c.mu.Unlock()

	n.deliver()
	return nil
}

func (c *Controller) Toggle() error {
	if c.State().IsOpen() {
		return c.Close()
	}
	return c.Open()
}

// Navigate updates the page context after a route change.
func (c *Controller) Navigate(path string) error {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return domain.ErrUnmounted
	}
	page := domain.NewPageContext(path)
	changed := page.Category != c.page.Category
	c.page = page
	if changed {
		c.invalidateQuestionsLocked()
		if c.open {
			c.loadQuestionsLocked()
		}
	}
	c.mu.Unlock()
	return nil
}

// Select captures the text of a finished selection gesture. Blank selections are ignored.
func (c *Controller) Select(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unmounted {
		return false
	}
	c.selection = text
	return true
}

// SelectHTML captures a selection delivered as an HTML fragment.
func (c *Controller) SelectHTML(fragment string) (bool, error) {
	text, err := selectionFromHTML(fragment)
	if err != nil {
		return false, err
	}
	return c.Select(text), nil
}

func (c *Controller) ClearSelection() {
	c.mu.Lock()
	c.selection = ""
	c.mu.Unlock()
}

func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
}

// SubmitInput sends the current contents of the input field.
func (c *Controller) SubmitInput(ctx context.Context) error {
	c.mu.Lock()
	text := c.input
	c.mu.Unlock()
	return c.Submit(ctx, text)
}

// Submit appends text as a user turn and relays it in the background.
// Cancelling ctx has the same effect as Stop.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyMessage
	}

	c.mu.Lock()
	switch {
	case c.unmounted:
		c.mu.Unlock()
		return domain.ErrUnmounted
	case !c.open:
		c.mu.Unlock()
		return domain.ErrWidgetClosed
	case c.inflight != nil:
		c.mu.Unlock()
		return domain.ErrBusy
	}

	before := c.stateLocked()
	sessionID := c.identity.SessionID()
	req := domain.DirectSend{
		Text:      text,
		SessionID: sessionID,
		Context: domain.OutgoingContext{
			SessionID:    sessionID,
			PageContext:  c.page.Path,
			SelectedText: c.selection,
		},
	}
	c.history = append(c.history, domain.NewTextTurn(domain.RoleUser, text))
	c.input = ""
	c.selection = ""
	c.partial = ""
	c.lastErr = ""
	c.phase = StateAwaiting

	c.gen++
	reqCtx, cancel := context.WithCancel(c.baseCtx)
	release := context.AfterFunc(ctx, cancel)
	fl := &inflight{gen: c.gen, cancel: cancel, done: make(chan struct{})}
	c.inflight = fl
	c.tasks[fl.done] = struct{}{}
	c.bg.Add(1)

	n := c.noticeLocked(before, true)
	c.mu.Unlock()

	n.deliver()
	go c.run(reqCtx, fl, req, release)
	return nil
}

// Stop aborts the outstanding request. Nothing from it reaches the history.
func (c *Controller) Stop() {
	c.mu.Lock()
	fl := c.inflight
	if fl == nil {
		c.mu.Unlock()
		return
	}
	before := c.stateLocked()
	c.inflight = nil
	delete(c.tasks, fl.done)
	c.partial = ""
	c.phase = StateIdle
	n := c.noticeLocked(before, false)
	c.mu.Unlock()

	fl.cancel()
	slog.Debug("chat request stopped", "generation", fl.gen)
	n.deliver()
}

// QuickQuestions returns the suggestions to offer, at most MaxSurfacedQuestions.
func (c *Controller) QuickQuestions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surfacedLocked()
}

// AskQuickQuestion submits the i-th surfaced suggestion.
func (c *Controller) AskQuickQuestion(ctx context.Context, i int) error {
	qs := c.QuickQuestions()
	if i < 0 || i >= len(qs) {
		return domain.ErrNoQuickQuestion
	}
	return c.Submit(ctx, qs[i])
}

// Wait blocks until no chat request or question fetch is outstanding and listeners
// have seen their results.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		var ch chan struct{}
		for done := range c.tasks {
			ch = done
			break
		}
		c.mu.Unlock()

		if ch == nil {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Unmount cancels everything in flight, detaches listeners and waits for background work.
func (c *Controller) Unmount() {
	c.mu.Lock()
	if c.unmounted {
		c.mu.Unlock()
		return
	}
	c.unmounted = true
	c.open = false
	c.inflight = nil
	c.listeners = nil
	c.invalidateQuestionsLocked()
	clear(c.tasks)
	c.mu.Unlock()

	c.cancelAll()
	c.bg.Wait()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) History() []domain.ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneTurns(c.history)
}

// Selection returns the pending annotation, or "" when none is set.
func (c *Controller) Selection() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

func (c *Controller) Page() domain.PageContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:          c.stateLocked(),
		History:        cloneTurns(c.history),
		Partial:        c.partial,
		Input:          c.input,
		Selection:      c.selection,
		Error:          c.lastErr,
		Page:           c.page,
		SessionID:      c.identity.SessionID(),
		QuickQuestions: c.surfacedLocked(),
	}
}

func (c *Controller) run(ctx context.Context, fl *inflight, req domain.DirectSend, release func() bool) {
	defer c.bg.Done()
	defer release()
	defer fl.cancel()

	var (
		turn domain.ChatTurn
		err  error
	)
	if api, ok := c.api.(StreamingChatAPI); ok && c.streaming {
		turn, err = api.SendStream(ctx, req, func(delta string) {
			c.delta(fl, delta)
		})
	} else {
		turn, err = c.api.Send(ctx, req)
	}
	c.settle(fl, turn, err)
	c.finish(fl.done)
}

func (c *Controller) finish(done chan struct{}) {
	c.mu.Lock()
	delete(c.tasks, done)
	c.mu.Unlock()
	close(done)
}

func (c *Controller) delta(fl *inflight, delta string) {
	c.mu.Lock()
	if c.inflight != fl {
		c.mu.Unlock()
		return
	}
	before := c.stateLocked()
	c.partial += delta
	c.phase = StateStreaming
	n := c.noticeLocked(before, false)
	n.delta = delta
	c.mu.Unlock()

	n.deliver()
}

func (c *Controller) settle(fl *inflight, turn domain.ChatTurn, err error) {
	c.mu.Lock()
	if c.inflight != fl {
		c.mu.Unlock()
		slog.Debug("discarding abandoned chat response", "generation", fl.gen)
		return
	}
	before := c.stateLocked()
	c.inflight = nil
	c.partial = ""

	appended := false
	switch {
	case err == nil:
		c.history = append(c.history, turn)
		c.phase = StateIdle
		appended = true
	case errors.Is(err, context.Canceled):
		c.phase = StateIdle
	default:
		c.phase = StateError
		c.lastErr = errorText(err)
		slog.Warn("chat request failed", "generation", fl.gen, "error", err)
	}
	n := c.noticeLocked(before, appended)
	c.mu.Unlock()

	n.deliver()
}

// invalidateQuestionsLocked drops cached questions and orphans any pending fetch.
func (c *Controller) invalidateQuestionsLocked() {
	if c.questionsDone != nil {
		delete(c.tasks, c.questionsDone)
	}
	c.qgen++
	c.questions = nil
	c.questionsLoaded = false
	c.questionsDone = nil
}

func (c *Controller) loadQuestionsLocked() {
	if c.questionsLoaded || c.questionsDone != nil {
		return
	}
	done := make(chan struct{})
	c.questionsDone = done
	c.tasks[done] = struct{}{}
	c.bg.Add(1)
	go c.fetchQuestions(c.qgen, c.page.Category, done)
}

func (c *Controller) fetchQuestions(gen uint64, category domain.Category, done chan struct{}) {
	defer c.bg.Done()

	qs, err := c.api.QuickQuestions(c.baseCtx, category)
	if err != nil && c.baseCtx.Err() == nil {
		slog.Warn("quick questions unavailable, using fallback", "category", category, "error", err)
		qs = domain.Fallback()
	}

	c.mu.Lock()
	if c.questionsDone == done {
		c.questionsDone = nil
	}
	if c.qgen != gen || c.baseCtx.Err() != nil {
		c.mu.Unlock()
		c.finish(done)
		return
	}
	if qs == nil {
		qs = []string{}
	}
	c.questions = qs
	c.questionsLoaded = true
	n := notice{listeners: c.listenersLocked(), questions: c.surfacedLocked(), questionsChanged: true}
	c.mu.Unlock()

	n.deliver()
	c.finish(done)
}

func (c *Controller) surfacedLocked() []string {
	qs := c.questions
	if len(qs) > domain.MaxSurfacedQuestions {
		qs = qs[:domain.MaxSurfacedQuestions]
	}
	out := make([]string, len(qs))
	copy(out, qs)
	return out
}

func (c *Controller) stateLocked() State {
	if !c.open {
		return StateClosed
	}
	return c.phase
}

func (c *Controller) listenersLocked() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for _, e := range c.listeners {
		out = append(out, e.listener)
	}
	return out
}

type notice struct {
	listeners        []Listener
	state            State
	stateChanged     bool
	history          []domain.ChatTurn
	historyChanged   bool
	delta            string
	questions        []string
	questionsChanged bool
}

func (c *Controller) noticeLocked(before State, historyChanged bool) notice {
	n := notice{listeners: c.listenersLocked()}
	if after := c.stateLocked(); after != before {
		n.state = after
		n.stateChanged = true
	}
	if historyChanged {
		n.history = cloneTurns(c.history)
		n.historyChanged = true
	}
	return n
}

func (n notice) deliver() {
	for _, l := range n.listeners {
		if n.historyChanged {
			l.HistoryChanged(n.history)
		}
		if n.stateChanged {
			l.StateChanged(n.state)
		}
		if n.delta != "" {
			l.ReplyDelta(n.delta)
		}
		if n.questionsChanged {
			l.QuestionsChanged(n.questions)
		}
	}
}

func cloneTurns(turns []domain.ChatTurn) []domain.ChatTurn {
	out := make([]domain.ChatTurn, len(turns))
	copy(out, turns)
	return out
}

func errorText(err error) string {
	if ve, ok := domain.AsValidation(err); ok {
		return ve.Message
	}
	return err.Error()
}
