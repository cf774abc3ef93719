package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/set-night/interiorchat/internal/domain"
	"github.com/set-night/interiorchat/internal/widget"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Bold(true)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	assistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	chipStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// renderer prints controller events. New turns are printed as they are appended,
// which keeps the latest message at the bottom of the terminal.
type renderer struct {
	mu        sync.Mutex
	out       io.Writer
	ctrl      *widget.Controller
	printed   int
	streaming bool
}

func newRenderer(out io.Writer, ctrl *widget.Controller) *renderer {
	return &renderer{out: out, ctrl: ctrl}
}

func (r *renderer) banner() {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.ctrl.Snapshot()
	fmt.Fprintln(r.out, titleStyle.Render("Furniture assistant"))
	fmt.Fprintln(r.out, mutedStyle.Render(fmt.Sprintf("session %s · page %s", snap.SessionID, snap.Page.Path)))
}

func (r *renderer) HistoryChanged(history []domain.ChatTurn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, turn := range history[min(r.printed, len(history)):] {
		switch turn.Role {
		case domain.RoleUser:
			fmt.Fprintf(r.out, "%s %s\n", userStyle.Render("you ›"), turn.Text())
		case domain.RoleAssistant:
			if r.streaming {
				// Already on screen from the deltas.
				fmt.Fprintln(r.out)
				r.streaming = false
				continue
			}
			fmt.Fprintf(r.out, "%s %s\n", assistantStyle.Render("assistant ›"), turn.Text())
		}
	}
	r.printed = len(history)
}

func (r *renderer) StateChanged(state widget.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch state {
	case widget.StateAwaiting:
		fmt.Fprintln(r.out, mutedStyle.Render("…"))
	case widget.StateError:
		r.endStreamLocked()
		fmt.Fprintln(r.out, errorStyle.Render(r.ctrl.Snapshot().Error))
	case widget.StateIdle:
		r.endStreamLocked()
	case widget.StateClosed:
		fmt.Fprintln(r.out, mutedStyle.Render("(widget closed)"))
	}
}

func (r *renderer) ReplyDelta(delta string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.streaming {
		fmt.Fprintf(r.out, "%s ", assistantStyle.Render("assistant ›"))
		r.streaming = true
	}
	fmt.Fprint(r.out, delta)
}

func (r *renderer) QuestionsChanged(questions []string) {
	r.questions(questions)
}

func (r *renderer) questions(questions []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(questions) == 0 {
		return
	}
	lines := make([]string, 0, len(questions))
	for i, q := range questions {
		lines = append(lines, fmt.Sprintf("/q %d  %s", i+1, q))
	}
	fmt.Fprintln(r.out, mutedStyle.Render(strings.Join(lines, "\n")))
}

func (r *renderer) page(page domain.PageContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, mutedStyle.Render(fmt.Sprintf("page %s (%s)", page.Path, page.Category)))
}

func (r *renderer) selection(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, chipStyle.Render("Asking about: "+widget.SelectionPreview(text)))
}

func (r *renderer) problem(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, errorStyle.Render(describe(err)))
}

// endStreamLocked terminates a partially printed reply that will never complete.
func (r *renderer) endStreamLocked() {
	if r.streaming && r.printed == len(r.ctrl.History()) {
		fmt.Fprintln(r.out)
		r.streaming = false
	}
}
