package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/set-night/interiorchat/internal/domain"
	"github.com/set-night/interiorchat/internal/widget"
	"github.com/spf13/cobra"
)

var (
	apiURL    string
	startPath string
	streaming bool
	timeout   time.Duration
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "interiorchat",
	Short: "Talk to the furniture shop assistant from a terminal",
	Long: `Runs the chat widget against a running relay server.

Lines are sent as chat messages. Commands:
  /open, /close         show or hide the widget
  /go <path>            navigate, e.g. /go /products/modern-velvet-sofa
  /select <text>        attach page text to the next message
  /stop                 cancel the outstanding reply
  /q <n>                ask quick question n
  /quit                 exit`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringVar(&apiURL, "api", "http://localhost:3000", "Relay server base URL")
	rootCmd.Flags().StringVar(&startPath, "path", "/", "Page path the widget is mounted on")
	rootCmd.Flags().BoolVar(&streaming, "stream", false, "Stream replies as they are generated")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "Request timeout")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, in io.Reader, out io.Writer) error {
	client := widget.NewClient(apiURL, timeout)
	defer client.Close()

	ctrl := widget.NewController(client, startPath, widget.WithStreaming(streaming))
	defer ctrl.Unmount()

	r := newRenderer(out, ctrl)
	unsubscribe := ctrl.Subscribe(r)
	defer unsubscribe()

	r.banner()
	if err := ctrl.Open(); err != nil {
		return err
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// Let the last reply land before exiting on EOF.
				waitCtx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return ctrl.Wait(waitCtx)
			}
			quit, err := dispatch(ctx, ctrl, r, strings.TrimSpace(line))
			if err != nil {
				r.problem(err)
			}
			if quit {
				return nil
			}
		}
	}
}

func dispatch(ctx context.Context, ctrl *widget.Controller, r *renderer, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, "/") {
		return false, ctrl.Submit(ctx, line)
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/open":
		return false, ctrl.Open()
	case "/close":
		return false, ctrl.Close()
	case "/go":
		if arg == "" {
			return false, errors.New("usage: /go <path>")
		}
		if err := ctrl.Navigate(arg); err != nil {
			return false, err
		}
		r.page(ctrl.Page())
	case "/select":
		if !ctrl.Select(arg) {
			return false, errors.New("nothing selected")
		}
		r.selection(ctrl.Selection())
	case "/stop":
		ctrl.Stop()
	case "/q":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return false, errors.New("usage: /q <n>")
		}
		return false, ctrl.AskQuickQuestion(ctx, n-1)
	case "/questions":
		r.questions(ctrl.QuickQuestions())
	default:
		return false, fmt.Errorf("unknown command %s", name)
	}
	return false, nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrBusy):
		return "still waiting for the last reply, /stop to cancel it"
	case errors.Is(err, domain.ErrWidgetClosed):
		return "the widget is closed, /open it first"
	case errors.Is(err, domain.ErrNoQuickQuestion):
		return "no such quick question"
	default:
		return err.Error()
	}
}
