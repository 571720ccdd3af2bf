package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/dealroom/internal/cli/formatter"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const defaultWatchInterval = 5 * time.Second

func newWatchCmd(app *App) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch SESSION",
		Short: "Follow a negotiation live until it closes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			viewer, err := app.requireActor()
			if err != nil {
				return err
			}
			m := newWatchModel(cmd.Context(), app, args[0], viewer, interval)
			final, err := tea.NewProgram(m,
				tea.WithContext(cmd.Context()),
				tea.WithOutput(cmd.OutOrStdout()),
			).Run()
			if err != nil {
				return err
			}
			if wm, ok := final.(watchModel); ok && wm.err != nil {
				return wm.err
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultWatchInterval, "Refresh interval")
	return cmd
}

type snapshotMsg struct {
	session  *domain.NegotiationSession
	messages []*domain.Message
	err      error
}

type refreshMsg struct{}

// watchModel polls one negotiation and renders it with its conversation.
type watchModel struct {
	ctx       context.Context
	app       *App
	sessionID string
	viewer    string
	interval  time.Duration

	spinner  spinner.Model
	session  *domain.NegotiationSession
	messages []*domain.Message
	err      error
	quitting bool
}

func newWatchModel(ctx context.Context, app *App, sessionID, viewer string, interval time.Duration) watchModel {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(formatter.StylePurple))
	return watchModel{
		ctx:       ctx,
		app:       app,
		sessionID: sessionID,
		viewer:    viewer,
		interval:  interval,
		spinner:   sp,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch)
}

func (m watchModel) fetch() tea.Msg {
	s, err := m.app.Negotiations.Get(m.ctx, m.sessionID, m.viewer)
	if err != nil {
		return snapshotMsg{err: err}
	}
	msgs, err := m.app.Messages.List(m.ctx, m.sessionID, m.viewer)
	return snapshotMsg{session: s, messages: msgs, err: err}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.fetch
		}
	case snapshotMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, tea.Quit
		}
		m.session, m.messages = msg.session, msg.messages
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return refreshMsg{} })
	case refreshMsg:
		return m, m.fetch
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.err != nil {
		return formatter.StyleRed.Render(domain.UserMessage(m.err)) + "\n"
	}
	if m.session == nil {
		return fmt.Sprintf("%s loading %s\n", m.spinner.View(), m.sessionID)
	}
	var b strings.Builder
	b.WriteString(formatter.FormatSession(m.session, m.app.now()))
	b.WriteString("\n")
	b.WriteString(formatter.Header("Conversation") + "\n")
	b.WriteString(formatter.FormatMessages(m.messages, m.viewer))
	b.WriteString("\n")
	if m.quitting {
		return b.String()
	}
	if m.session.Status == domain.SessionActive {
		b.WriteString(m.spinner.View() + " " + formatter.Dim("watching · r refresh · q quit"))
	} else {
		b.WriteString(formatter.Dim("negotiation closed · q quit"))
	}
	return b.String() + "\n"
}
