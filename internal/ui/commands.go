package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/carlosrabelo/terminalnator/domain/entities"
	"github.com/carlosrabelo/terminalnator/internal/session"
)

type connectedMsg struct {
	sess *session.Session
}

type resultMsg struct {
	results []entities.CommandResult
	summary string
	err     error
}

type errMsg struct {
	err error
}

func connectCmd(backend Backend, id int, creds entities.Credentials) tea.Cmd {
	return func() tea.Msg {
		sess, err := backend.Connect(context.Background(), id, creds)
		if err != nil {
			return errMsg{err: err}
		}
		return connectedMsg{sess: sess}
	}
}

func runCmd(sess *session.Session, text string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		r, err := sess.RunCommand(context.Background(), text, timeout)
		msg := resultMsg{results: []entities.CommandResult{r}, err: err}
		if r.Truncated {
			msg.summary = "output truncated"
		} else {
			msg.summary = fmt.Sprintf("done in %s", time.Since(start).Round(time.Millisecond))
		}
		return msg
	}
}

func pushCmd(sess *session.Session, path string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		lines, err := session.ReadConfigLines(path)
		if err != nil {
			return resultMsg{err: err}
		}
		results, err := sess.PushConfig(context.Background(), lines, timeout, true)
		return resultMsg{
			results: results,
			summary: fmt.Sprintf("pushed %d lines from %s", len(results), path),
			err:     err,
		}
	}
}

func saveCmd(sess *session.Session, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		results, err := sess.Save(context.Background(), timeout)
		return resultMsg{results: results, summary: "configuration saved", err: err}
	}
}

// Run starts the UI on the terminal and blocks until the user quits.
func Run(backend Backend, commandTimeout time.Duration) error {
	m := New(backend, commandTimeout)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	m.closeSession()
	return err
}
