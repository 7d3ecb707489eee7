package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/carlosrabelo/terminalnator/domain/entities"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func renderProfiles(profiles []entities.Profile) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "HOST", "PORT", "USER", "FAMILY", "TRANSPORT", "PLATFORM").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, p := range profiles {
		port := p.Port
		if port == 0 {
			port = entities.DefaultPort(p.TransportName())
		}
		platformName := p.Platform
		if platformName == "" {
			platformName = "-"
		}
		t.Row(strconv.Itoa(p.ID), p.Host, strconv.Itoa(port), p.Username,
			p.Family.String(), p.TransportName(), platformName)
	}
	return t.Render()
}

func printResult(w io.Writer, r entities.CommandResult) {
	status := okStyle.Render("ok")
	if r.Rejected {
		status = failStyle.Render("rejected")
	}
	fmt.Fprintf(w, "[%s] %s\n", status, r.Command)
	if r.Rejected && r.Output != "" {
		fmt.Fprintln(w, r.Output)
	}
}
