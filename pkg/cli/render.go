package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/taskquest/pkg/analytics"
	"github.com/harrisonrobin/taskquest/pkg/mission"
	"github.com/harrisonrobin/taskquest/pkg/model"
	"github.com/harrisonrobin/taskquest/pkg/season"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(lipgloss.Color("#7D56F4")).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	badStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	xpStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB86C"))
)

// row lays cells out in fixed-width columns.
func row(widths []int, style lipgloss.Style, cells ...string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		w := 12
		if i < len(widths) {
			w = widths[i]
		}
		parts[i] = style.Width(w).MaxWidth(w).Render(c)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func statusStyle(t model.Task) lipgloss.Style {
	switch {
	case t.Status == model.StatusCompleted && t.MetDeadline:
		return goodStyle
	case t.Status == model.StatusCompleted:
		return badStyle
	case t.Status == model.StatusRework:
		return xpStyle
	}
	return lipgloss.NewStyle()
}

func renderTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No tasks."))
		return
	}
	widths := []int{14, 32, 12, 13, 10, 12, 12, 7}
	lines := []string{row(widths, headerStyle, "ID", "TITLE", "OWNER", "STATUS", "PRIORITY", "DEADLINE", "END", "DELAY")}
	for _, t := range tasks {
		lines = append(lines, row(widths, statusStyle(t),
			t.ID, t.Title, t.Owner, string(t.Status), string(t.Priority),
			t.Deadline.String(), t.End.String(), fmt.Sprintf("%d", t.DelayDays)))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderHistory(w io.Writer, playerID string, entries []model.XPEntry) {
	title := titleStyle.Render(fmt.Sprintf("%s · %d XP", playerID, model.TotalXP(entries)))
	if len(entries) == 0 {
		fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render("No XP yet.")))
		return
	}
	widths := []int{18, 7, 9, 50}
	lines := []string{title, row(widths, headerStyle, "DATE", "XP", "SOURCE", "DESCRIPTION")}
	for _, e := range entries {
		lines = append(lines, row(widths, lipgloss.NewStyle(),
			e.Date.Local().Format("2006-01-02 15:04"), fmt.Sprintf("%+d", e.XP), string(e.Source), e.Description))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderEntry(w io.Writer, e *model.XPEntry) {
	fmt.Fprintf(w, "%s %s\n", xpStyle.Render(fmt.Sprintf("%+d XP", e.XP)), e.Description)
}

func renderProgress(w io.Writer, progress []mission.Progress) {
	if len(progress) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No active missions."))
		return
	}
	widths := []int{28, 10, 12, 8, 12}
	lines := []string{row(widths, headerStyle, "MISSION", "PERIOD", "PROGRESS", "XP", "STATE")}
	for _, p := range progress {
		state, style := "open", lipgloss.NewStyle()
		switch {
		case p.Awarded:
			state, style = "awarded", goodStyle
		case p.Done:
			state, style = "done", xpStyle
		}
		lines = append(lines, row(widths, style,
			p.Mission.Name, string(p.Mission.Frequency), fmt.Sprintf("%d/%d", p.Count, p.Target),
			fmt.Sprintf("%d", p.Mission.XPReward), state))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderLeaderboard(w io.Writer, s season.Config, standings []analytics.Standing) {
	name := s.Name
	if name == "" {
		name = "Season"
	}
	title := titleStyle.Render(fmt.Sprintf("%s (%s to %s)", name, s.Start.Format("2006-01-02"), s.End.Format("2006-01-02")))
	if len(standings) == 0 {
		fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, title, mutedStyle.Render("No XP this season.")))
		return
	}
	widths := []int{6, 24, 10, 7}
	lines := []string{title, row(widths, headerStyle, "RANK", "PLAYER", "XP", "TASKS")}
	for _, st := range standings {
		label := st.Name
		if label == "" {
			label = st.PlayerID
		}
		style := lipgloss.NewStyle()
		if st.Rank == 1 {
			style = xpStyle
		}
		lines = append(lines, row(widths, style,
			fmt.Sprintf("#%d", st.Rank), label, fmt.Sprintf("%d", st.XP), fmt.Sprintf("%d", st.Tasks)))
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderSummary(w io.Writer, s analytics.Summary) {
	statuses := make([]string, 0, len(s.ByStatus))
	for _, st := range []model.Status{model.StatusBacklog, model.StatusTodo, model.StatusInProgress, model.StatusRework, model.StatusCompleted} {
		if n := s.ByStatus[st]; n > 0 {
			statuses = append(statuses, fmt.Sprintf("%s %d", st, n))
		}
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("%d tasks", s.Total)),
		mutedStyle.Render(strings.Join(statuses, " · ")),
		fmt.Sprintf("Completed %d: %s on time, %s late (%.0f%% on time)",
			s.Completed, goodStyle.Render(fmt.Sprintf("%d", s.OnTime)), badStyle.Render(fmt.Sprintf("%d", s.Late)), s.OnTimeRate*100),
		fmt.Sprintf("Delay over %d tasks (%d outliers removed): mean %.1f, median %.1f, mode %d business days",
			s.Delay.Samples, s.Delay.OutliersRemoved, s.Delay.Mean, s.Delay.Median, s.Delay.Mode),
	}
	fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, lines...))
}
