package telegram

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"svitlobot/internal/notify"
	"svitlobot/internal/schedule"
)

const (
	btnChooseGroup  = "Обрати групу"
	btnShowSchedule = "Показати графік"
	btnHelp         = "Що робити?"
)

// mainMenu is the persistent reply keyboard under every message.
func mainMenu() *tele.ReplyMarkup {
	menu := &tele.ReplyMarkup{ResizeKeyboard: true, IsPersistent: true}
	menu.Reply(
		menu.Row(menu.Text(btnChooseGroup), menu.Text(btnShowSchedule)),
		menu.Row(menu.Text(btnHelp)),
	)
	return menu
}

// groupKeyboard is the inline group picker, two buttons per row.
func groupKeyboard() *tele.ReplyMarkup {
	kb := &tele.ReplyMarkup{}
	var rows []tele.Row
	for i := 0; i < len(schedule.Groups); i += 2 {
		row := tele.Row{kb.Data(schedule.Groups[i], "set_group", schedule.Groups[i])}
		if i+1 < len(schedule.Groups) {
			row = append(row, kb.Data(schedule.Groups[i+1], "set_group", schedule.Groups[i+1]))
		}
		rows = append(rows, row)
	}
	kb.Inline(rows...)
	return kb
}

// FormatJob renders a change notification as a monospace block, with a diff
// against the replaced state when one exists.
func FormatJob(job notify.Job) string {
	var header string
	switch {
	case job.Kind == schedule.SlotTomorrow && job.FirstForDate:
		header = "З'явився графік на завтра (" + job.ScheduleDate + "), група " + job.GroupCode
	case job.Kind == schedule.SlotTomorrow:
		header = "Оновлено графік на завтра (" + job.ScheduleDate + "), група " + job.GroupCode
	default:
		header = "Графік (" + job.ScheduleDate + "), група " + job.GroupCode
	}

	lines := []string{header, ""}
	lines = append(lines, intervalLines(job.Off, job.On, job.Maybe)...)

	if job.Prior != nil {
		var changes []string
		changes = append(changes, diffLines("OFF", job.Prior.Off, job.Off)...)
		changes = append(changes, diffLines("ON", job.Prior.On, job.On)...)
		changes = append(changes, diffLines("MAYBE", job.Prior.Maybe, job.Maybe)...)
		if len(changes) > 0 {
			lines = append(lines, "", "Зміни:")
			lines = append(lines, changes...)
		}
	}

	return codeBlock(lines)
}

// FormatState renders the currently stored schedule, used by /status and
// right after a group is chosen.
func FormatState(st *schedule.State) string {
	lines := []string{"Графік (" + st.ScheduleDate + "), група " + st.GroupCode, ""}
	lines = append(lines, intervalLines(st.Off, st.On, st.Maybe)...)
	return codeBlock(lines)
}

func intervalLines(off, on, maybe []string) []string {
	lines := []string{
		"OFF: " + joinOr(off, "немає"),
		"ON : " + joinOr(on, "немає"),
	}
	if len(maybe) > 0 {
		lines = append(lines, "MAYBE: "+strings.Join(maybe, ", "))
	}
	return lines
}

func diffLines(label string, old, new []string) []string {
	added, removed := schedule.Diff(old, new)
	var out []string
	for _, iv := range added {
		out = append(out, "+"+label+" "+iv)
	}
	for _, iv := range removed {
		out = append(out, "-"+label+" "+iv)
	}
	return out
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}

func codeBlock(lines []string) string {
	return "```\n" + strings.Join(lines, "\n") + "\n```"
}
