package telegram

import (
	"strings"
	"testing"

	"svitlobot/internal/notify"
	"svitlobot/internal/schedule"
)

func TestFormatJobHeaders(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		job  notify.Job
		want string
	}{
		{
			name: "today",
			job:  notify.Job{Kind: schedule.SlotToday, GroupCode: "1.1", ScheduleDate: "25.12.2025"},
			want: "Графік (25.12.2025), група 1.1",
		},
		{
			name: "tomorrow published",
			job:  notify.Job{Kind: schedule.SlotTomorrow, GroupCode: "3.2", ScheduleDate: "26.12.2025", FirstForDate: true},
			want: "З'явився графік на завтра (26.12.2025), група 3.2",
		},
		{
			name: "tomorrow updated",
			job:  notify.Job{Kind: schedule.SlotTomorrow, GroupCode: "3.2", ScheduleDate: "26.12.2025"},
			want: "Оновлено графік на завтра (26.12.2025), група 3.2",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := FormatJob(tt.job)
			if !strings.Contains(got, tt.want) {
				t.Fatalf("FormatJob header missing:\n%s\nwant substring %q", got, tt.want)
			}
			if !strings.HasPrefix(got, "```\n") || !strings.HasSuffix(got, "\n```") {
				t.Fatalf("message is not a code block:\n%s", got)
			}
		})
	}
}

func TestFormatJobIntervals(t *testing.T) {
	t.Parallel()
	job := notify.Job{
		Kind:         schedule.SlotToday,
		GroupCode:    "1.1",
		ScheduleDate: "25.12.2025",
		Off:          []string{"10:00–14:00"},
		On:           []string{"00:00–10:00", "14:00–24:00"},
	}
	got := FormatJob(job)
	if !strings.Contains(got, "OFF: 10:00–14:00") {
		t.Fatalf("missing OFF line:\n%s", got)
	}
	if !strings.Contains(got, "ON : 00:00–10:00, 14:00–24:00") {
		t.Fatalf("missing ON line:\n%s", got)
	}
	if strings.Contains(got, "MAYBE") {
		t.Fatalf("MAYBE line rendered without data:\n%s", got)
	}
	if strings.Contains(got, "Зміни:") {
		t.Fatalf("diff rendered without prior state:\n%s", got)
	}

	// a schedule with no outages still renders both lines
	empty := FormatJob(notify.Job{Kind: schedule.SlotToday, GroupCode: "1.1", ScheduleDate: "25.12.2025", On: []string{"00:00–24:00"}})
	if !strings.Contains(empty, "OFF: немає") {
		t.Fatalf("missing empty OFF marker:\n%s", empty)
	}
}

func TestFormatJobDiff(t *testing.T) {
	t.Parallel()
	job := notify.Job{
		Kind:         schedule.SlotToday,
		GroupCode:    "1.1",
		ScheduleDate: "25.12.2025",
		Off:          []string{"10:00–14:00", "18:00–20:00"},
		On:           []string{"00:00–10:00", "14:00–18:00", "20:00–24:00"},
		Prior: &schedule.State{
			GroupCode:    "1.1",
			Slot:         schedule.SlotToday,
			ScheduleDate: "25.12.2025",
			Off:          []string{"10:00–14:00"},
			On:           []string{"00:00–10:00", "14:00–24:00"},
		},
	}
	got := FormatJob(job)
	if !strings.Contains(got, "Зміни:") {
		t.Fatalf("missing diff section:\n%s", got)
	}
	if !strings.Contains(got, "+OFF 18:00–20:00") {
		t.Fatalf("missing added outage:\n%s", got)
	}
	if !strings.Contains(got, "-ON 14:00–24:00") {
		t.Fatalf("missing removed on-interval:\n%s", got)
	}
	if !strings.Contains(got, "+ON 14:00–18:00") {
		t.Fatalf("missing added on-interval:\n%s", got)
	}
}

func TestFormatJobIdenticalPriorHasNoDiff(t *testing.T) {
	t.Parallel()
	// same intervals, different date: the hash changed but intervals did not
	job := notify.Job{
		Kind:         schedule.SlotToday,
		GroupCode:    "1.1",
		ScheduleDate: "26.12.2025",
		Off:          []string{"10:00–14:00"},
		Prior: &schedule.State{
			ScheduleDate: "25.12.2025",
			Off:          []string{"10:00–14:00"},
		},
	}
	if got := FormatJob(job); strings.Contains(got, "Зміни:") {
		t.Fatalf("empty diff must be omitted:\n%s", got)
	}
}

func TestFormatState(t *testing.T) {
	t.Parallel()
	st := &schedule.State{
		GroupCode:    "2.2",
		ScheduleDate: "25.12.2025",
		Off:          []string{"08:00–10:00"},
		On:           []string{"00:00–08:00", "10:00–24:00"},
		Maybe:        []string{"20:00–22:00"},
	}
	got := FormatState(st)
	if !strings.Contains(got, "Графік (25.12.2025), група 2.2") {
		t.Fatalf("missing header:\n%s", got)
	}
	if !strings.Contains(got, "MAYBE: 20:00–22:00") {
		t.Fatalf("missing MAYBE line:\n%s", got)
	}
}

func TestGroupKeyboardLayout(t *testing.T) {
	t.Parallel()
	kb := groupKeyboard()
	if len(kb.InlineKeyboard) != (len(schedule.Groups)+1)/2 {
		t.Fatalf("rows = %d", len(kb.InlineKeyboard))
	}
	total := 0
	for _, row := range kb.InlineKeyboard {
		total += len(row)
	}
	if total != len(schedule.Groups) {
		t.Fatalf("buttons = %d, want %d", total, len(schedule.Groups))
	}
	first := kb.InlineKeyboard[0][0]
	if first.Text != schedule.Groups[0] {
		t.Fatalf("first button = %q", first.Text)
	}
	if !strings.Contains(first.Data, schedule.Groups[0]) {
		t.Fatalf("callback data = %q, want group code payload", first.Data)
	}
}
