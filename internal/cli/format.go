package cli

import (
	"fmt"
	"strings"
	"time"

	"goaltracker/internal/models"
	"goaltracker/internal/ui"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseWhen reads a date flag in local time. An empty string means unset.
func parseWhen(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date %q (use YYYY-MM-DD or YYYY-MM-DD HH:MM)", s)
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "-"
	}
	local := t.Local()
	if local.Hour() == 0 && local.Minute() == 0 {
		return local.Format("2006-01-02")
	}
	return local.Format("2006-01-02 15:04")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func taskLine(t *models.Task) string {
	icon := ui.IconTask
	switch {
	case t.IsRepeatTemplate:
		icon = ui.IconLoop
	case t.Status == models.StatusCompleted:
		icon = ui.IconDone
	case t.Status == models.StatusFailed || t.Status == models.StatusExpired:
		icon = ui.IconFail
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s  %s  %s",
		icon,
		ui.Muted.Render(shortID(t.ID)),
		t.Title,
		ui.StatusText(string(t.Status)),
		ui.PriorityText(string(t.Priority)),
	)
	if t.IsRepeatTemplate {
		fmt.Fprintf(&b, "  %s", ui.Muted.Render(repeatText(t)+", next "+formatWhen(t.NextDueDate)))
	} else if t.Deadline != nil {
		fmt.Fprintf(&b, "  %s", ui.Muted.Render("due "+formatWhen(t.Deadline)))
	}
	return b.String()
}

func repeatText(t *models.Task) string {
	if t.RepeatInterval <= 1 {
		return string(t.RepeatType)
	}
	unit := map[models.RepeatType]string{
		models.RepeatDaily:   "days",
		models.RepeatWeekly:  "weeks",
		models.RepeatMonthly: "months",
		models.RepeatCustom:  "days",
	}[t.RepeatType]
	return fmt.Sprintf("every %d %s", t.RepeatInterval, unit)
}

func goalLine(g *models.Goal) string {
	return fmt.Sprintf("%s %s %s  %s  %s  %s",
		ui.IconGoal,
		ui.Muted.Render(shortID(g.ID)),
		g.Title,
		ui.StatusText(string(g.Status)),
		ui.ProgressBar(g.Progress, 20),
		ui.Muted.Render(g.Category),
	)
}

// resolveID expands a unique id prefix, as printed by the list commands.
func resolveID[T any](prefix string, items []T, id func(*T) string) (string, error) {
	var match string
	for i := range items {
		full := id(&items[i])
		if full == prefix {
			return full, nil
		}
		if strings.HasPrefix(full, prefix) {
			if match != "" {
				return "", models.NewValidationError("id prefix %q is ambiguous", prefix)
			}
			match = full
		}
	}
	if match == "" {
		return prefix, nil
	}
	return match, nil
}
