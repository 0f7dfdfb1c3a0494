package recurrence

import (
	"fmt"
	"testing"
	"time"

	"goaltracker/internal/models"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("inst-%d", n)
	}
}

func dailyTemplate(next time.Time) models.Task {
	return models.Task{
		ID:               "tpl",
		Title:            "Water plants",
		Description:      "all of them",
		Priority:         models.PriorityHigh,
		GoalID:           models.Ptr("garden"),
		Status:           models.StatusPending,
		IsRepeatTemplate: true,
		RepeatType:       models.RepeatDaily,
		RepeatInterval:   1,
		NextDueDate:      &next,
	}
}

func TestNextDueDate(t *testing.T) {
	base := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	jan31 := time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		base     *time.Time
		rt       models.RepeatType
		interval int
		want     *time.Time
	}{
		{"daily", &base, models.RepeatDaily, 1, models.Ptr(base.AddDate(0, 0, 1))},
		{"every three days", &base, models.RepeatDaily, 3, models.Ptr(base.AddDate(0, 0, 3))},
		{"weekly", &base, models.RepeatWeekly, 2, models.Ptr(base.AddDate(0, 0, 14))},
		{"monthly", &base, models.RepeatMonthly, 1, models.Ptr(time.Date(2024, 2, 15, 9, 30, 0, 0, time.UTC))},
		{"monthly overflow rolls over", &jan31, models.RepeatMonthly, 1, models.Ptr(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC))},
		{"custom counts days", &base, models.RepeatCustom, 10, models.Ptr(base.AddDate(0, 0, 10))},
		{"zero interval counts as one", &base, models.RepeatDaily, 0, models.Ptr(base.AddDate(0, 0, 1))},
		{"none", &base, models.RepeatNone, 1, nil},
		{"unknown", &base, "yearly", 1, nil},
		{"absent base", nil, models.RepeatDaily, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.base, tt.rt, tt.interval)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("expected nil, got %v", *got)
			case tt.want != nil && got == nil:
				t.Errorf("expected %v, got nil", *tt.want)
			case tt.want != nil && !got.Equal(*tt.want):
				t.Errorf("expected %v, got %v", *tt.want, *got)
			}
		})
	}
}

func TestMaterialize_SpawnsWhenDue(t *testing.T) {
	due := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	e := NewWithIDs(seqIDs())

	res := e.Materialize(dailyTemplate(due), due)

	if res.Spawned == nil {
		t.Fatal("expected an instance to be spawned")
	}
	inst := res.Spawned
	if inst.ID != "inst-1" {
		t.Errorf("expected id %q, got %q", "inst-1", inst.ID)
	}
	if inst.Deadline == nil || !inst.Deadline.Equal(due) {
		t.Errorf("expected deadline %v, got %v", due, inst.Deadline)
	}
	if inst.IsRepeatTemplate {
		t.Error("expected instance to not be a template")
	}
	if inst.ParentTemplateID == nil || *inst.ParentTemplateID != "tpl" {
		t.Errorf("expected parent template %q, got %v", "tpl", inst.ParentTemplateID)
	}
	if inst.Status != models.StatusPending || inst.CompletedAt != nil || inst.NextDueDate != nil {
		t.Errorf("expected a fresh pending instance, got %+v", inst)
	}
	if inst.Title != "Water plants" || inst.Priority != models.PriorityHigh || *inst.GoalID != "garden" {
		t.Errorf("expected template fields to be copied, got %+v", inst)
	}

	want := due.AddDate(0, 0, 1)
	if res.Template.NextDueDate == nil || !res.Template.NextDueDate.Equal(want) {
		t.Errorf("expected next due date %v, got %v", want, res.Template.NextDueDate)
	}
}

func TestMaterialize_NotYetDue(t *testing.T) {
	due := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	e := NewWithIDs(seqIDs())

	res := e.Materialize(dailyTemplate(due), due.Add(-time.Minute))

	if res.Changed() {
		t.Fatalf("expected no change, got %+v", res)
	}
	if !res.Template.NextDueDate.Equal(due) {
		t.Errorf("expected next due date to stay %v, got %v", due, res.Template.NextDueDate)
	}
}

func TestMaterialize_IdempotentForSameNow(t *testing.T) {
	due := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	now := due.Add(time.Hour)
	e := NewWithIDs(seqIDs())

	first := e.Materialize(dailyTemplate(due), now)
	second := e.Materialize(first.Template, now)

	if first.Spawned == nil {
		t.Fatal("expected first call to spawn")
	}
	if second.Spawned != nil {
		t.Errorf("expected no second spawn for the same cycle, got deadline %v", second.Spawned.Deadline)
	}
}

func TestCatchUp_SpawnsEveryMissedCycle(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		first time.Time
		want  int
	}{
		// A cycle due exactly at now is due and spawns with the missed ones.
		{"due three days ago to the minute", now.AddDate(0, 0, -3), 4},
		{"due just under three days ago", now.AddDate(0, 0, -3).Add(time.Hour), 3},
		{"due one minute ago", now.Add(-time.Minute), 1},
		{"due in one minute", now.Add(time.Minute), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewWithIDs(seqIDs())
			spawned, tpl := e.CatchUp(dailyTemplate(tt.first), now)

			if len(spawned) != tt.want {
				t.Fatalf("expected %d instances, got %d", tt.want, len(spawned))
			}
			for i := range spawned {
				want := tt.first.AddDate(0, 0, i)
				if spawned[i].Deadline == nil || !spawned[i].Deadline.Equal(want) {
					t.Errorf("expected instance %d due %v, got %v", i, want, spawned[i].Deadline)
				}
			}
			if !tpl.NextDueDate.After(now) {
				t.Errorf("expected next due date after %v, got %v", now, tpl.NextDueDate)
			}
		})
	}
}

func TestMaterialize_StopsAfterEndDate(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	end := now.AddDate(0, 0, -1)
	tpl := dailyTemplate(now.AddDate(0, 0, -30))
	tpl.RepeatEndDate = &end
	e := NewWithIDs(seqIDs())

	spawned, got := e.CatchUp(tpl, now)

	if len(spawned) != 0 {
		t.Errorf("expected no instances, got %d", len(spawned))
	}
	if got.IsRepeatTemplate {
		t.Error("expected template to be retired")
	}
	if got.NextDueDate != nil {
		t.Errorf("expected next due date to be cleared, got %v", got.NextDueDate)
	}
}

func TestMaterialize_IgnoresIneligible(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	e := NewWithIDs(seqIDs())

	plain := models.Task{ID: "plain", RepeatType: models.RepeatNone, NextDueDate: &now}
	if res := e.Materialize(plain, now); res.Changed() {
		t.Errorf("expected non-template to be ignored, got %+v", res)
	}

	noDue := dailyTemplate(now)
	noDue.NextDueDate = nil
	if res := e.Materialize(noDue, now); res.Changed() {
		t.Errorf("expected template without next due date to be ignored, got %+v", res)
	}
}

func TestExpire(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tasks := []models.Task{
		{ID: "overdue", Status: models.StatusPending, Deadline: &past},
		{ID: "later", Status: models.StatusPending, Deadline: &future},
		{ID: "done", Status: models.StatusCompleted, Deadline: &past},
		{ID: "template", Status: models.StatusPending, Deadline: &past, IsRepeatTemplate: true},
		{ID: "undated", Status: models.StatusPending},
	}

	expired := Expire(tasks, now)

	if len(expired) != 1 {
		t.Fatalf("expected 1 expired task, got %d", len(expired))
	}
	if expired[0].ID != "overdue" || expired[0].Status != models.StatusExpired {
		t.Errorf("expected overdue task to expire, got %+v", expired[0])
	}
	if tasks[0].Status != models.StatusPending {
		t.Error("expected input slice to be left untouched")
	}
}

func TestSweep_ExpiresBeforeMaterializing(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	e := NewWithIDs(seqIDs())

	res := e.Sweep([]models.Task{dailyTemplate(now.AddDate(0, 0, -2))}, now)

	// -2d, -1d and the cycle due now.
	if len(res.Spawned) != 3 {
		t.Fatalf("expected 3 spawned instances, got %d", len(res.Spawned))
	}
	if len(res.Expired) != 0 {
		t.Errorf("expected freshly spawned instances to not expire in the same sweep, got %d", len(res.Expired))
	}
	if len(res.Templates) != 1 {
		t.Errorf("expected 1 changed template, got %d", len(res.Templates))
	}
}

func TestSweep_SkipsCyclesAlreadySpawned(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	first := now.AddDate(0, 0, -1)
	e := NewWithIDs(seqIDs())

	existing := models.Task{
		ID:               "old",
		Status:           models.StatusPending,
		Deadline:         &first,
		ParentTemplateID: models.Ptr("tpl"),
	}
	res := e.Sweep([]models.Task{dailyTemplate(first), existing}, now)

	if len(res.Spawned) != 1 {
		t.Fatalf("expected 1 new instance, got %d", len(res.Spawned))
	}
	if !res.Spawned[0].Deadline.Equal(now) {
		t.Errorf("expected only the %v cycle to spawn, got %v", now, res.Spawned[0].Deadline)
	}
}
