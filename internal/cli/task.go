package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"goaltracker/internal/coordinator"
	"goaltracker/internal/models"
	"goaltracker/internal/tracker"
	"goaltracker/internal/ui"
)

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"t"},
		Short:   "Manage tasks and recurring tasks",
	}
	cmd.AddCommand(
		newTaskAddCmd(a),
		newTaskListCmd(a),
		newTaskShowCmd(a),
		newTaskEditCmd(a),
		newTaskStatusCmd(a, "done", "Mark a task completed", (*tracker.TaskStore).Complete),
		newTaskStatusCmd(a, "fail", "Mark a task failed", (*tracker.TaskStore).Fail),
		newTaskStatusCmd(a, "reopen", "Move a task back to pending", (*tracker.TaskStore).Reactivate),
		newTaskDeleteCmd(a),
	)
	return cmd
}

// taskFlags are the fields shared by add and edit.
type taskFlags struct {
	desc     string
	deadline string
	priority string
	goal     string
	repeat   string
	every    int
	until    string
}

func (f *taskFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.desc, "desc", "d", "", "Description")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "Deadline (YYYY-MM-DD or YYYY-MM-DD HH:MM)")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "Priority: low, medium, high")
	cmd.Flags().StringVarP(&f.goal, "goal", "g", "", "Goal id to link")
	cmd.Flags().StringVarP(&f.repeat, "repeat", "r", "", "Repeat: none, daily, weekly, monthly, custom")
	cmd.Flags().IntVar(&f.every, "every", 1, "Repeat interval (days for custom)")
	cmd.Flags().StringVar(&f.until, "until", "", "Stop repeating after this date")
}

func newTaskAddCmd(a *app) *cobra.Command {
	var f taskFlags

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task; --repeat makes it a recurring template",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || strings.TrimSpace(strings.Join(args, " ")) == "" {
				return errors.New("title is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := models.Task{
				Title:          strings.Join(args, " "),
				Description:    f.desc,
				Priority:       models.Priority(f.priority),
				RepeatType:     models.RepeatType(f.repeat),
				RepeatInterval: f.every,
			}
			var err error
			if draft.Deadline, err = parseWhen(f.deadline); err != nil {
				return err
			}
			if draft.RepeatEndDate, err = parseWhen(f.until); err != nil {
				return err
			}

			return a.withSession(cmd.Context(), func(s *session) error {
				if f.goal != "" {
					goalID, err := s.goalID(f.goal)
					if err != nil {
						return err
					}
					draft.GoalID = &goalID
				}
				t, err := s.tasks.Create(cmd.Context(), draft)
				if err != nil {
					return err
				}
				a.println(ui.Good.Render(ui.IconDone+" created"), taskLine(t))
				return nil
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newTaskListCmd(a *app) *cobra.Command {
	var view string
	var goal string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := tracker.ParseView(view)
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				tasks := s.tasks.View(v)
				if goal != "" {
					goalID, err := s.goalID(goal)
					if err != nil {
						return err
					}
					kept := tasks[:0]
					for _, t := range tasks {
						if t.GoalID != nil && *t.GoalID == goalID {
							kept = append(kept, t)
						}
					}
					tasks = kept
				}

				a.println(ui.Heading(ui.IconTask, fmt.Sprintf("Tasks (%s)", v)) + "  " + modeBadge(s))
				if len(tasks) == 0 {
					a.println(ui.Muted.Render("no tasks"))
					return nil
				}
				for i := range tasks {
					a.println(taskLine(&tasks[i]))
				}
				return nil
			})
		},
	}
	names := make([]string, len(tracker.Views))
	for i, v := range tracker.Views {
		names[i] = string(v)
	}
	cmd.Flags().StringVarP(&view, "view", "v", string(tracker.ViewAll), "View: "+strings.Join(names, ", "))
	cmd.Flags().StringVarP(&goal, "goal", "g", "", "Only tasks linked to this goal")
	return cmd
}

func newTaskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				id, err := s.taskID(args[0])
				if err != nil {
					return err
				}
				t, err := s.tasks.Get(id)
				if err != nil {
					return err
				}
				lines := []string{
					ui.Heading(ui.IconTask, t.Title),
					ui.LabelValue("ID", t.ID),
					ui.LabelValue("Status", ui.StatusText(string(t.Status))),
					ui.LabelValue("Priority", ui.PriorityText(string(t.Priority))),
					ui.LabelValue("Deadline", formatWhen(t.Deadline)),
				}
				if t.Description != "" {
					lines = append(lines, ui.LabelValue("Description", t.Description))
				}
				if t.GoalID != nil {
					lines = append(lines, ui.LabelValue("Goal", *t.GoalID))
				}
				if t.IsRepeatTemplate {
					lines = append(lines,
						ui.LabelValue("Repeats", repeatText(t)),
						ui.LabelValue("Next due", formatWhen(t.NextDueDate)),
						ui.LabelValue("Until", formatWhen(t.RepeatEndDate)),
						ui.LabelValue("Instances", len(s.tasks.Instances(t.ID))),
					)
				}
				if t.ParentTemplateID != nil {
					lines = append(lines, ui.LabelValue("Template", *t.ParentTemplateID))
				}
				if t.CompletedAt != nil {
					lines = append(lines, ui.LabelValue("Completed", formatWhen(t.CompletedAt)))
				}
				a.println(ui.Panel.Render(strings.Join(lines, "\n")))
				return nil
			})
		},
	}
}

func newTaskEditCmd(a *app) *cobra.Command {
	var f taskFlags
	var title string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change task fields; an empty date or goal clears it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changed := cmd.Flags().Changed
			var patch models.TaskPatch
			if changed("title") {
				patch.Title = &title
			}
			if changed("desc") {
				patch.Description = &f.desc
			}
			if changed("priority") {
				patch.Priority = models.Ptr(models.Priority(f.priority))
			}
			if changed("repeat") {
				patch.RepeatType = models.Ptr(models.RepeatType(f.repeat))
			}
			if changed("every") {
				patch.RepeatInterval = &f.every
			}
			if changed("deadline") {
				d, err := parseWhen(f.deadline)
				if err != nil {
					return err
				}
				patch.Deadline = models.From(d)
			}
			if changed("until") {
				d, err := parseWhen(f.until)
				if err != nil {
					return err
				}
				patch.RepeatEndDate = models.From(d)
			}

			return a.withSession(cmd.Context(), func(s *session) error {
				id, err := s.taskID(args[0])
				if err != nil {
					return err
				}
				if changed("goal") {
					if f.goal == "" {
						patch.GoalID = models.Clear[string]()
					} else {
						goalID, err := s.goalID(f.goal)
						if err != nil {
							return err
						}
						patch.GoalID = models.SetTo(goalID)
					}
				}
				t, err := s.tasks.Update(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				a.println(ui.Good.Render(ui.IconDone+" updated"), taskLine(t))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title")
	f.bind(cmd)
	return cmd
}

type taskTransition func(*tracker.TaskStore, context.Context, string) (*models.Task, error)

func newTaskStatusCmd(a *app, use, short string, transition taskTransition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				id, err := s.taskID(args[0])
				if err != nil {
					return err
				}
				t, err := transition(s.tasks, cmd.Context(), id)
				if err != nil {
					return err
				}
				a.println(taskLine(t))
				return nil
			})
		},
	}
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	var cascade bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				id, err := s.taskID(args[0])
				if err != nil {
					return err
				}
				left := 0
				if !cascade {
					left = len(s.tasks.Instances(id))
				}
				n, err := s.tasks.Delete(cmd.Context(), id, cascade)
				if err != nil {
					return err
				}
				a.println(ui.Good.Render(fmt.Sprintf("%s deleted %d task(s)", ui.IconDone, n)))
				if left > 0 {
					a.println(ui.Warn.Render(fmt.Sprintf("%s %d instance(s) of this template were kept; delete with --cascade to remove them too", ui.IconWarn, left)))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cascade, "cascade", false, "Also delete the instances spawned by a template")
	return cmd
}

func (a *app) withSession(ctx context.Context, fn func(*session) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := a.openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func (s *session) taskID(prefix string) (string, error) {
	return resolveID(prefix, s.tasks.Tasks(), func(t *models.Task) string { return t.ID })
}

func (s *session) goalID(prefix string) (string, error) {
	return resolveID(prefix, s.goals.Goals(), func(g *models.Goal) string { return g.ID })
}

func modeBadge(s *session) string {
	if s.coord.Mode() == coordinator.Remote {
		return ui.Muted.Render(ui.IconRemote + " remote")
	}
	return ui.Muted.Render(ui.IconLocal + " local")
}
