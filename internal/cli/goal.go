package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"goaltracker/internal/models"
	"goaltracker/internal/tracker"
	"goaltracker/internal/ui"
)

func newGoalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "goal",
		Aliases: []string{"g"},
		Short:   "Manage goals",
	}
	cmd.AddCommand(
		newGoalAddCmd(a),
		newGoalListCmd(a),
		newGoalShowCmd(a),
		newGoalStatusCmd(a, "done", "Mark a goal completed", (*tracker.GoalStore).Complete),
		newGoalStatusCmd(a, "pause", "Pause a goal", (*tracker.GoalStore).Pause),
		newGoalStatusCmd(a, "resume", "Resume a paused or completed goal", (*tracker.GoalStore).Resume),
		newGoalStatusCmd(a, "archive", "Archive a goal", (*tracker.GoalStore).Archive),
		newGoalDeleteCmd(a),
	)
	return cmd
}

func newGoalAddCmd(a *app) *cobra.Command {
	var desc, target, category string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a goal",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || strings.TrimSpace(strings.Join(args, " ")) == "" {
				return errors.New("title is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := models.Goal{
				Title:       strings.Join(args, " "),
				Description: desc,
				Category:    category,
			}
			var err error
			if draft.TargetDate, err = parseWhen(target); err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				g, err := s.goals.Create(cmd.Context(), draft)
				if err != nil {
					return err
				}
				a.println(ui.Good.Render(ui.IconDone+" created"), goalLine(g))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description")
	cmd.Flags().StringVar(&target, "target", "", "Target date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&category, "category", "", "Category (default personal)")
	return cmd
}

func newGoalListCmd(a *app) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List goals with their progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !models.GoalStatus(status).Valid() {
				return models.NewValidationError("unknown goal status %q", status)
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				a.println(ui.Heading(ui.IconGoal, "Goals") + "  " + modeBadge(s))
				shown := 0
				for _, g := range s.goals.Goals() {
					if status != "" && string(g.Status) != status {
						continue
					}
					a.println(goalLine(&g))
					shown++
				}
				if shown == 0 {
					a.println(ui.Muted.Render("no goals"))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Only goals with this status")
	return cmd
}

func newGoalShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a goal and its linked tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				id, err := s.goalID(args[0])
				if err != nil {
					return err
				}
				g, err := s.goals.Get(id)
				if err != nil {
					return err
				}
				lines := []string{
					ui.Heading(ui.IconGoal, g.Title),
					ui.LabelValue("ID", g.ID),
					ui.LabelValue("Status", ui.StatusText(string(g.Status))),
					ui.LabelValue("Progress", ui.ProgressBar(g.Progress, 20)),
					ui.LabelValue("Category", g.Category),
					ui.LabelValue("Target", formatWhen(g.TargetDate)),
				}
				if g.Description != "" {
					lines = append(lines, ui.LabelValue("Description", g.Description))
				}
				a.println(ui.Panel.Render(strings.Join(lines, "\n")))

				for _, t := range s.tasks.Tasks() {
					if t.GoalID != nil && *t.GoalID == g.ID {
						a.println("  " + taskLine(&t))
					}
				}
				return nil
			})
		},
	}
}

type goalTransition func(*tracker.GoalStore, context.Context, string) (*models.Goal, error)

func newGoalStatusCmd(a *app, use, short string, transition goalTransition) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				id, err := s.goalID(args[0])
				if err != nil {
					return err
				}
				if _, err := transition(s.goals, cmd.Context(), id); err != nil {
					return err
				}
				g, err := s.goals.Get(id)
				if err != nil {
					return err
				}
				a.println(goalLine(g))
				return nil
			})
		},
	}
}

func newGoalDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a goal; linked tasks are kept and unlinked",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				id, err := s.goalID(args[0])
				if err != nil {
					return err
				}
				if err := s.goals.Delete(cmd.Context(), id); err != nil {
					return err
				}
				a.println(ui.Good.Render(ui.IconDone + " goal deleted"))
				return nil
			})
		},
	}
}
