package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dansprotocol/internal/bootstrap"
	"dansprotocol/internal/platform/config"
	"dansprotocol/internal/platform/sqlitedb"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataPath string

	root := &cobra.Command{
		Use:           "protocol",
		Short:         "Dan's Protocol journaling companion",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataPath, "data", ".", "data directory")

	root.AddCommand(newTUICmd(&dataPath))
	root.AddCommand(newStatusCmd(&dataPath))
	root.AddCommand(newStartCmd(&dataPath))
	root.AddCommand(newAnswerCmd(&dataPath))
	root.AddCommand(newInterruptCmds(&dataPath)...)
	root.AddCommand(newNextCmd(&dataPath))
	root.AddCommand(newComponentCmd(&dataPath))
	root.AddCommand(newComponentsCmd(&dataPath))
	root.AddCommand(newEntriesCmd(&dataPath))
	root.AddCommand(newHistoryCmd(&dataPath))
	root.AddCommand(newNewRunCmd(&dataPath))
	root.AddCommand(newQuestionsCmd(&dataPath))
	root.AddCommand(newExportCmd(&dataPath))
	return root
}

func loadApp(dataPath string) (*bootstrap.App, error) {
	cfg, err := config.New(dataPath)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

// withApp opens the app, runs fn and then drains deferred controller work
// before closing the store.
func withApp(dataPath string, fn func(ctx context.Context, app *bootstrap.App) error) error {
	app, err := loadApp(dataPath)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	err = fn(context.Background(), app)
	app.Drain()
	return err
}

func newTUICmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(*dataPath)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			return bootstrap.RunTUI(app)
		},
	}
}

func newStatusCmd(dataPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current phase and interrupt state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				snap := app.ProtocolCLI.Status(ctx)
				if asJSON {
					return printJSON(cmd.OutOrStdout(), snap)
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "state: %s\n", snap.State)
				if s := snap.Session; s != nil {
					_, _ = fmt.Fprintf(out, "session: %s started=%s wake=%s lang=%s status=%s\n",
						s.ID, s.StartDate.Format("2006-01-02"), s.WakeUpTime.Format("15:04"), s.Language, s.Status)
				}
				_, _ = fmt.Fprintf(out, "permission: %s\n", snap.Permission)
				if snap.ActiveInterrupt != "" {
					_, _ = fmt.Fprintf(out, "active interrupt: %s showing=%t\n", snap.ActiveInterrupt, snap.Showing)
				}
				if len(snap.Pending) > 0 {
					_, _ = fmt.Fprintf(out, "pending: %s\n", strings.Join(snap.Pending, ", "))
				}
				if app.StoreMode != sqlitedb.ModePersistent {
					_, _ = fmt.Fprintf(out, "storage: %s\n", app.StoreMode)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func newStartCmd(dataPath *string) *cobra.Command {
	var wake, lang, date string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Begin a run and schedule the day's interrupts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				if wake == "" {
					wake = app.Settings.WakeTime
				}
				if lang == "" {
					lang = app.Settings.Language
				}
				out, err := app.ProtocolCLI.Onboard(ctx, date, wake, lang, time.Now())
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "started %s (%s) permission=%s\n", out.Session.ID, out.Session.StartDate.Format("2006-01-02"), out.Permission)
				for _, n := range out.Scheduled {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s  %-9s %s\n", n.FireAt.Format("15:04"), n.Kind, n.QuestionID)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&wake, "wake", "", "wake-up time HH:MM (defaults to settings)")
	cmd.Flags().StringVar(&lang, "lang", "", "language en|ko (defaults to settings)")
	cmd.Flags().StringVar(&date, "date", "", "start date YYYY-MM-DD (defaults to today)")
	return cmd
}

func newAnswerCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <question-id> <text...>",
		Short: "Save a response for a question",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ProtocolCLI.Answer(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				if out.Components != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", args[0])
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "saved %s (entry %s)\n", args[0], out.Entry.ID)
				return nil
			})
		},
	}
}

func newInterruptCmds(dataPath *string) []*cobra.Command {
	skip := &cobra.Command{
		Use:   "skip <question-id>",
		Short: "Snooze the shown interrupt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				out := app.ProtocolCLI.Skip(ctx, args[0])
				if out.Rescheduled {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "snoozed (%d) until %s\n", out.SnoozeCount, out.FireAt.Format("15:04"))
					return nil
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "skipped (%d), no further reminder\n", out.SnoozeCount)
				return nil
			})
		},
	}

	dismiss := &cobra.Command{
		Use:   "dismiss",
		Short: "Hide the shown interrupt without answering",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(_ context.Context, app *bootstrap.App) error {
				app.ProtocolCLI.Dismiss()
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "dismissed")
				return nil
			})
		},
	}

	var sessionID string
	tap := &cobra.Command{
		Use:   "tap <question-id>",
		Short: "Simulate opening an interrupt notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				app.ProtocolCLI.Tap(ctx, args[0], sessionID)
				app.Drain()
				snap := app.ProtocolCLI.Status(ctx)
				if snap.Showing {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "showing %s\n", snap.ActiveInterrupt)
					return nil
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing to show")
				return nil
			})
		},
	}
	tap.Flags().StringVar(&sessionID, "session", "", "session the notification belongs to")

	var asTap bool
	deliver := &cobra.Command{
		Use:   "deliver",
		Short: "Deliver notifications that are due",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				delivered, err := app.ProtocolCLI.Deliver(ctx, asTap)
				if err != nil {
					return err
				}
				if len(delivered) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "nothing due")
					return nil
				}
				for _, n := range delivered {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s %s\n", n.FireAt.Format("15:04"), n.Kind, n.QuestionID)
				}
				return nil
			})
		},
	}
	deliver.Flags().BoolVar(&asTap, "tap", true, "treat delivered interrupts as opened")

	upcoming := &cobra.Command{
		Use:   "upcoming",
		Short: "List scheduled notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				pending, err := app.ProtocolCLI.Upcoming(ctx)
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no notifications scheduled")
					return nil
				}
				for _, n := range pending {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %-9s %s\n", n.FireAt.Format("2006-01-02 15:04"), n.Kind, n.QuestionID)
				}
				return nil
			})
		},
	}
	return []*cobra.Command{skip, dismiss, tap, deliver, upcoming}
}

func newNextCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:     "next",
		Aliases: []string{"finish"},
		Short:   "Finish the current phase",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				out, err := app.ProtocolCLI.Advance(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", out.From, out.To)
				if out.Unanswered > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d interrupt(s) left unanswered\n", out.Unanswered)
				}
				return nil
			})
		},
	}
}

func newComponentCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "component <field> <value...>",
		Short: "Set a Life Game component (anti_vision, vision, one_year_goal, one_month_project, daily_levers, constraints)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				view, err := app.ProtocolCLI.Component(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
}

func newComponentsCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "components",
		Short: "Show the session's Life Game components",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				view, err := app.ProtocolCLI.Components(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), view)
			})
		},
	}
}

func newEntriesCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "entries",
		Short: "List the session's saved answers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				entries, err := app.ProtocolCLI.Entries(ctx)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no entries")
					return nil
				}
				for _, e := range entries {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%d] %s: %s\n", e.Part, e.QuestionID, e.Response)
				}
				return nil
			})
		},
	}
}

func newHistoryCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List completed sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				sessions, err := app.ProtocolCLI.History(ctx)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no completed sessions")
					return nil
				}
				for _, s := range sessions {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  wake=%s lang=%s completed=%s\n", s.ID, s.StartDate, s.WakeUp, s.Language, s.CompletedAt)
				}
				return nil
			})
		},
	}
}

func newNewRunCmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "new-run",
		Short: "Leave history and prepare a new run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				if err := app.ProtocolCLI.NewRun(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ready for onboarding")
				return nil
			})
		},
	}
}

func newQuestionsCmd(dataPath *string) *cobra.Command {
	var part int
	var typ, lang string
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "List catalog questions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				questions, err := app.ProtocolCLI.Questions(ctx, part, typ, lang)
				if err != nil {
					return err
				}
				for _, q := range questions {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-28s [%d/%s] %s\n", q.ID, q.Part, q.Type, q.Text)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&part, "part", 1, "part 1|2|3")
	cmd.Flags().StringVar(&typ, "type", "main", "question type: main|contemplation|interrupt|synthesis|components")
	cmd.Flags().StringVar(&lang, "lang", "", "language en|ko (defaults to the session's)")
	return cmd
}

func newExportCmd(dataPath *string) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a session to a markdown journal note",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(*dataPath, func(ctx context.Context, app *bootstrap.App) error {
				path, err := app.ProtocolCLI.Export(ctx, sessionID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (defaults to the current session)")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
