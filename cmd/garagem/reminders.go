package main

import (
	"context"
	"fmt"
	"time"

	"garagem/internal/app"

	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04:05"

// reminders command
var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Inspect and run email reminders",
}

var remindersCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate reminders now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("CheckReminders", func(ctx context.Context, a *app.GarageApp) error {
			r := a.CheckReminders(ctx)
			if r.Skipped != "" {
				fmt.Printf("Skipped: %s\n", r.Skipped)
				return nil
			}
			fmt.Printf("Evaluated %d, sent %d, failed %d\n", r.Evaluated, r.Sent, r.Failed)
			if r.Err != nil {
				return r.Err
			}
			return nil
		})
	},
}

var remindersStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show reminder configuration and the last check",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("ReminderStatus", func(ctx context.Context, a *app.GarageApp) error {
			st, err := a.ReminderStatus(ctx)
			if err != nil {
				return err
			}
			user := "(nobody)"
			if st.User != nil {
				user = st.User.Email
			}
			fmt.Printf("Email:          %s (configured: %t)\n", st.EmailType, st.EmailConfigured)
			fmt.Printf("Secrets:        ready: %t\n", st.SecretsReady)
			fmt.Printf("User:           %s\n", user)
			fmt.Printf("Check interval: %s\n", st.CheckInterval)
			fmt.Printf("Timezone:       %s\n", st.Timezone)
			fmt.Printf("Ledger entries: %d\n", st.LedgerEntries)
			if st.LastRun != nil {
				fmt.Printf("Last check:     %s  %s  sent %d\n",
					st.LastRun.StartedAt.Format(timeLayout), st.LastRun.Status, st.LastRun.Sent)
			}
			return nil
		})
	},
}

var remindersResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget sent reminders so they can go out again",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("ResetReminders", func(ctx context.Context, a *app.GarageApp) error {
			if err := a.ResetReminders(); err != nil {
				return err
			}
			fmt.Println("Reminder ledger cleared.")
			return nil
		})
	},
}

var remindersTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a sample reminder to yourself",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("TestReminder", func(ctx context.Context, a *app.GarageApp) error {
			if err := a.SendTestReminder(ctx); err != nil {
				return err
			}
			fmt.Println("Test reminder sent.")
			return nil
		})
	},
}

var remindersHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "View past reminder checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return run("ReminderHistory", func(ctx context.Context, a *app.GarageApp) error {
			runs, err := a.ReminderHistory(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("No reminder checks recorded.")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%s  %-8s  %-8s  evaluated %d  sent %d  failed %d  %s\n",
					r.StartedAt.Format(timeLayout),
					r.Trigger,
					r.Status,
					r.Evaluated,
					r.Sent,
					r.Failed,
					r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond),
				)
			}
			return nil
		})
	},
}

func init() {
	remindersCmd.AddCommand(remindersCheckCmd)
	remindersCmd.AddCommand(remindersStatusCmd)
	remindersCmd.AddCommand(remindersResetCmd)
	remindersCmd.AddCommand(remindersTestCmd)
	remindersCmd.AddCommand(remindersHistoryCmd)
	remindersHistoryCmd.Flags().IntP("limit", "n", 20, "Maximum number of checks to show")
}
