package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show attendance records",
}

var attendanceSummaryCmd = &cobra.Command{
	Use:   "summary <name-or-id>",
	Short: "Show today's check-ins, check-outs and worked time",
	Args:  cobra.ExactArgs(1),
	RunE:  runAttendanceSummary,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceSummaryCmd)
}

func runAttendanceSummary(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	client, err := newBackendClient(loadConfig(cmd))
	if err != nil {
		return err
	}

	identity, err := resolveIdentity(ctx, client, args[0])
	if err != nil {
		return err
	}
	summary, err := client.DailySummary(ctx, identity.ID)
	if err != nil {
		return err
	}

	status := "out"
	if summary.CurrentlyIn {
		status = "in"
	}
	fmt.Printf("%s on %s: %d entries, %s worked, currently %s\n",
		identity.Name, summary.Date, summary.Entries, formatSeconds(summary.TotalSeconds), status)

	for _, ev := range summary.Events {
		line := fmt.Sprintf("  %s  %-3s", ev.At.Local().Format("15:04:05"), ev.Kind)
		if ev.Kind == "out" {
			line += fmt.Sprintf("  %s  %s", formatSeconds(ev.SessionDuration), ev.BreakLabel)
		}
		fmt.Println(line)
	}
	return nil
}

func formatSeconds(s int64) string {
	return (time.Duration(s) * time.Second).String()
}
