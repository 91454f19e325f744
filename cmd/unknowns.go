package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/gatewatch/internal/constants"
)

var unknownsCmd = &cobra.Command{
	Use:   "unknowns",
	Short: "Inspect the register of unknown people",
}

var unknownsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unknown sightings, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runUnknownsList,
}

var unknownsDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Remove unknown sightings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runUnknownsDelete,
}

func init() {
	rootCmd.AddCommand(unknownsCmd)
	unknownsCmd.AddCommand(unknownsListCmd)
	unknownsCmd.AddCommand(unknownsDeleteCmd)

	unknownsListCmd.Flags().Int("limit", constants.DefaultSightingLimit, "Maximum number of sightings")
}

func runUnknownsList(cmd *cobra.Command, args []string) error {
	client, err := newBackendClient(loadConfig(cmd))
	if err != nil {
		return err
	}

	list, err := client.ListUnknowns(context.Background(), mustGetInt(cmd, "limit"))
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No unknown sightings.")
		return nil
	}

	fmt.Printf("%-36s  %-14s  %5s  %-16s  %-16s  %s\n", "ID", "NAME", "SEEN", "FIRST", "LAST", "CONF")
	for _, s := range list {
		fmt.Printf("%-36s  %-14s  %5d  %-16s  %-16s  %.0f%%\n",
			s.ID, s.DisplayName, s.Detections,
			s.FirstSeen.Local().Format("2006-01-02 15:04"),
			s.LastSeen.Local().Format("2006-01-02 15:04"),
			s.Confidence)
	}
	return nil
}

func runUnknownsDelete(cmd *cobra.Command, args []string) error {
	client, err := newBackendClient(loadConfig(cmd))
	if err != nil {
		return err
	}

	ctx := context.Background()
	for _, id := range args {
		if err := client.DeleteUnknown(ctx, id); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", id)
	}
	return nil
}
