package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/krisalay/resilient-client/types"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect or replay the offline write queue",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued writes in replay order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, _, err := openOffline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		pending := c.Pending()
		if len(pending) == 0 {
			cmd.Println("Offline queue is empty.")
			return nil
		}
		printQueue(cmd.OutOrStdout(), pending)
		return nil
	},
}

var queueReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Deliver queued writes now, oldest first",
	Long: `Replay sends queued writes to the configured backend in the order they
were made, stopping at the first failure. Writes that fail stay queued.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, src, err := openOffline(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		before := len(c.Pending())
		if before == 0 {
			cmd.Println("Offline queue is empty.")
			return nil
		}

		// the reconnect edge runs one pass; Replay waits for it and retries
		src.Set(true)
		res := c.Replay(cmd.Context())

		cmd.Printf("Delivered %d, %d still queued.\n", before-res.Remaining, res.Remaining)
		if res.Err != nil {
			return fmt.Errorf("replay stopped: %w", res.Err)
		}
		return nil
	},
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueReplayCmd)
}

func printQueue(w io.Writer, pending []types.QueuedAction) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "ID", "Type", "Method", "Endpoint", "Queued At"})

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for i, a := range pending {
		table.Append([]string{
			strconv.Itoa(i + 1),
			a.ID,
			a.Type,
			a.Method,
			a.Endpoint,
			a.EnqueuedAt.Local().Format(time.DateTime),
		})
	}
	table.Render()
}
