package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd(c *cli) *cobra.Command {
	var activity int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print shop totals and recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withServices(cmd, func(svc services) error {
				stats, err := svc.admin.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Users:          %d\n", stats.TotalUsers)
				fmt.Printf("Sales:          %d\n", stats.TotalSales)
				fmt.Printf("Revenue:        %d\n", stats.TotalRevenue)
				fmt.Printf("Available keys: %s\n", availability(stats.AvailableKeys))
				fmt.Printf("Pending orders: %d\n", stats.PendingOrders)

				if activity <= 0 {
					return nil
				}
				entries, err := svc.admin.RecentActivity(cmd.Context(), activity)
				if err != nil {
					return err
				}
				fmt.Println()
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tUSER\tACTION\tDETAILS")
				for _, a := range entries {
					user := "-"
					if a.UserID != nil {
						user = fmt.Sprint(*a.UserID)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.CreatedAt.Format("2006-01-02 15:04:05"), user, a.Action, dimFmt(a.Details))
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&activity, "activity", 10, "number of recent activity entries to show, 0 to skip")
	return cmd
}

func availability(n int) string {
	if n == 0 {
		return warnFmt("0")
	}
	return okFmt(n)
}
