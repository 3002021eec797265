package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/V1nSky/key-bot/services/api/internal/keygen"
)

func newKeysCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the key inventory",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <value>...",
		Short: "Add keys to the inventory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(cmd, func(svc services) error {
				for _, value := range args {
					key, err := svc.inventory.AddKey(cmd.Context(), value)
					if err != nil {
						fmt.Printf("%s %s: %v\n", warnFmt("skipped"), value, err)
						continue
					}
					fmt.Printf("%s #%d %s\n", okFmt("added"), key.ID, key.Value)
				}
				return nil
			})
		},
	})

	var format string
	generate := &cobra.Command{
		Use:   "generate <count>",
		Short: "Generate random keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("count must be a number: %w", err)
			}
			gen, err := keygen.Lookup(format)
			if err != nil {
				return err
			}
			return c.withServices(cmd, func(svc services) error {
				added, err := svc.inventory.GenerateKeys(cmd.Context(), count, gen)
				if err != nil {
					return err
				}
				fmt.Printf("%s %d of %d keys\n", okFmt("generated"), added, count)
				return nil
			})
		},
	}
	generate.Flags().StringVar(&format, "format", "pattern", "key format: pattern, readable, uuid or uuid-short")
	cmd.AddCommand(generate)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every key, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withServices(cmd, func(svc services) error {
				keys, err := svc.inventory.ListKeys(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tVALUE\tSTATUS\tADDED")
				for _, k := range keys {
					status := okFmt("available")
					if k.Used {
						status = dimFmt("used")
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", k.ID, k.Value, status, k.CreatedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "next",
		Short: "Show the key the next confirmation would issue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withServices(cmd, func(svc services) error {
				key, err := svc.inventory.NextAvailableKey(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("#%d %s\n", key.ID, key.Value)
				return nil
			})
		},
	})

	return cmd
}

// withServices opens the store, runs fn and closes the store again.
func (c *cli) withServices(cmd *cobra.Command, fn func(services) error) error {
	st, err := openStore(cmd.Context(), c.cfg, true)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(c.newServices(st, nil))
}
