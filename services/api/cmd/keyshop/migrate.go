package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/V1nSky/key-bot/services/api/internal/config"
	"github.com/V1nSky/key-bot/services/api/migrations"
)

func newMigrateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd.Context(), c.cfg, false)
			if err != nil {
				return err
			}
			defer st.Close()

			if st.kind != config.BackendPostgres {
				fmt.Println(dimFmt("sqlite schema is applied when the database is opened"))
				return nil
			}
			applied, err := migrations.Apply(cmd.Context(), st.pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println(dimFmt("database is up to date"))
				return nil
			}
			for _, name := range applied {
				fmt.Printf("%s %s\n", okFmt("applied"), name)
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and when they were applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd.Context(), c.cfg, false)
			if err != nil {
				return err
			}
			defer st.Close()

			if st.kind != config.BackendPostgres {
				fmt.Println(dimFmt("sqlite has no migration history"))
				return nil
			}
			list, err := migrations.Status(cmd.Context(), st.pool)
			if err != nil {
				return err
			}
			for _, m := range list {
				if m.AppliedAt == nil {
					fmt.Printf("%s %s\n", warnFmt("pending"), m.Name)
					continue
				}
				fmt.Printf("%s %s %s\n", okFmt("applied"), m.Name, dimFmt(m.AppliedAt.Format("2006-01-02 15:04:05")))
			}
			return nil
		},
	})
	return cmd
}
