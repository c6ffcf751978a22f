package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/carloom-cli/internal/store"
)

var (
	queryList  bool
	queryInput inputFlags
)

var queryCmd = &cobra.Command{
	Use:   "query [source] <name|SQL>",
	Short: "Run a named or ad hoc read-only SQL query over cars, car_specs and pricing",
	Long: `Run the pipeline, load its tables into an in-memory SQLite database and run either a
named query (see --list) or a single SELECT statement. Tables: cars, car_specs, pricing.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if queryList {
			return nil
		}
		if len(args) < 1 || len(args) > 2 {
			return errors.New("expected [source] <name|SQL>")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if queryList {
			tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
			for _, q := range store.Catalog {
				fmt.Fprintf(tw, "%s\t%s\n", q.Name, q.Description)
			}
			return tw.Flush()
		}

		var srcArgs []string
		q := args[len(args)-1]
		if len(args) == 2 {
			srcArgs = args[:1]
		}
		source, err := resolveSource(srcArgs)
		if err != nil {
			return err
		}
		p, err := queryInput.policy(cmd)
		if err != nil {
			return err
		}
		res, err := loadAndRun(cmd.Context(), source, &queryInput, p)
		if err != nil {
			return err
		}

		db, err := store.Open(cmd.Context(), res, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		var rows *store.Rows
		if _, ok := store.Lookup(q); ok {
			rows, err = db.Named(cmd.Context(), q)
		} else {
			rows, err = db.Query(cmd.Context(), q)
		}
		if err != nil {
			return err
		}
		fmt.Fprint(out, rows.Table())
		fmt.Fprintf(out, "(%d rows)\n", len(rows.Values))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&queryList, "list", false, "list named queries")
	queryInput.register(queryCmd)
}
