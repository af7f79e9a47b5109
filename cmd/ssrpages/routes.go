package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func routesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the application's routes",
		Long: `List every page with its route in declaration order. Pages without a
route config get a route derived from their page id. The error page has
no route.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(cmd.OutOrStdout(), cmd.ErrOrStderr(), flags)
		},
	}
}

func runRoutes(w, errw io.Writer, flags *globalFlags) error {
	p, err := loadProject(flags)
	if err != nil {
		return err
	}
	m, err := p.matcher(newLogger(errw, flags.verbose))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tTYPE\tROUTE")
	for _, r := range m.Routes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.PageID, r.Type, r)
	}
	if errPage, ok := p.store.Snapshot().ErrorPage(); ok {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", errPage.PageID, "error", "-")
	}
	return tw.Flush()
}
