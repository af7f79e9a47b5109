package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

func genCmd(flags *globalFlags) *cobra.Command {
	var production bool

	cmd := &cobra.Command{
		Use:   "gen <virtual-id>",
		Short: "Print the source of a page code module",
		Long: `Print the source of the page code module a virtual id names.

Ids have the form virtual:ssrpages:pageCode:<client|server>:<pageId>,
optionally followed by ?extractAssets&lang.js for the asset discovery
variant.

Examples:
  ssrpages gen virtual:ssrpages:pageCode:client:/pages/index
  ssrpages gen --production virtual:ssrpages:pageCode:client:/pages/blog`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(cmd.OutOrStdout(), flags, args[0], production)
		},
	}

	cmd.Flags().BoolVar(&production, "production", false, "Generate production output (default from ssrpages.json)")

	return cmd
}

func runGen(w io.Writer, flags *globalFlags, rawID string, production bool) error {
	id, err := virtualmodule.Parse(rawID)
	if err != nil {
		return err
	}
	p, err := loadProject(flags)
	if err != nil {
		return err
	}

	gen, err := virtualmodule.NewGenerator(p.store, virtualmodule.WithOptions(virtualmodule.Options{
		IncludeAssetsImportedByServer: p.cfg.Build.IncludeAssetsImportedByServer,
		IsDev:                         !(p.cfg.Build.Production || production),
	}))
	if err != nil {
		return err
	}
	src, err := gen.GenerateID(id)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, src)
	return err
}
