package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssrpages/pkg/router"
)

func matchCmd(flags *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "match <url>",
		Short: "Show which page a URL resolves to",
		Long: `Match a URL against the application's routes and print the winning
page with its route parameters. With --all every matching candidate is
listed, best first.

Examples:
  ssrpages match /blog/hello
  ssrpages match --all "/docs/a/b?lang=en"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), flags, args[0], all)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "List every matching route")

	return cmd
}

func runMatch(ctx context.Context, w, errw io.Writer, flags *globalFlags, url string, all bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := loadProject(flags)
	if err != nil {
		return err
	}
	m, err := p.matcher(newLogger(errw, flags.verbose))
	if err != nil {
		return err
	}

	var matches []router.Match
	if all {
		matches, err = m.MatchAll(ctx, url)
	} else {
		var best *router.Match
		best, err = m.Match(ctx, url)
		if best != nil {
			matches = []router.Match{*best}
		}
	}
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		if errPage, ok := p.store.Snapshot().ErrorPage(); ok {
			warn(w, "no page matches %s; the error page %s renders it (404)", url, errPage.PageID)
		} else {
			warn(w, "no page matches %s", url)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tTYPE\tROUTE\tPRIORITY\tPARAMS")
	for _, match := range matches {
		route := match.RouteString
		if route == "" {
			route = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", match.PageID, match.RouteType, route, match.Priority, formatParams(match.RouteParams))
	}
	return tw.Flush()
}

func formatParams(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, params[k])
	}
	return strings.Join(parts, " ")
}
