package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/vango-dev/ssrpages/internal/config"
	"github.com/vango-dev/ssrpages/internal/errors"
	"github.com/vango-dev/ssrpages/pkg/assets"
	"github.com/vango-dev/ssrpages/pkg/pageconfig"
	"github.com/vango-dev/ssrpages/pkg/virtualmodule"
)

func assetsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Inspect built client assets",
	}
	cmd.AddCommand(assetsCheckCmd(flags))
	return cmd
}

func assetsCheckCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify every page's client chunk is deployed",
		Long: `Resolve each page's client module through the build manifest and fetch
it from the deployment: the S3 bucket in build.s3 when one is set,
otherwise build.assetsURL. Missing chunks are what makes running
clients fall back to full page reloads.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssetsCheck(cmd.Context(), cmd.OutOrStdout(), flags)
		},
	}
}

func runAssetsCheck(ctx context.Context, w io.Writer, flags *globalFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := loadProject(flags)
	if err != nil {
		return err
	}
	if p.cfg.Build.Manifest == "" {
		return errors.New("E281").WithDetail("build.manifest is not set in " + config.ConfigFileName)
	}
	manifest, err := assets.Load(p.cfg.ManifestPath())
	if err != nil {
		return err
	}
	fetcher, where, err := assetFetcher(p.cfg)
	if err != nil {
		return err
	}
	resolver := assets.NewResolver(manifest, p.cfg.Build.AssetsPrefix)

	info(w, "Checking %d pages against %s", len(p.store.Snapshot().Pages()), where)
	missing, failed := checkAssets(ctx, w, p.store.Snapshot(), resolver, fetcher)
	if missing+failed > 0 {
		return errors.New("E260").WithDetailf("%d missing, %d unreadable", missing, failed)
	}
	success(w, "All client chunks are deployed")
	return nil
}

// assetFetcher picks the deployment the assets are read from.
func assetFetcher(cfg *config.Config) (assets.Fetcher, string, error) {
	if s3cfg := cfg.Build.S3; s3cfg.Bucket != "" {
		client := assets.NewS3Client(s3cfg.Region)
		return assets.NewS3Fetcher(client, s3cfg.Bucket, s3cfg.Prefix), fmt.Sprintf("s3://%s/%s", s3cfg.Bucket, s3cfg.Prefix), nil
	}
	if cfg.Build.AssetsURL != "" {
		return assets.NewHTTPFetcher(cfg.Build.AssetsURL), cfg.Build.AssetsURL, nil
	}
	return nil, "", errors.New("E281").
		WithDetail("no asset deployment configured").
		WithSuggestion("Set build.s3.bucket or build.assetsURL")
}

func checkAssets(ctx context.Context, w io.Writer, snap *pageconfig.Snapshot, resolver assets.Resolver, fetcher assets.Fetcher) (missing, failed int) {
	pages := snap.Pages()
	ids := make([]string, 0, len(pages))
	for _, page := range pages {
		ids = append(ids, page.PageID)
	}
	sort.Strings(ids)

	for _, pageID := range ids {
		id := virtualmodule.NewID(pageID, pageconfig.SideClient)
		path, ok := resolver.Asset(id.String())
		if !ok {
			warn(w, "%s: not in the build manifest", pageID)
			missing++
			continue
		}
		if _, err := fetcher.Fetch(ctx, path); err != nil {
			if assets.IsErrorFetchingStaticAssets(err) {
				warn(w, "%s: %s is missing", pageID, path)
				missing++
			} else {
				warn(w, "%s: %s: %v", pageID, path, err)
				failed++
			}
			continue
		}
		info(w, "%s: %s", pageID, path)
	}
	return missing, failed
}
