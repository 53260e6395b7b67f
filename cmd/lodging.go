package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pittman021/golf-directory-sub000/internal/lodging"
	"github.com/pittman021/golf-directory-sub000/pkg/places"
)

var lodgingRegion string

var lodgingCmd = &cobra.Command{
	Use:   "lodging",
	Short: "Ingest lodging from the partner listing feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if lodgingRegion == "" {
			return eris.New("--region is required")
		}
		if places.RegionCodeForName(lodgingRegion) == "" {
			return eris.Errorf("unknown region %q", lodgingRegion)
		}
		if cfg.Lodging.BaseURL == "" {
			return eris.New("lodging feed base URL is not configured")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		placesClient := places.NewClient(cfg.Google.ActiveKey())

		crawler := lodging.New(st, placesClient, cfg.Lodging)
		summary, runErr := crawler.Crawl(ctx, lodgingRegion)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return eris.Wrap(err, "encode summary")
		}
		return runErr
	},
}

func init() {
	lodgingCmd.Flags().StringVar(&lodgingRegion, "region", "", "region (US state) the listings belong to")
	rootCmd.AddCommand(lodgingCmd)
}
