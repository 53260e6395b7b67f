package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pittman021/golf-directory-sub000/internal/discover"
	"github.com/pittman021/golf-directory-sub000/internal/model"
	"github.com/pittman021/golf-directory-sub000/pkg/places"
)

var (
	discoverRegion    string
	discoverLabel     string
	discoverLat       float64
	discoverLng       float64
	discoverSatellite float64
	discoverKind      string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Search an area for courses or lodging and store the survivors",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if discoverRegion == "" {
			return eris.New("--region is required")
		}
		if places.RegionCodeForName(discoverRegion) == "" {
			return eris.Errorf("unknown region %q", discoverRegion)
		}

		kind := model.Kind(discoverKind)
		if kind != model.KindCourse && kind != model.KindLodging {
			return eris.Errorf("unknown kind %q", discoverKind)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var opts []places.Option
		if cfg.Google.PhotoKey != "" {
			opts = append(opts, places.WithPhotoKey(cfg.Google.PhotoKey))
		}
		placesClient := places.NewClient(cfg.Google.ActiveKey(), opts...)

		area := discover.Area{
			Label:       discoverLabel,
			Region:      discoverRegion,
			Lat:         discoverLat,
			Lng:         discoverLng,
			SatelliteKM: discoverSatellite,
		}
		if area.Label == "" {
			area.Label = discoverRegion
		}

		orch := discover.New(placesClient, st, cfg.Discover)
		summary, runErr := orch.Discover(ctx, area, discover.StrategiesFor(kind))

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return eris.Wrap(err, "encode summary")
		}
		return runErr
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverRegion, "region", "", "region (US state) the results must belong to")
	discoverCmd.Flags().StringVar(&discoverLabel, "label", "", "area label for the run summary")
	discoverCmd.Flags().Float64Var(&discoverLat, "lat", 0, "search center latitude")
	discoverCmd.Flags().Float64Var(&discoverLng, "lng", 0, "search center longitude")
	discoverCmd.Flags().Float64Var(&discoverSatellite, "satellite-km", 0, "spacing of the satellite search ring in km (0 disables)")
	discoverCmd.Flags().StringVar(&discoverKind, "kind", string(model.KindCourse), "entity kind to discover (course or lodging)")
	rootCmd.AddCommand(discoverCmd)
}
