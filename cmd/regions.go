package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pittman021/golf-directory-sub000/pkg/places"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Manage regions",
}

var regionsSeedCmd = &cobra.Command{
	Use:   "seed [state name...]",
	Short: "Create regions for the given states, or all states when none are named",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		names := args
		if len(names) == 0 {
			names = places.AllRegionNames()
		}

		for _, name := range names {
			code := places.RegionCodeForName(name)
			if code == "" {
				return eris.Errorf("unknown region %q", name)
			}
			if _, err := st.EnsureRegion(ctx, places.RegionNameForCode(code), code); err != nil {
				return err
			}
		}
		zap.L().Info("regions seeded", zap.Int("count", len(names)))
		return nil
	},
}

var regionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		regions, err := st.ListRegions(ctx)
		if err != nil {
			return err
		}
		for _, r := range regions {
			fmt.Printf("%-4d %-4s %s\n", r.ID, r.Code, r.Name)
		}
		return nil
	},
}

func init() {
	regionsCmd.AddCommand(regionsSeedCmd)
	regionsCmd.AddCommand(regionsListCmd)
	rootCmd.AddCommand(regionsCmd)
}
