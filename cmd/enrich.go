package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/pittman021/golf-directory-sub000/internal/enrich"
	"github.com/pittman021/golf-directory-sub000/internal/model"
	"github.com/pittman021/golf-directory-sub000/pkg/anthropic"
	"github.com/pittman021/golf-directory-sub000/pkg/cloudinary"
)

var (
	enrichKind  string
	enrichLimit int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fill pending entities with generated descriptions and hosted photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind := model.Kind(enrichKind)
		if kind != model.KindCourse && kind != model.KindLodging {
			return eris.Errorf("unknown kind %q", enrichKind)
		}
		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic key is not configured")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		llm := anthropic.NewClient(cfg.Anthropic.Key)

		var images cloudinary.Client
		if cfg.Cloudinary.CloudName != "" {
			images = cloudinary.NewClient(cfg.Cloudinary.CloudName, cfg.Cloudinary.UploadPreset)
		}

		engine := enrich.New(st, llm, images, cfg.Anthropic.Model, cfg.Enrich)
		report, runErr := engine.Run(ctx, kind, enrichLimit)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return eris.Wrap(err, "encode report")
		}
		return runErr
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichKind, "kind", string(model.KindCourse), "entity kind to enrich (course or lodging)")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 25, "maximum entities to claim")
	rootCmd.AddCommand(enrichCmd)
}
