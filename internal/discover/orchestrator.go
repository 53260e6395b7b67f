// Package discover runs provider searches over a geographic area, verifies
// and classifies the results, and upserts the survivors.
package discover

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/pittman021/golf-directory-sub000/internal/classify"
	"github.com/pittman021/golf-directory-sub000/internal/config"
	"github.com/pittman021/golf-directory-sub000/internal/model"
	"github.com/pittman021/golf-directory-sub000/internal/region"
	"github.com/pittman021/golf-directory-sub000/internal/resilience"
	"github.com/pittman021/golf-directory-sub000/internal/store"
	"github.com/pittman021/golf-directory-sub000/pkg/places"
)

// Orchestrator drives discovery runs.
type Orchestrator struct {
	places   places.Client
	store    store.Store
	verifier *region.Verifier
	cfg      config.DiscoverConfig

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New wires an orchestrator.
func New(pl places.Client, st store.Store, cfg config.DiscoverConfig) *Orchestrator {
	return &Orchestrator{
		places:   pl,
		store:    st,
		verifier: region.NewVerifier(pl),
		cfg:      cfg,
		sleep:    resilience.Sleep,
	}
}

// Discover executes the strategies over the area's search points. Quota
// exhaustion aborts the whole run; a denied or invalid request aborts only
// the strategy that triggered it. Once enough new entities exist after a
// completed strategy, the remaining strategies are skipped. The target
// region must already be seeded.
func (o *Orchestrator) Discover(ctx context.Context, area Area, strategies []Strategy) (*model.RunSummary, error) {
	summary := &model.RunSummary{
		RunID:  uuid.NewString(),
		Area:   area.Label,
		Region: area.Region,
	}

	reg, err := o.store.RegionByName(ctx, area.Region)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			zap.L().Error("region not seeded",
				zap.String("region", area.Region),
				zap.String("reason", model.ReasonMissingRegion))
			return summary, eris.Wrapf(err, "discover: region %s is not seeded, run regions seed first", area.Region)
		}
		return summary, err
	}

	seen := make(map[model.DedupKey]bool)
	points := SearchPoints(area)
	bounds := Bounds(area)

	log := zap.L().With(
		zap.String("run_id", summary.RunID),
		zap.String("area", area.Label),
		zap.String("region", area.Region))
	log.Info("discovery run starting",
		zap.Int("strategies", len(strategies)),
		zap.Int("search_points", len(points)),
		zap.Float64s("bounds", []float64{bounds.Min(0), bounds.Min(1), bounds.Max(0), bounds.Max(1)}))

	for _, strat := range strategies {
		createdBefore := summary.Created
		if err := o.runStrategy(ctx, strat, points, reg, seen, summary, log); err != nil {
			if perr, ok := places.AsProviderError(err); ok {
				switch perr.Code {
				case places.CodeQuota:
					log.Error("quota exhausted, aborting run", zap.Error(err))
					return summary, err
				case places.CodeDenied, places.CodeInvalid:
					log.Warn("strategy aborted",
						zap.String("strategy", strat.Name), zap.Error(err))
					continue
				}
			}
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			log.Warn("strategy failed",
				zap.String("strategy", strat.Name), zap.Error(err))
			continue
		}

		newResults := summary.Created - createdBefore
		log.Info("strategy complete",
			zap.String("strategy", strat.Name),
			zap.Int("new", newResults))
		if o.cfg.MinNewResults > 0 && summary.Created >= o.cfg.MinNewResults {
			log.Info("enough new results, skipping remaining strategies",
				zap.Int("created", summary.Created),
				zap.Int("target", o.cfg.MinNewResults))
			break
		}
	}

	log.Info("discovery run finished",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("rejected", summary.Rejected),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (o *Orchestrator) runStrategy(ctx context.Context, strat Strategy, points []geom.Coord, reg model.Region, seen map[model.DedupKey]bool, summary *model.RunSummary, log *zap.Logger) error {
	for _, pt := range points {
		if err := o.searchPoint(ctx, strat, pt, reg, seen, summary, log); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) searchPoint(ctx context.Context, strat Strategy, pt geom.Coord, reg model.Region, seen map[model.DedupKey]bool, summary *model.RunSummary, log *zap.Logger) error {
	req := places.NearbySearchRequest{
		Lat:          pt[1],
		Lng:          pt[0],
		RadiusMeters: o.cfg.RadiusMeters,
		Keyword:      strat.Keyword,
		Type:         strat.Type,
	}

	for page := 0; page < o.cfg.MaxPages; page++ {
		resp, err := o.searchPage(ctx, req)
		if err != nil {
			return err
		}

		for _, result := range resp.Results {
			if err := o.handleResult(ctx, strat, result, reg, seen, summary, log); err != nil {
				return err
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		req.PageToken = resp.NextPageToken

		// Continuation tokens need a warm-up before they are valid.
		if err := o.sleep(ctx, time.Duration(o.cfg.PageDelayMs)*time.Millisecond); err != nil {
			return err
		}
	}

	return o.sleep(ctx, time.Duration(o.cfg.RequestDelayMs)*time.Millisecond)
}

func (o *Orchestrator) searchPage(ctx context.Context, req places.NearbySearchRequest) (*places.NearbySearchResponse, error) {
	return resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts: o.cfg.TransientRetries,
		OnRetry:     resilience.RetryLogger("places", "nearby_search"),
	}, func(ctx context.Context) (*places.NearbySearchResponse, error) {
		return o.places.NearbySearch(ctx, req)
	})
}

func (o *Orchestrator) handleResult(ctx context.Context, strat Strategy, result places.Result, reg model.Region, seen map[model.DedupKey]bool, summary *model.RunSummary, log *zap.Logger) error {
	c := candidateFrom(result)

	if c.Name == "" || (c.Lat == 0 && c.Lng == 0) {
		summary.Reject(c, model.ReasonMalformed, "missing name or coordinates")
		return nil
	}

	key := model.KeyFor(c)
	if seen[key] {
		return nil
	}
	seen[key] = true

	if strat.Kind == model.KindCourse && !classify.IsCourse(c) {
		summary.Reject(c, model.ReasonInvalidEntity, "not a playable course")
		return nil
	}
	if strat.Kind == model.KindLodging && !classify.IsLodging(c) {
		summary.Reject(c, model.ReasonInvalidEntity, "not a lodging property")
		return nil
	}

	res, ok, reason, err := o.verifier.Verify(ctx, c, reg.Name)
	if err != nil {
		return err
	}
	if !ok {
		detail := "region could not be determined"
		if res.Name != "" {
			detail = fmt.Sprintf("resolved to %s", res.Name)
		}
		summary.Reject(c, reason, detail)
		log.Debug("candidate rejected",
			zap.String("name", c.Name),
			zap.String("reason", reason),
			zap.String("detail", detail))
		return nil
	}

	o.hydrate(ctx, &c)

	poi := o.buildPOI(strat.Kind, c, reg)
	if err := poi.Validate(); err != nil {
		summary.Reject(c, model.ReasonValidation, err.Error())
		return nil
	}

	upsert, err := o.store.Upsert(ctx, poi)
	if err != nil {
		summary.Failed++
		log.Error("upsert failed", zap.String("name", c.Name), zap.Error(err))
		return nil
	}
	switch upsert.Outcome {
	case store.OutcomeCreated:
		summary.Created++
	case store.OutcomeUpdated:
		summary.Updated++
	}
	return nil
}

// hydrate pulls contact fields from the details endpoint. Failures leave the
// candidate as-is; contact data is an enrichment concern too.
func (o *Orchestrator) hydrate(ctx context.Context, c *model.Candidate) {
	if c.PlaceID == "" {
		return
	}
	detail, err := o.places.Details(ctx, c.PlaceID,
		[]string{"formatted_address", "formatted_phone_number", "website"})
	if err != nil {
		zap.L().Debug("details lookup failed",
			zap.String("place_id", c.PlaceID), zap.Error(err))
		return
	}
	if c.FormattedAddress == "" {
		c.FormattedAddress = detail.FormattedAddress
	}
	if c.Phone == "" {
		c.Phone = detail.FormattedPhone
	}
	if c.Website == "" {
		c.Website = detail.Website
	}
}

func (o *Orchestrator) buildPOI(kind model.Kind, c model.Candidate, reg model.Region) *model.PointOfInterest {
	poi := &model.PointOfInterest{
		Kind:       kind,
		PlaceID:    c.PlaceID,
		Name:       c.Name,
		NameKey:    model.NormalizeName(c.Name),
		Lat:        c.Lat,
		Lng:        c.Lng,
		RegionID:   reg.ID,
		RegionName: reg.Name,
		Phone:      c.Phone,
		Website:    c.Website,
		Address:    firstNonEmpty(c.FormattedAddress, c.Vicinity),
		Rating:     places.NormalizeRating(c.Rating),
		PriceLevel: places.NormalizePriceLevel(c.PriceLevel),
	}
	if len(c.PhotoRefs) > 0 {
		poi.PhotoURL = o.places.PhotoURL(c.PhotoRefs[0], 1200)
	}

	if kind == model.KindCourse {
		poi.Subtype = classify.CourseSubtype(c)
		d := classify.DefaultsFor(poi.Subtype)
		poi.Holes = model.IntPtr(d.Holes)
		poi.Par = model.IntPtr(d.Par)
		poi.LengthYards = model.IntPtr(d.LengthYards)
	} else {
		poi.Subtype = classify.LodgingSubtype(c)
	}
	return poi
}

func candidateFrom(r places.Result) model.Candidate {
	c := model.Candidate{
		PlaceID:    r.PlaceID,
		Name:       r.Name,
		Lat:        r.Geometry.Location.Lat,
		Lng:        r.Geometry.Location.Lng,
		Types:      r.Types,
		Vicinity:   r.Vicinity,
		Rating:     r.Rating,
		PriceLevel: r.PriceLevel,
	}
	for _, p := range r.Photos {
		c.PhotoRefs = append(c.PhotoRefs, p.Reference)
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
