// Package lodging ingests lodging properties from a partner listing feed.
// Unlike provider discovery the feed is paginated JSON with explicit page
// numbers plus a per-item detail endpoint, and properties without a website
// are rejected outright.
package lodging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pittman021/golf-directory-sub000/internal/classify"
	"github.com/pittman021/golf-directory-sub000/internal/config"
	"github.com/pittman021/golf-directory-sub000/internal/model"
	"github.com/pittman021/golf-directory-sub000/internal/region"
	"github.com/pittman021/golf-directory-sub000/internal/resilience"
	"github.com/pittman021/golf-directory-sub000/internal/store"
	"github.com/pittman021/golf-directory-sub000/pkg/places"
)

// Crawler pulls lodging listings page by page and upserts the survivors.
type Crawler struct {
	http     *http.Client
	baseURL  string
	limiter  *rate.Limiter
	store    store.Store
	verifier *region.Verifier
	maxPages int
}

// New wires a crawler from config.
func New(st store.Store, pl places.Client, cfg config.LodgingConfig) *Crawler {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 1
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}
	return &Crawler{
		http:     &http.Client{Timeout: 20 * time.Second},
		baseURL:  cfg.BaseURL,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		store:    st,
		verifier: region.NewVerifier(pl),
		maxPages: maxPages,
	}
}

type listingPage struct {
	Items    []listingItem `json:"items"`
	NextPage int           `json:"next_page"`
}

type listingItem struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Website string  `json:"website"`
	Phone   string  `json:"phone"`
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Photo   string  `json:"photo"`
}

// listingDetail is the per-item detail record. Listing rows carry only the
// summary fields; description and the authoritative contact data live here.
type listingDetail struct {
	Description string  `json:"description"`
	Phone       string  `json:"phone"`
	Address     string  `json:"address"`
	Photo       string  `json:"photo"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Crawl ingests the feed for one region. The region must already be seeded.
func (c *Crawler) Crawl(ctx context.Context, regionName string) (*model.RunSummary, error) {
	summary := &model.RunSummary{
		RunID:  uuid.NewString(),
		Area:   "listing feed",
		Region: regionName,
	}

	reg, err := c.store.RegionByName(ctx, regionName)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			zap.L().Error("region not seeded",
				zap.String("region", regionName),
				zap.String("reason", model.ReasonMissingRegion))
			return summary, eris.Wrapf(err, "lodging: region %s is not seeded, run regions seed first", regionName)
		}
		return summary, err
	}

	log := zap.L().With(
		zap.String("run_id", summary.RunID),
		zap.String("region", regionName))

	page := 1
	for fetched := 0; fetched < c.maxPages; fetched++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return summary, err
		}

		listing, err := c.fetchPage(ctx, regionName, page)
		if err != nil {
			return summary, err
		}
		log.Debug("listing page fetched",
			zap.Int("page", page),
			zap.Int("items", len(listing.Items)))

		for _, item := range listing.Items {
			if err := c.handleItem(ctx, item, reg, summary, log); err != nil {
				return summary, err
			}
		}

		if listing.NextPage <= page {
			break
		}
		page = listing.NextPage
	}

	log.Info("lodging crawl finished",
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("rejected", summary.Rejected))
	return summary, nil
}

func (c *Crawler) fetchPage(ctx context.Context, regionName string, page int) (*listingPage, error) {
	return resilience.DoVal(ctx, resilience.RetryConfig{
		OnRetry: resilience.RetryLogger("lodging", "fetch_page"),
	}, func(ctx context.Context) (*listingPage, error) {
		endpoint, err := url.Parse(c.baseURL + "/listings")
		if err != nil {
			return nil, eris.Wrap(err, "lodging: parse base url")
		}
		q := endpoint.Query()
		q.Set("region", regionName)
		q.Set("page", strconv.Itoa(page))
		endpoint.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, eris.Wrap(err, "lodging: build request")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "lodging: fetch page"), 0)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			wrapped := eris.Errorf("lodging: fetch page %d: status %d", page, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(wrapped, resp.StatusCode)
			}
			return nil, wrapped
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return nil, eris.Wrap(err, "lodging: read page")
		}
		var listing listingPage
		if err := json.Unmarshal(body, &listing); err != nil {
			return nil, eris.Wrap(err, "lodging: decode page")
		}
		return &listing, nil
	})
}

// hydrate fetches the item's detail record and fills candidate fields the
// listing row left empty. A failed fetch leaves the listing data in place;
// detail is a quality upgrade, not a requirement.
func (c *Crawler) hydrate(ctx context.Context, id string, candidate *model.Candidate, log *zap.Logger) *listingDetail {
	if id == "" {
		return nil
	}
	detail, err := c.fetchDetail(ctx, id)
	if err != nil {
		log.Warn("detail fetch failed",
			zap.String("listing_id", id), zap.Error(err))
		return nil
	}
	if candidate.Phone == "" {
		candidate.Phone = detail.Phone
	}
	if candidate.FormattedAddress == "" {
		candidate.FormattedAddress = detail.Address
	}
	if candidate.Lat == 0 && candidate.Lng == 0 {
		candidate.Lat, candidate.Lng = detail.Lat, detail.Lng
	}
	return detail
}

func (c *Crawler) fetchDetail(ctx context.Context, id string) (*listingDetail, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return resilience.DoVal(ctx, resilience.RetryConfig{
		OnRetry: resilience.RetryLogger("lodging", "fetch_detail"),
	}, func(ctx context.Context) (*listingDetail, error) {
		endpoint := c.baseURL + "/listings/" + url.PathEscape(id)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, eris.Wrap(err, "lodging: build detail request")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "lodging: fetch detail"), 0)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			wrapped := eris.Errorf("lodging: fetch detail %s: status %d", id, resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(wrapped, resp.StatusCode)
			}
			return nil, wrapped
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, eris.Wrap(err, "lodging: read detail")
		}
		var detail listingDetail
		if err := json.Unmarshal(body, &detail); err != nil {
			return nil, eris.Wrap(err, "lodging: decode detail")
		}
		return &detail, nil
	})
}

func (c *Crawler) handleItem(ctx context.Context, item listingItem, reg model.Region, summary *model.RunSummary, log *zap.Logger) error {
	candidate := model.Candidate{
		PlaceID:          "",
		Name:             item.Name,
		Lat:              item.Lat,
		Lng:              item.Lng,
		FormattedAddress: item.Address,
		Website:          item.Website,
		Phone:            item.Phone,
	}

	if item.Name == "" || (item.Lat == 0 && item.Lng == 0) {
		summary.Reject(candidate, model.ReasonMalformed, "missing name or coordinates")
		return nil
	}
	if item.Website == "" {
		summary.Reject(candidate, model.ReasonNoWebsite, "listing has no website")
		return nil
	}
	if !classify.IsLodging(candidate) {
		summary.Reject(candidate, model.ReasonInvalidEntity, "not a lodging property")
		return nil
	}

	detail := c.hydrate(ctx, item.ID, &candidate, log)
	description, photo := "", item.Photo
	if detail != nil {
		description = detail.Description
		if detail.Photo != "" {
			photo = detail.Photo
		}
	}

	res, ok, reason, err := c.verifier.Verify(ctx, candidate, reg.Name)
	if err != nil {
		return err
	}
	if !ok {
		detail := "region could not be determined"
		if res.Name != "" {
			detail = fmt.Sprintf("resolved to %s", res.Name)
		}
		summary.Reject(candidate, reason, detail)
		return nil
	}

	poi := &model.PointOfInterest{
		Kind:        model.KindLodging,
		Name:        candidate.Name,
		NameKey:     model.NormalizeName(candidate.Name),
		Lat:         candidate.Lat,
		Lng:         candidate.Lng,
		RegionID:    reg.ID,
		RegionName:  reg.Name,
		Subtype:     classify.LodgingSubtype(candidate),
		Phone:       candidate.Phone,
		Website:     candidate.Website,
		Address:     candidate.FormattedAddress,
		Description: description,
		PhotoURL:    photo,
	}
	if err := poi.Validate(); err != nil {
		summary.Reject(candidate, model.ReasonValidation, err.Error())
		return nil
	}

	upsert, err := c.store.Upsert(ctx, poi)
	if err != nil {
		summary.Failed++
		log.Error("upsert failed", zap.String("name", item.Name), zap.Error(err))
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
