// Package enrich fills in descriptive and numeric fields on stored entities
// using a text-generation model, then rehosts their photos.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pittman021/golf-directory-sub000/internal/config"
	"github.com/pittman021/golf-directory-sub000/internal/model"
	"github.com/pittman021/golf-directory-sub000/internal/resilience"
	"github.com/pittman021/golf-directory-sub000/internal/store"
	"github.com/pittman021/golf-directory-sub000/pkg/anthropic"
	"github.com/pittman021/golf-directory-sub000/pkg/cloudinary"
)

// ErrExhausted means every attempt at one entity failed; the entity has been
// returned to pending for a later run.
var ErrExhausted = eris.New("enrichment attempts exhausted")

// Sentinels for retryable generation outcomes: another call may yield a
// well-formed payload, so neither is fatal.
var (
	errNoPayload  = eris.New("enrich: no JSON object in response")
	errBadPayload = eris.New("enrich: decode payload")
)

// Report summarizes one enrichment run.
type Report struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Released  int `json:"released"`
	Failed    int `json:"failed"`
}

// Engine drives enrichment over claimed entities.
type Engine struct {
	store  store.Store
	llm    anthropic.Client
	images cloudinary.Client
	model  string
	cfg    config.EnrichConfig

	sleep func(ctx context.Context, d time.Duration) error
}

// New wires an engine. images may be nil to skip photo rehosting.
func New(st store.Store, llm anthropic.Client, images cloudinary.Client, llmModel string, cfg config.EnrichConfig) *Engine {
	return &Engine{
		store:  st,
		llm:    llm,
		images: images,
		model:  llmModel,
		cfg:    cfg,
		sleep:  resilience.Sleep,
	}
}

// Run claims up to limit pending entities of the kind and enriches them.
// Entities that fail every attempt are released back to pending; entities
// whose claim counters already reached the attempt ceiling are not claimed.
func (e *Engine) Run(ctx context.Context, kind model.Kind, limit int) (*Report, error) {
	claimed, err := e.store.ClaimPending(ctx, kind, limit, max(1, e.cfg.MaxAttempts))
	if err != nil {
		return nil, err
	}

	report := &Report{Claimed: len(claimed)}
	if len(claimed) == 0 {
		return report, nil
	}

	zap.L().Info("enrichment run starting",
		zap.String("kind", string(kind)),
		zap.Int("claimed", len(claimed)))

	var (
		completed, released, failed int
		counts                      = make(chan string, len(claimed))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.cfg.Concurrency))
	for _, poi := range claimed {
		poi := poi
		g.Go(func() error {
			err := e.enrichOne(gctx, poi)
			switch {
			case err == nil:
				counts <- "completed"
			case eris.Is(err, ErrExhausted):
				counts <- "released"
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				counts <- "failed"
				zap.L().Error("enrichment failed",
					zap.Int64("id", poi.ID),
					zap.String("name", poi.Name),
					zap.Error(err))
			}
			return nil
		})
	}
	err = g.Wait()
	close(counts)
	for c := range counts {
		switch c {
		case "completed":
			completed++
		case "released":
			released++
		case "failed":
			failed++
		}
	}

	report.Completed = completed
	report.Released = released
	report.Failed = failed

	zap.L().Info("enrichment run finished",
		zap.Int("completed", completed),
		zap.Int("released", released),
		zap.Int("failed", failed))
	return report, err
}

// enrichOne runs the attempt loop for one claimed entity. Retryable failures
// back off with a doubling delay; exhaustion releases the claim.
func (e *Engine) enrichOne(ctx context.Context, poi model.PointOfInterest) error {
	base := time.Duration(e.cfg.BaseDelayMs) * time.Millisecond
	maxAttempts := max(1, e.cfg.MaxAttempts)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, resilience.Backoff(attempt-1, base, 30*time.Second)); err != nil {
				return err
			}
		}

		fields, err := e.attempt(ctx, &poi)
		if err == nil {
			return e.store.CompleteEnrichment(ctx, poi.ID, fields)
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}
		if isFatal(err) {
			if relErr := e.store.ReleaseEnrichment(ctx, poi.ID); relErr != nil {
				zap.L().Warn("release after fatal failure", zap.Int64("id", poi.ID), zap.Error(relErr))
			}
			return err
		}
		zap.L().Debug("enrichment attempt failed",
			zap.Int64("id", poi.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	if err := e.store.ReleaseEnrichment(ctx, poi.ID); err != nil {
		return err
	}
	return eris.Wrap(ErrExhausted, eris.ToString(lastErr, false))
}

// attempt performs a single generate-extract-sanitize pass plus the
// non-fatal finishing steps.
func (e *Engine) attempt(ctx context.Context, poi *model.PointOfInterest) (model.EnrichedFields, error) {
	resp, err := e.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: int64(max(256, e.cfg.MaxTokens)),
		System:    systemPrompt(poi.Kind),
		Messages: []anthropic.Message{
			{Role: "user", Content: userPrompt(poi)},
		},
	})
	if err != nil {
		return model.EnrichedFields{}, err
	}
	resp.Usage.LogCost(e.model, "enrich")

	text := resp.Text()
	payload, ok := ExtractJSON(text)
	if !ok {
		return model.EnrichedFields{}, errNoPayload
	}

	var raw rawEnrichment
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return model.EnrichedFields{}, eris.Wrap(errBadPayload, err.Error())
	}

	fields := Sanitize(poi.Kind, poi.Subtype, poi.Name, raw)

	if e.cfg.RewriteDescription && fields.Description != "" {
		fields.Description = e.rewrite(ctx, poi.Name, fields.Description)
	}
	if e.images != nil && poi.PhotoURL != "" && poi.ImageURL == "" {
		e.rehost(ctx, poi, &fields)
	}
	return fields, nil
}

// rewrite asks for a cleaner description. Any failure keeps the original.
func (e *Engine) rewrite(ctx context.Context, name, description string) string {
	resp, err := e.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: 512,
		System:    "Rewrite the provided description into two concise, factual sentences. Respond with the rewritten text only.",
		Messages: []anthropic.Message{
			{Role: "user", Content: name + ": " + description},
		},
	})
	if err != nil {
		zap.L().Debug("description rewrite failed", zap.String("name", name), zap.Error(err))
		return description
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text
	}
	return description
}

// rehost uploads the provider photo to the image host. Failures leave the
// provider URL in place.
func (e *Engine) rehost(ctx context.Context, poi *model.PointOfInterest, fields *model.EnrichedFields) {
	folder := string(poi.Kind) + "s"
	up, err := e.images.UploadURL(ctx, poi.PhotoURL, folder)
	if err != nil {
		zap.L().Warn("photo rehost failed",
			zap.Int64("id", poi.ID),
			zap.Error(err))
		return
	}
	fields.ImageURL = up.SecureURL
	fields.ImagePublicID = up.PublicID
}

// isFatal reports failures no retry can fix. Transport blips and malformed
// model output are retryable; everything else is not.
func isFatal(err error) bool {
	if resilience.IsTransient(err) {
		return false
	}
	if eris.Is(err, errNoPayload) || eris.Is(err, errBadPayload) {
		return false
	}
	return true
}

func systemPrompt(kind model.Kind) string {
	if kind == model.KindLodging {
		return "You are a travel data assistant. Given a lodging property, respond with one JSON object and nothing else, using keys: subtype (hotel|resort_lodge|bed_and_breakfast|lodge), description, tags (array), phone, website, official_name, notes."
	}
	return "You are a golf data assistant. Given a golf course, respond with one JSON object and nothing else, using keys: subtype (public|private|semi_private|resort|municipal), description, course_tags (array), phone, website, holes, par, length_yards, official_name, notes."
}

func userPrompt(poi *model.PointOfInterest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", poi.Name)
	fmt.Fprintf(&sb, "Region: %s\n", poi.RegionName)
	if poi.Address != "" {
		fmt.Fprintf(&sb, "Address: %s\n", poi.Address)
	}
	if poi.Website != "" {
		fmt.Fprintf(&sb, "Website: %s\n", poi.Website)
	}
	fmt.Fprintf(&sb, "Coordinates: %.4f,%.4f\n", poi.Lat, poi.Lng)
	return sb.String()
}
