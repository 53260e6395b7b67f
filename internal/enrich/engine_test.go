package enrich

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pittman021/golf-directory-sub000/internal/config"
	"github.com/pittman021/golf-directory-sub000/internal/model"
	"github.com/pittman021/golf-directory-sub000/internal/resilience"
	"github.com/pittman021/golf-directory-sub000/internal/store"
	"github.com/pittman021/golf-directory-sub000/pkg/anthropic"
	"github.com/pittman021/golf-directory-sub000/pkg/cloudinary"
	"github.com/rotisserie/eris"
)

type scriptedLLM struct {
	mu        sync.Mutex
	responses []func() (*anthropic.MessageResponse, error)
	calls     int
}

func (s *scriptedLLM) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx]()
}

func textResponse(text string) func() (*anthropic.MessageResponse, error) {
	return func() (*anthropic.MessageResponse, error) {
		return &anthropic.MessageResponse{
			Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		}, nil
	}
}

func errResponse(err error) func() (*anthropic.MessageResponse, error) {
	return func() (*anthropic.MessageResponse, error) { return nil, err }
}

type enrichStore struct {
	mu          sync.Mutex
	pending     []model.PointOfInterest
	completed   map[int64]model.EnrichedFields
	released    []int64
	lastCeiling int
}

func newEnrichStore(pois ...model.PointOfInterest) *enrichStore {
	return &enrichStore{pending: pois, completed: map[int64]model.EnrichedFields{}}
}

func (m *enrichStore) Migrate(ctx context.Context) error { return nil }
func (m *enrichStore) EnsureRegion(ctx context.Context, name, code string) (model.Region, error) {
	return model.Region{}, nil
}
func (m *enrichStore) RegionByName(ctx context.Context, name string) (model.Region, error) {
	return model.Region{}, store.ErrNotFound
}
func (m *enrichStore) ListRegions(ctx context.Context) ([]model.Region, error) { return nil, nil }
func (m *enrichStore) Upsert(ctx context.Context, poi *model.PointOfInterest) (store.UpsertResult, error) {
	return store.UpsertResult{}, nil
}

func (m *enrichStore) ClaimPending(ctx context.Context, kind model.Kind, limit, maxAttempts int) ([]model.PointOfInterest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCeiling = maxAttempts

	var claimed, rest []model.PointOfInterest
	for _, p := range m.pending {
		if len(claimed) < limit && p.EnrichmentAttempts < maxAttempts {
			p.EnrichmentAttempts++
			p.EnrichmentStatus = model.EnrichmentInProgress
			claimed = append(claimed, p)
			continue
		}
		rest = append(rest, p)
	}
	m.pending = rest
	return claimed, nil
}

func (m *enrichStore) CompleteEnrichment(ctx context.Context, id int64, f model.EnrichedFields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[id] = f
	return nil
}

func (m *enrichStore) ReleaseEnrichment(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, id)
	return nil
}

func (m *enrichStore) Close() {}

type fakeImages struct {
	uploads int
	fail    bool
}

func (f *fakeImages) UploadURL(ctx context.Context, imageURL, folder string) (*cloudinary.Upload, error) {
	f.uploads++
	if f.fail {
		return nil, eris.New("cloudinary: upload failed: 400")
	}
	return &cloudinary.Upload{SecureURL: "https://img.host/" + folder + "/x.jpg", PublicID: folder + "/x"}, nil
}

func testEngine(st store.Store, llm anthropic.Client, images cloudinary.Client) *Engine {
	e := New(st, llm, images, "claude-haiku-4-5-20251001", config.EnrichConfig{
		MaxAttempts: 3,
		BaseDelayMs: 1,
		MaxTokens:   1024,
		Concurrency: 1,
	})
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e
}

func course(id int64) model.PointOfInterest {
	return model.PointOfInterest{
		ID:         id,
		Kind:       model.KindCourse,
		Name:       "Seaside GC",
		RegionName: "Oregon",
		Subtype:    model.SubtypePublic,
		PhotoURL:   "https://photos.example.com/ref1",
	}
}

func TestRunCompletesEntity(t *testing.T) {
	st := newEnrichStore(course(1))
	llm := &scriptedLLM{responses: []func() (*anthropic.MessageResponse, error){
		textResponse(`{"subtype": "public", "description": "A windswept links.", "course_tags": ["links"], "par": 71, "holes": 18, "length_yards": 6400}`),
	}}
	images := &fakeImages{}

	report, err := testEngine(st, llm, images).Run(context.Background(), model.KindCourse, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Claimed)
	assert.Equal(t, 1, report.Completed)
	assert.Zero(t, report.Released)

	fields := st.completed[1]
	assert.Equal(t, model.SubtypePublic, fields.Subtype)
	assert.Equal(t, 71, fields.Par)
	assert.Equal(t, []string{"links"}, fields.Tags)
	assert.Equal(t, "courses/x", fields.ImagePublicID)
	assert.Equal(t, 1, images.uploads)
}

func TestRunRetriesMalformedOutput(t *testing.T) {
	st := newEnrichStore(course(1))
	llm := &scriptedLLM{responses: []func() (*anthropic.MessageResponse, error){
		textResponse("I'd be happy to help, but I need more information."),
		textResponse(`{"par": 70, "holes": 18, "course_tags": ["coastal"]}`),
	}}

	report, err := testEngine(st, llm, nil).Run(context.Background(), model.KindCourse, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 2, llm.calls)
	assert.Equal(t, 70, st.completed[1].Par)
}

func TestRunRetriesTransientErrors(t *testing.T) {
	st := newEnrichStore(course(1))
	llm := &scriptedLLM{responses: []func() (*anthropic.MessageResponse, error){
		errResponse(resilience.NewTransientError(eris.New("overloaded"), 529)),
		textResponse(`{"par": 72}`),
	}}

	report, err := testEngine(st, llm, nil).Run(context.Background(), model.KindCourse, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
}

func TestRunReleasesAfterExhaustion(t *testing.T) {
	st := newEnrichStore(course(7))
	llm := &scriptedLLM{responses: []func() (*anthropic.MessageResponse, error){
		textResponse("no json here"),
	}}

	report, err := testEngine(st, llm, nil).Run(context.Background(), model.KindCourse, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Released)
	assert.Equal(t, 3, llm.calls)
	assert.Equal(t, []int64{7}, st.released)
	assert.Empty(t, st.completed)
}

func TestRunSkipsEntitiesAtAttemptCeiling(t *testing.T) {
	exhausted := course(4)
	exhausted.EnrichmentAttempts = 99
	st := newEnrichStore(exhausted)
	llm := &scriptedLLM{responses: []func() (*anthropic.MessageResponse, error){
		textResponse(`{"par": 72}`),
	}}

	report, err := testEngine(st, llm, nil).Run(context.Background(), model.KindCourse, 10)
	require.NoError(t, err)
	assert.Zero(t, report.Claimed)
	assert.Zero(t, llm.calls, "exhausted entities must not cost generation calls")
	assert.Equal(t, 3, st.lastCeiling)
}

func TestRunRetriesUndecodablePayload(t *testing.T) {
	st := newEnrichStore(course(1))
	llm := &scriptedLLM{responses: []func() (*anthropic.MessageResponse, error){
		textResponse(`{"par": }`),
		textResponse(`{"par": 70}`),
	}}

	report, err := testEngine(st, llm, nil).Run(context.Background(), model.KindCourse, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 2, llm.calls)
}

func TestRunFatalErrorStopsRetrying(t *testing.T) {
	st := newEnrichStore(course(9))
	llm := &scriptedLLM{responses: []func() (*anthropic.MessageResponse, error){
		errResponse(eris.New("anthropic: invalid api key")),
	}}

	report, err := testEngine(st, llm, nil).Run(context.Background(), model.KindCourse, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, llm.calls, "a non-retryable failure must not burn more attempts")
	assert.Equal(t, []int64{9}, st.released)
}

func TestRunRehostFailureIsNonFatal(t *testing.T) {
	st := newEnrichStore(course(1))
	llm := &scriptedLLM{responses: []func() (*anthropic.MessageResponse, error){
		textResponse(`{"par": 72, "course_tags": ["desert"]}`),
	}}
	images := &fakeImages{fail: true}

	report, err := testEngine(st, llm, images).Run(context.Background(), model.KindCourse, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.Empty(t, st.completed[1].ImageURL)
}

func TestRunRewriteReplacesDescription(t *testing.T) {
	st := newEnrichStore(course(1))
	llm := &scriptedLLM{responses: []func() (*anthropic.MessageResponse, error){
		textResponse(`{"par": 72, "description": "original wordy description"}`),
		textResponse("A tidy rewritten description."),
	}}

	e := New(st, llm, nil, "claude-haiku-4-5-20251001", config.EnrichConfig{
		MaxAttempts:        3,
		BaseDelayMs:        1,
		RewriteDescription: true,
		Concurrency:        1,
	})
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	report, err := e.Run(context.Background(), model.KindCourse, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, "A tidy rewritten description.", st.completed[1].Description)
}
