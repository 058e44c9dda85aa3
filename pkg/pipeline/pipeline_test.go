package pipeline_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ignatij/letterflow/pkg/models"
	"github.com/ignatij/letterflow/pkg/pipeline"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Infof(format string, args ...interface{})  {}
func (testLogger) Errorf(format string, args ...interface{}) {}

type stubSource struct {
	key     string
	label   string
	ready   bool
	block   string
	summary string
	err     error
	panics  bool
}

func (s *stubSource) Key() string   { return s.key }
func (s *stubSource) Label() string { return s.label }
func (s *stubSource) Ready() bool   { return s.ready }
func (s *stubSource) Fetch(ctx context.Context, settings models.SourceSettings) (pipeline.FetchResult, error) {
	if s.panics {
		panic("source exploded")
	}
	if s.err != nil {
		return pipeline.FetchResult{}, s.err
	}
	return pipeline.FetchResult{Block: s.block, Summary: s.summary}, nil
}

type stubGenerator struct {
	prompt string
	text   string
	err    error
	panics bool
}

func (g *stubGenerator) Generate(ctx context.Context, prompt, model string) (string, error) {
	if g.panics {
		panic("generator exploded")
	}
	g.prompt = prompt
	return g.text, g.err
}

type stubRenderer struct {
	data []byte
	err  error
}

func (r *stubRenderer) Render(text, model string) ([]byte, error) {
	return r.data, r.err
}

func allEnabled() models.SourceSet {
	return models.SourceSet{
		Events:   models.SourceSettings{Enabled: true, Days: 21},
		Podcast:  models.SourceSettings{Enabled: true, Days: 7},
		CMSJobs:  models.SourceSettings{Enabled: true},
		CMSBlogs: models.SourceSettings{Enabled: true},
	}
}

func TestRunHappyPath(t *testing.T) {
	gen := &stubGenerator{text: "the newsletter"}
	exec := pipeline.NewExecutor(
		[]pipeline.Source{
			&stubSource{key: "events", label: "Events", ready: true, block: "EVENT BLOCK", summary: "Events (2 events)"},
			&stubSource{key: "podcast", label: "Podcast", ready: true, block: "EPISODE BLOCK", summary: "Podcast (3 episodes)"},
		},
		gen,
		&stubRenderer{data: []byte{0x50, 0x4b}},
		testLogger{},
	)

	task := models.Task{Name: "digest", Model: "m", Sources: allEnabled()}
	result := exec.Run(context.Background(), task)

	assert.Equal(t, models.DoneRunStatus, result.Status)
	assert.Equal(t, "the newsletter", result.Text)
	assert.Equal(t, []byte{0x50, 0x4b}, result.Document)
	assert.Equal(t, []string{"Events (2 events)", "Podcast (3 episodes)"}, result.SourcesUsed)
	assert.NotEmpty(t, result.Timestamp)
	assert.Contains(t, gen.prompt, "EVENT BLOCK")
	assert.Contains(t, gen.prompt, "EPISODE BLOCK")
}

func TestRunOneFailingSourceDoesNotAbortOthers(t *testing.T) {
	gen := &stubGenerator{text: "the newsletter"}
	exec := pipeline.NewExecutor(
		[]pipeline.Source{
			&stubSource{key: "events", label: "Events", ready: true, block: "EVENT BLOCK", summary: "Events (2 events)"},
			&stubSource{key: "podcast", label: "Podcast", ready: true, err: errors.New("status 500")},
			&stubSource{key: "cms_jobs", label: "CMS Jobs", ready: true, block: "JOBS BLOCK", summary: "CMS Jobs (1 jobs)"},
		},
		gen,
		&stubRenderer{data: []byte{1}},
		testLogger{},
	)

	task := models.Task{Name: "digest", Model: "m", Sources: allEnabled()}
	result := exec.Run(context.Background(), task)

	require.Equal(t, models.DoneRunStatus, result.Status)
	require.Len(t, result.SourcesUsed, 3)
	assert.Equal(t, "Events (2 events)", result.SourcesUsed[0])
	assert.Equal(t, "Podcast (error: status 500)", result.SourcesUsed[1])
	assert.Equal(t, "CMS Jobs (1 jobs)", result.SourcesUsed[2])
	assert.Contains(t, gen.prompt, "EVENT BLOCK")
	assert.Contains(t, gen.prompt, "JOBS BLOCK")
	assert.NotContains(t, gen.prompt, "status 500", "failed source contributes no prompt text")
}

func TestRunSkipsDisabledAndUnconfiguredSources(t *testing.T) {
	gen := &stubGenerator{text: "draft"}
	exec := pipeline.NewExecutor(
		[]pipeline.Source{
			&stubSource{key: "events", label: "Events", ready: true, block: "EVENT BLOCK", summary: "Events (2 events)"},
			&stubSource{key: "podcast", label: "Podcast", ready: false, block: "EPISODE BLOCK", summary: "Podcast (3 episodes)"},
			&stubSource{key: "cms_jobs", label: "CMS Jobs", ready: true, block: "JOBS BLOCK", summary: "CMS Jobs (1 jobs)"},
		},
		gen,
		&stubRenderer{data: []byte{1}},
		testLogger{},
	)

	sources := allEnabled()
	sources.CMSJobs.Enabled = false
	task := models.Task{Name: "digest", Model: "m", Sources: sources}
	result := exec.Run(context.Background(), task)

	require.Equal(t, models.DoneRunStatus, result.Status)
	assert.Equal(t, []string{"Events (2 events)"}, result.SourcesUsed)
}

func TestRunWithNoSourcesUsesPlaceholders(t *testing.T) {
	gen := &stubGenerator{text: "draft"}
	exec := pipeline.NewExecutor(nil, gen, &stubRenderer{data: []byte{1}}, testLogger{})

	result := exec.Run(context.Background(), models.Task{Name: "digest", Model: "m"})

	require.Equal(t, models.DoneRunStatus, result.Status)
	assert.Empty(t, result.SourcesUsed)
	assert.Contains(t, gen.prompt, "(No live data fetched — work from uploaded documents and template only.)")
	assert.Contains(t, gen.prompt, "(No additional documents uploaded.)")
	assert.Contains(t, gen.prompt, "(No template provided — use a standard newsletter format.)")
}

func TestRunInstructionsRideWithTemplate(t *testing.T) {
	gen := &stubGenerator{text: "draft"}
	exec := pipeline.NewExecutor(nil, gen, &stubRenderer{data: []byte{1}}, testLogger{})

	task := models.Task{
		Name:         "digest",
		Model:        "m",
		Instructions: "Keep it under 500 words.",
		Template:     &models.Upload{Name: "template.txt", Data: []byte("SECTION ONE")},
	}
	result := exec.Run(context.Background(), task)

	require.Equal(t, models.DoneRunStatus, result.Status)
	idx := strings.Index(gen.prompt, "SECTION ONE")
	require.GreaterOrEqual(t, idx, 0)
	assert.Greater(t, strings.Index(gen.prompt, "Keep it under 500 words."), idx)
}

func TestRunGenerationFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("rate limited")}
	exec := pipeline.NewExecutor(
		[]pipeline.Source{
			&stubSource{key: "events", label: "Events", ready: true, block: "EVENT BLOCK", summary: "Events (2 events)"},
		},
		gen,
		&stubRenderer{data: []byte{1}},
		testLogger{},
	)

	task := models.Task{Name: "digest", Model: "m", Sources: allEnabled()}
	result := exec.Run(context.Background(), task)

	assert.Equal(t, models.ErrorRunStatus, result.Status)
	assert.Equal(t, "generation failed: rate limited", result.Err)
	assert.Empty(t, result.Text)
	assert.Equal(t, []string{"Events (2 events)"}, result.SourcesUsed)
}

func TestRunRenderFailureKeepsText(t *testing.T) {
	gen := &stubGenerator{text: "the draft survived"}
	exec := pipeline.NewExecutor(nil, gen, &stubRenderer{err: errors.New("zip error")}, testLogger{})

	result := exec.Run(context.Background(), models.Task{Name: "digest", Model: "m"})

	assert.Equal(t, models.ErrorRunStatus, result.Status)
	assert.Equal(t, "rendering failed: zip error", result.Err)
	assert.Equal(t, "the draft survived", result.Text)
	assert.Empty(t, result.Document)
}

func TestRunPanickingSourceDoesNotAbortOthers(t *testing.T) {
	gen := &stubGenerator{text: "the newsletter"}
	exec := pipeline.NewExecutor(
		[]pipeline.Source{
			&stubSource{key: "events", label: "Events", ready: true, block: "EVENT BLOCK", summary: "Events (2 events)"},
			&stubSource{key: "podcast", label: "Podcast", ready: true, panics: true},
		},
		gen,
		&stubRenderer{data: []byte{1}},
		testLogger{},
	)

	task := models.Task{Name: "digest", Model: "m", Sources: allEnabled()}
	result := exec.Run(context.Background(), task)

	require.Equal(t, models.DoneRunStatus, result.Status)
	require.Len(t, result.SourcesUsed, 2)
	assert.Equal(t, "Events (2 events)", result.SourcesUsed[0])
	assert.Equal(t, "Podcast (error: panic: source exploded)", result.SourcesUsed[1])
	assert.Contains(t, gen.prompt, "EVENT BLOCK")
}

func TestRunRecoversFromPanic(t *testing.T) {
	gen := &stubGenerator{panics: true}
	exec := pipeline.NewExecutor(nil, gen, &stubRenderer{data: []byte{1}}, testLogger{})

	result := exec.Run(context.Background(), models.Task{Name: "digest", Model: "m"})

	assert.Equal(t, models.ErrorRunStatus, result.Status)
	assert.Equal(t, "unexpected error: generator exploded", result.Err)
}

func TestRunBadUploadDegradesToInlineError(t *testing.T) {
	gen := &stubGenerator{text: "draft"}
	exec := pipeline.NewExecutor(nil, gen, &stubRenderer{data: []byte{1}}, testLogger{})

	task := models.Task{
		Name:     "digest",
		Model:    "m",
		Template: &models.Upload{Name: "template.docx", Data: []byte("not a zip")},
	}
	result := exec.Run(context.Background(), task)

	require.Equal(t, models.DoneRunStatus, result.Status)
	assert.Contains(t, gen.prompt, "[Error extracting template.docx:")
}
