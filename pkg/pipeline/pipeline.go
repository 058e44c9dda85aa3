package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/ignatij/letterflow/pkg/models"
)

// Logger defines the logging interface for the pipeline executor.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// FetchResult is one source's contribution to a run: a normalized text
// block for the prompt and a human-readable outcome summary.
type FetchResult struct {
	Block   string
	Summary string
}

// Source is one external data provider. Fetch must be safe to call
// concurrently with other sources and should honor the context deadline.
type Source interface {
	// Key selects this source's settings from a task's source set.
	Key() string
	// Label names the source in outcome summaries.
	Label() string
	// Ready reports whether credentials are configured.
	Ready() bool
	Fetch(ctx context.Context, settings models.SourceSettings) (FetchResult, error)
}

// Generator produces text from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Renderer turns generated text into downloadable document bytes.
type Renderer interface {
	Render(text, model string) ([]byte, error)
}

// Executor runs the full fetch → normalize → assemble → generate → render
// sequence for one task. Steps are strictly sequential except the fetch
// fan-out; a failure in one source never aborts the others.
type Executor struct {
	sources   []Source
	extract   func(name string, data []byte) (string, error)
	generator Generator
	renderer  Renderer
	logger    Logger
}

func NewExecutor(sources []Source, generator Generator, renderer Renderer, logger Logger) *Executor {
	return &Executor{
		sources:   sources,
		extract:   ExtractText,
		generator: generator,
		renderer:  renderer,
		logger:    logger,
	}
}

type fetchOutcome struct {
	label  string
	result FetchResult
	err    error
}

// Run executes one pipeline run and always returns a terminal result;
// any escaping panic is converted to an error-status result.
func (e *Executor) Run(ctx context.Context, task models.Task) (res models.RunResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Errorf("Pipeline run for task '%s' panicked: %v", task.Name, r)
			res = models.RunResult{
				Status:    models.ErrorRunStatus,
				Err:       fmt.Sprintf("unexpected error: %v", r),
				Timestamp: models.Now(),
			}
		}
	}()

	// 1. Fetch all enabled, configured sources in parallel.
	type job struct {
		source   Source
		settings models.SourceSettings
	}
	var jobs []job
	for _, src := range e.sources {
		settings, ok := settingsFor(task.Sources, src.Key())
		if !ok || !settings.Enabled || !src.Ready() {
			continue
		}
		jobs = append(jobs, job{source: src, settings: settings})
	}

	outcomes := make([]fetchOutcome, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		go func(i int, j job) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = fetchOutcome{label: j.source.Label(), err: fmt.Errorf("panic: %v", r)}
				}
			}()
			result, err := j.source.Fetch(ctx, j.settings)
			outcomes[i] = fetchOutcome{label: j.source.Label(), result: result, err: err}
		}(i, j)
	}
	wg.Wait()

	// 2. Collect text blocks and per-source outcome summaries.
	var blocks []string
	var sourcesUsed []string
	for _, o := range outcomes {
		if o.err != nil {
			e.logger.Errorf("Source %s failed: %v", o.label, o.err)
			sourcesUsed = append(sourcesUsed, fmt.Sprintf("%s (error: %v)", o.label, o.err))
			continue
		}
		blocks = append(blocks, o.result.Block)
		sourcesUsed = append(sourcesUsed, o.result.Summary)
	}

	// 3. Extract uploaded files; a bad file degrades to inline error text.
	templateText := ""
	if task.Template != nil {
		text, err := e.extract(task.Template.Name, task.Template.Data)
		if err != nil {
			templateText = fmt.Sprintf("[Error extracting %s: %v]", task.Template.Name, err)
		} else {
			templateText = text
		}
	}
	var docs []UploadedDoc
	for _, doc := range task.ContextDocs {
		text, err := e.extract(doc.Name, doc.Data)
		if err != nil {
			text = fmt.Sprintf("[Error extracting %s: %v]", doc.Name, err)
		}
		docs = append(docs, UploadedDoc{Name: doc.Name, Text: text})
	}

	// Custom instructions ride along with the template text.
	if task.Instructions != "" {
		if templateText != "" {
			templateText = templateText + "\n\n" + task.Instructions
		} else {
			templateText = task.Instructions
		}
	}

	// 4. Assemble the prompt.
	prompt := AssembleContext(blocks, docs, templateText)

	// 5. Generate. Failure here aborts the run; no retry.
	text, err := e.generator.Generate(ctx, prompt, task.Model)
	if err != nil {
		return models.RunResult{
			Status:      models.ErrorRunStatus,
			Err:         fmt.Sprintf("generation failed: %v", err),
			SourcesUsed: sourcesUsed,
			Timestamp:   models.Now(),
		}
	}

	// 6. Render the document. The generated text survives a render failure.
	document, err := e.renderer.Render(text, task.Model)
	if err != nil {
		e.logger.Errorf("Rendering failed for task '%s': %v", task.Name, err)
		return models.RunResult{
			Status:      models.ErrorRunStatus,
			Err:         fmt.Sprintf("rendering failed: %v", err),
			Text:        text,
			SourcesUsed: sourcesUsed,
			Timestamp:   models.Now(),
		}
	}

	return models.RunResult{
		Status:      models.DoneRunStatus,
		Text:        text,
		Document:    document,
		SourcesUsed: sourcesUsed,
		Timestamp:   models.Now(),
	}
}

func settingsFor(set models.SourceSet, key string) (models.SourceSettings, bool) {
	switch key {
	case "events":
		return set.Events, true
	case "podcast":
		return set.Podcast, true
	case "cms_jobs":
		return set.CMSJobs, true
	case "cms_blogs":
		return set.CMSBlogs, true
	}
	return models.SourceSettings{}, false
}
