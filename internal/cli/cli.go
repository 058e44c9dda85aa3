package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ignatij/letterflow/internal/config"
	internal_http "github.com/ignatij/letterflow/internal/http"
	"github.com/ignatij/letterflow/internal/log"
	"github.com/ignatij/letterflow/pkg/llm"
	"github.com/ignatij/letterflow/pkg/models"
	"github.com/ignatij/letterflow/pkg/pipeline"
	"github.com/ignatij/letterflow/pkg/render"
	"github.com/ignatij/letterflow/pkg/service"
	"github.com/ignatij/letterflow/pkg/sources"
	"github.com/ignatij/letterflow/pkg/storage"
)

func SetupCLI(rootCmd *cobra.Command) {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduler and the task API",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			if port, err := cmd.Flags().GetString("port"); err == nil && port != "" {
				cfg.Port = port
			}

			store := storage.NewMemoryStore()
			defer store.Close()
			executor := buildExecutor(cfg)
			svc := service.NewTaskService(context.Background(), store, executor, log.GetLogger())
			poller := service.NewPoller(svc, time.Duration(cfg.PollIntervalSec)*time.Second, log.GetLogger())
			poller.Start()
			defer poller.Stop()

			if err := internal_http.StartServer(cfg.Port, svc, poller); err != nil {
				log.GetLogger().Errorf("Server failed: %v", err)
				os.Exit(1)
			}
		},
	}
	serveCmd.Flags().String("port", "", "HTTP port (overrides PORT)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one generation run and write the document to a file",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Load()
			out, _ := cmd.Flags().GetString("out")
			name, _ := cmd.Flags().GetString("name")
			instructions, _ := cmd.Flags().GetString("instructions")
			model, _ := cmd.Flags().GetString("model")
			if model == "" {
				model = cfg.DefaultModel
			}

			task, err := models.NewTask(name, instructions, models.MinInterval, model, models.SourceSet{
				Events:   models.SourceSettings{Enabled: true, Days: 21},
				Podcast:  models.SourceSettings{Enabled: true, Days: 7},
				CMSJobs:  models.SourceSettings{Enabled: true},
				CMSBlogs: models.SourceSettings{Enabled: true},
			}, nil, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}

			executor := buildExecutor(cfg)
			result := executor.Run(context.Background(), task)
			if result.Status != models.DoneRunStatus {
				log.GetLogger().Errorf("Run failed: %s", result.Err)
				fmt.Fprintf(os.Stderr, "Error: run failed: %s\n", result.Err)
				os.Exit(1)
			}

			fmt.Fprintln(os.Stdout, result.Text)
			for _, summary := range result.SourcesUsed {
				fmt.Fprintf(os.Stdout, "  %s\n", summary)
			}
			if err := os.WriteFile(out, result.Document, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", out, err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Wrote document to %s\n", out)
		},
	}
	runCmd.Flags().String("out", "newsletter.docx", "Output document path")
	runCmd.Flags().String("name", "one-off run", "Run name")
	runCmd.Flags().String("instructions", "", "Extra instructions for the draft")
	runCmd.Flags().String("model", "", "Generation model (defaults to DEFAULT_MODEL)")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List the available generation models",
		Run: func(cmd *cobra.Command, args []string) {
			for _, m := range llm.AvailableModels {
				fmt.Fprintln(os.Stdout, m)
			}
		},
	}

	rootCmd.AddCommand(serveCmd, runCmd, modelsCmd)
}

// buildExecutor wires the pipeline with the configured collaborators.
func buildExecutor(cfg config.Config) *pipeline.Executor {
	cmsClient := sources.NewCMSClient(cfg.CMSToken)
	srcs := []pipeline.Source{
		&sources.EventsSource{Client: sources.NewEventsClient(cfg.EventsAPIKey, cfg.EventsCalendarID)},
		&sources.PodcastSource{Client: sources.NewPodcastClient(cfg.PodcastClientID, cfg.PodcastClientSecret, cfg.PodcastShowID)},
		&sources.JobsSource{Client: cmsClient, CollectionID: cfg.CMSJobsCollection, SiteDomain: cfg.CMSSiteDomain},
		&sources.BlogsSource{Client: cmsClient, CollectionID: cfg.CMSBlogCollection, SiteDomain: cfg.CMSSiteDomain},
	}
	generator := llm.NewClient(llm.ClientConfig{
		APIKey:  cfg.AnthropicAPIKey,
		BaseURL: cfg.AnthropicBaseURL,
	})
	return pipeline.NewExecutor(srcs, generator, render.DocxRenderer{}, log.GetLogger())
}
