package sources

import (
	"context"
	"fmt"

	"github.com/ignatij/letterflow/pkg/models"
	"github.com/ignatij/letterflow/pkg/pipeline"
)

// EventsSource adapts the events client to the pipeline source contract.
type EventsSource struct {
	Client *EventsClient
}

func (s *EventsSource) Key() string   { return "events" }
func (s *EventsSource) Label() string { return "Events" }

func (s *EventsSource) Ready() bool {
	return s.Client != nil && s.Client.APIKey != "" && s.Client.CalendarID != ""
}

func (s *EventsSource) Fetch(ctx context.Context, settings models.SourceSettings) (pipeline.FetchResult, error) {
	events, err := s.Client.FetchEvents(ctx, settings.Days)
	if err != nil {
		return pipeline.FetchResult{}, err
	}
	return pipeline.FetchResult{
		Block:   NormalizeEvents(events, settings.Days),
		Summary: fmt.Sprintf("Events (%d events)", len(events)),
	}, nil
}

// PodcastSource adapts the podcast client.
type PodcastSource struct {
	Client *PodcastClient
}

func (s *PodcastSource) Key() string   { return "podcast" }
func (s *PodcastSource) Label() string { return "Podcast" }

func (s *PodcastSource) Ready() bool {
	return s.Client != nil && s.Client.ClientID != "" && s.Client.ClientSecret != "" && s.Client.ShowID != ""
}

func (s *PodcastSource) Fetch(ctx context.Context, settings models.SourceSettings) (pipeline.FetchResult, error) {
	episodes, err := s.Client.FetchEpisodes(ctx, settings.Days)
	if err != nil {
		return pipeline.FetchResult{}, err
	}
	return pipeline.FetchResult{
		Block:   NormalizeEpisodes(episodes, settings.Days),
		Summary: fmt.Sprintf("Podcast (%d episodes)", len(episodes)),
	}, nil
}

// JobsSource adapts the CMS client for the job-postings collection. When
// no collection ID is configured it falls back to auto-discovery.
type JobsSource struct {
	Client       *CMSClient
	CollectionID string
	SiteDomain   string
}

func (s *JobsSource) Key() string   { return "cms_jobs" }
func (s *JobsSource) Label() string { return "CMS Jobs" }

func (s *JobsSource) Ready() bool {
	return s.Client != nil && s.Client.Token != ""
}

func (s *JobsSource) Fetch(ctx context.Context, settings models.SourceSettings) (pipeline.FetchResult, error) {
	collectionID, domain := s.CollectionID, s.SiteDomain
	if collectionID == "" {
		var err error
		if _, domain, collectionID, err = s.Client.DiscoverJobsCollection(ctx); err != nil {
			return pipeline.FetchResult{}, err
		}
	}
	jobs, err := s.Client.FetchItems(ctx, collectionID)
	if err != nil {
		return pipeline.FetchResult{}, err
	}
	return pipeline.FetchResult{
		Block:   NormalizeJobs(jobs, domain),
		Summary: fmt.Sprintf("CMS Jobs (%d jobs)", len(jobs)),
	}, nil
}

// BlogsSource adapts the CMS client for a blog collection. The collection
// ID is required; there is no discovery for blogs.
type BlogsSource struct {
	Client       *CMSClient
	CollectionID string
	SiteDomain   string
}

func (s *BlogsSource) Key() string   { return "cms_blogs" }
func (s *BlogsSource) Label() string { return "CMS Blogs" }

func (s *BlogsSource) Ready() bool {
	return s.Client != nil && s.Client.Token != "" && s.CollectionID != ""
}

func (s *BlogsSource) Fetch(ctx context.Context, settings models.SourceSettings) (pipeline.FetchResult, error) {
	posts, err := s.Client.FetchItems(ctx, s.CollectionID)
	if err != nil {
		return pipeline.FetchResult{}, err
	}
	return pipeline.FetchResult{
		Block:   NormalizeBlogs(posts, s.SiteDomain),
		Summary: fmt.Sprintf("CMS Blogs (%d posts)", len(posts)),
	}, nil
}
