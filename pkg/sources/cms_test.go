package sources_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ignatij/letterflow/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverJobsCollection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sites", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cms-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sites": []map[string]interface{}{{
				"id":            "site-1",
				"defaultDomain": "site-1.webflow.io",
				"customDomains": []map[string]string{{"url": "https://example.com"}},
			}},
		})
	})
	mux.HandleFunc("/sites/site-1/collections", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"collections": []map[string]string{
				{"id": "col-blog", "displayName": "Blog Posts", "slug": "blog"},
				{"id": "col-jobs", "displayName": "Open Positions", "slug": "positions"},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := sources.NewCMSClient("cms-token")
	client.BaseURL = server.URL

	siteID, domain, collectionID, err := client.DiscoverJobsCollection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "site-1", siteID)
	assert.Equal(t, "example.com", domain, "custom domain wins over the default")
	assert.Equal(t, "col-jobs", collectionID)
}

func TestDiscoverJobsCollectionFallsBackToFirst(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sites", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sites": []map[string]interface{}{{"id": "site-1", "defaultDomain": "site-1.webflow.io"}},
		})
	})
	mux.HandleFunc("/sites/site-1/collections", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"collections": []map[string]string{
				{"id": "col-blog", "displayName": "Blog Posts", "slug": "blog"},
				{"id": "col-press", "displayName": "Press", "slug": "press"},
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := sources.NewCMSClient("cms-token")
	client.BaseURL = server.URL

	_, domain, collectionID, err := client.DiscoverJobsCollection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "site-1.webflow.io", domain)
	assert.Equal(t, "col-blog", collectionID)
}

func TestFetchItemsSkipsDraftsAndArchived(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/col-1/items", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []map[string]interface{}{
				{"id": "1", "name": "Published"},
				{"id": "2", "name": "Draft", "isDraft": true},
				{"id": "3", "name": "Archived", "isArchived": true},
			},
		})
	}))
	defer server.Close()

	client := sources.NewCMSClient("cms-token")
	client.BaseURL = server.URL

	items, err := client.FetchItems(context.Background(), "col-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Published", items[0].Name)
}

func TestFetchItemsRequiresCollection(t *testing.T) {
	client := sources.NewCMSClient("cms-token")
	_, err := client.FetchItems(context.Background(), "")
	assert.Error(t, err)
}

func TestNormalizeJobs(t *testing.T) {
	jobs := []sources.CMSItem{
		{
			Name: "Chief of Staff",
			Slug: "chief-of-staff",
			FieldData: map[string]interface{}{
				"department":  "Operations",
				"location":    "Remote",
				"type":        "Full-time",
				"description": "Support the CEO across every function.",
			},
		},
		{FieldData: map[string]interface{}{}},
	}

	report := sources.NormalizeJobs(jobs, "example.com")
	assert.Contains(t, report, "FEATURED JOB POSTINGS")
	assert.Contains(t, report, "1. Chief of Staff — Operations | Remote | Full-time")
	assert.Contains(t, report, "   Support the CEO across every function.")
	assert.Contains(t, report, "   Apply: https://example.com/jobs/chief-of-staff")
	assert.Contains(t, report, "2. Untitled Position")
}

func TestNormalizeJobsEmpty(t *testing.T) {
	report := sources.NormalizeJobs(nil, "example.com")
	assert.Equal(t, "FEATURED JOB POSTINGS\nNo job postings found.\n", report)
}

func TestNormalizeBlogs(t *testing.T) {
	posts := []sources.CMSItem{{
		Name: "Quarterly Planning Rituals",
		Slug: "quarterly-planning",
		FieldData: map[string]interface{}{
			"publish-date": "2025-05-18T09:00:00.000Z",
			"author":       "Jordan",
			"excerpt":      "How operators run planning.",
		},
	}}

	report := sources.NormalizeBlogs(posts, "example.com")
	assert.Contains(t, report, "RECENT BLOG POSTS")
	assert.Contains(t, report, "1. Quarterly Planning Rituals — 2025-05-18 | Jordan")
	assert.Contains(t, report, "   How operators run planning.")
	assert.Contains(t, report, "   URL: https://example.com/blog/quarterly-planning")
}

func TestNormalizeBlogsEmpty(t *testing.T) {
	report := sources.NormalizeBlogs(nil, "example.com")
	assert.Equal(t, "RECENT BLOG POSTS\nNo blog posts found.\n", report)
}

func TestCMSItemFieldSkipsNullValues(t *testing.T) {
	jobs := []sources.CMSItem{{
		Name: "Analyst",
		Slug: "analyst",
		FieldData: map[string]interface{}{
			"department": nil,
			"team":       "Finance",
		},
	}}
	report := sources.NormalizeJobs(jobs, "")
	assert.Contains(t, report, "1. Analyst — Finance")
	assert.NotContains(t, report, "<nil>")
}
