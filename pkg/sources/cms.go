package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

const defaultCMSBaseURL = "https://api.webflow.com/v2"

// jobCollectionKeywords hint at a jobs/careers collection during discovery.
var jobCollectionKeywords = []string{"job", "career", "position", "opening", "role", "hiring"}

// CMSItem is one CMS collection item. Field names vary between sites, so
// the raw field data is kept as a map and resolved through fallback chains
// at normalization time.
type CMSItem struct {
	ID         string                 `json:"id"`
	IsArchived bool                   `json:"isArchived"`
	IsDraft    bool                   `json:"isDraft"`
	Name       string                 `json:"name"`
	Slug       string                 `json:"slug"`
	FieldData  map[string]interface{} `json:"fieldData"`
}

// CMSClient talks to the Webflow CMS API.
type CMSClient struct {
	Token      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewCMSClient(token string) *CMSClient {
	return &CMSClient{
		Token:      token,
		BaseURL:    defaultCMSBaseURL,
		HTTPClient: newHTTPClient(),
	}
}

func (c *CMSClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(c.BaseURL, "/")+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to build CMS request")
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("accept-version", "1.0.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "CMS request failed")
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return errors.Wrap(err, "CMS API")
	}
	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "failed to decode CMS response")
}

// DiscoverJobsCollection finds the first site's domain and its most likely
// jobs collection by name keyword, falling back to the first collection.
func (c *CMSClient) DiscoverJobsCollection(ctx context.Context) (siteID, siteDomain, collectionID string, err error) {
	var sites struct {
		Sites []struct {
			ID            string `json:"id"`
			DefaultDomain string `json:"defaultDomain"`
			CustomDomains []struct {
				URL string `json:"url"`
			} `json:"customDomains"`
		} `json:"sites"`
	}
	if err = c.get(ctx, "/sites", &sites); err != nil {
		return "", "", "", err
	}
	if len(sites.Sites) == 0 {
		return "", "", "", errors.New("no CMS sites found for this API key")
	}
	site := sites.Sites[0]
	siteID = site.ID
	siteDomain = site.DefaultDomain
	if len(site.CustomDomains) > 0 {
		siteDomain = strings.TrimPrefix(strings.TrimPrefix(site.CustomDomains[0].URL, "https://"), "http://")
	}

	var cols struct {
		Collections []struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
			Slug        string `json:"slug"`
		} `json:"collections"`
	}
	if err = c.get(ctx, "/sites/"+siteID+"/collections", &cols); err != nil {
		return "", "", "", err
	}
	if len(cols.Collections) == 0 {
		return "", "", "", errors.New("no CMS collections found in the site")
	}

	collectionID = cols.Collections[0].ID
	for _, col := range cols.Collections {
		name := strings.ToLower(col.DisplayName)
		slug := strings.ToLower(col.Slug)
		for _, kw := range jobCollectionKeywords {
			if strings.Contains(name, kw) || strings.Contains(slug, kw) {
				return siteID, siteDomain, col.ID, nil
			}
		}
	}
	return siteID, siteDomain, collectionID, nil
}

// FetchItems lists published, non-archived items of a collection, capped
// at maxItems.
func (c *CMSClient) FetchItems(ctx context.Context, collectionID string) ([]CMSItem, error) {
	if collectionID == "" {
		return nil, errors.New("collection ID is required")
	}
	var payload struct {
		Items []CMSItem `json:"items"`
	}
	if err := c.get(ctx, "/collections/"+collectionID+"/items?limit=100", &payload); err != nil {
		return nil, err
	}
	var published []CMSItem
	for _, item := range payload.Items {
		if item.IsArchived || item.IsDraft {
			continue
		}
		published = append(published, item)
	}
	if len(published) > maxItems {
		published = published[:maxItems]
	}
	return published, nil
}

// field resolves the first non-empty string among the given field names.
func (item CMSItem) field(names ...string) string {
	for _, name := range names {
		v, ok := item.FieldData[name]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return ""
}

// NormalizeJobs renders job postings as a fixed-format report.
func NormalizeJobs(jobs []CMSItem, siteDomain string) string {
	header := "FEATURED JOB POSTINGS"
	if len(jobs) == 0 {
		return header + "\nNo job postings found.\n"
	}

	lines := []string{header}
	for i, job := range jobs {
		title := job.field("name", "title", "job-title")
		if title == "" {
			title = job.Name
		}
		if title == "" {
			title = "Untitled Position"
		}
		slug := job.field("slug")
		if slug == "" {
			slug = job.Slug
		}

		var meta []string
		for _, v := range []string{
			job.field("department", "team", "category"),
			job.field("location", "city", "office", "work-location"),
			job.field("type", "employment-type", "job-type", "work-type"),
		} {
			if v != "" {
				meta = append(meta, v)
			}
		}

		line := fmt.Sprintf("%d. %s", i+1, title)
		if len(meta) > 0 {
			line += " — " + strings.Join(meta, " | ")
		}
		lines = append(lines, line)
		if desc := preview(job.field("description", "summary", "excerpt", "short-description")); desc != "" {
			lines = append(lines, "   "+desc)
		}
		if siteDomain != "" && slug != "" {
			lines = append(lines, fmt.Sprintf("   Apply: https://%s/jobs/%s", strings.TrimSuffix(siteDomain, "/"), slug))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// NormalizeBlogs renders blog posts as a fixed-format report.
func NormalizeBlogs(posts []CMSItem, siteDomain string) string {
	header := "RECENT BLOG POSTS"
	if len(posts) == 0 {
		return header + "\nNo blog posts found.\n"
	}

	lines := []string{header}
	for i, post := range posts {
		title := post.field("name", "title", "post-title")
		if title == "" {
			title = post.Name
		}
		if title == "" {
			title = "Untitled Post"
		}
		slug := post.field("slug")
		if slug == "" {
			slug = post.Slug
		}

		publishDate := post.field("publish-date", "date", "published-on")
		if len(publishDate) > 10 {
			// Trim ISO datetimes to the date portion.
			publishDate = publishDate[:10]
		}
		author := post.field("author", "writer")

		var meta []string
		for _, v := range []string{publishDate, author} {
			if v != "" {
				meta = append(meta, v)
			}
		}

		line := fmt.Sprintf("%d. %s", i+1, title)
		if len(meta) > 0 {
			line += " — " + strings.Join(meta, " | ")
		}
		lines = append(lines, line)
		if excerpt := preview(post.field("excerpt", "summary", "description", "short-description")); excerpt != "" {
			lines = append(lines, "   "+excerpt)
		}
		if siteDomain != "" && slug != "" {
			lines = append(lines, fmt.Sprintf("   URL: https://%s/blog/%s", strings.TrimSuffix(siteDomain, "/"), slug))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
