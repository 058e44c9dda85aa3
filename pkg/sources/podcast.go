package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultPodcastTokenURL = "https://accounts.spotify.com/api/token"
	defaultPodcastBaseURL  = "https://api.spotify.com/v1"
)

// Episode is one podcast episode from the podcast platform.
type Episode struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ReleaseDate  string `json:"release_date"`
	DurationMS   int    `json:"duration_ms"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

// PodcastClient talks to the Spotify API with client-credentials auth.
type PodcastClient struct {
	ClientID     string
	ClientSecret string
	ShowID       string
	TokenURL     string
	BaseURL      string
	HTTPClient   *http.Client
}

func NewPodcastClient(clientID, clientSecret, showID string) *PodcastClient {
	return &PodcastClient{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		ShowID:       showID,
		TokenURL:     defaultPodcastTokenURL,
		BaseURL:      defaultPodcastBaseURL,
		HTTPClient:   newHTTPClient(),
	}
}

func (c *PodcastClient) token(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.Wrap(err, "failed to build token request")
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "token request failed")
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", errors.Wrap(err, "token endpoint")
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", errors.Wrap(err, "failed to decode token response")
	}
	if payload.AccessToken == "" {
		return "", errors.New("token endpoint returned an empty token")
	}
	return payload.AccessToken, nil
}

// parseReleaseDate handles the platform's variable date precision:
// year, year-month or full date.
func parseReleaseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FetchEpisodes lists show episodes released within the last days days,
// newest first, capped at maxItems.
func (c *PodcastClient) FetchEpisodes(ctx context.Context, days int) ([]Episode, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/shows/%s/episodes?limit=50&market=US", strings.TrimSuffix(c.BaseURL, "/"), c.ShowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build episodes request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "episodes request failed")
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, errors.Wrap(err, "episodes API")
	}

	var payload struct {
		Items []*Episode `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode episodes response")
	}

	cutoff := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	var episodes []Episode
	for _, ep := range payload.Items {
		if ep == nil {
			// The API pads removed episodes with nulls.
			continue
		}
		released, ok := parseReleaseDate(ep.ReleaseDate)
		if !ok || released.Before(cutoff) {
			continue
		}
		episodes = append(episodes, *ep)
	}
	sort.Slice(episodes, func(i, j int) bool { return episodes[i].ReleaseDate > episodes[j].ReleaseDate })
	if len(episodes) > maxItems {
		episodes = episodes[:maxItems]
	}
	return episodes, nil
}

// NormalizeEpisodes renders the fetched episodes as a fixed-format report.
func NormalizeEpisodes(episodes []Episode, days int) string {
	header := fmt.Sprintf("RECENT PODCAST EPISODES (last %d days)", days)
	if len(episodes) == 0 {
		return header + "\nNo recent episodes found.\n"
	}

	lines := []string{header}
	for i, ep := range episodes {
		name := ep.Name
		if name == "" {
			name = "Untitled Episode"
		}
		release := ep.ReleaseDate
		if release == "" {
			release = "Unknown"
		}
		minutes := int(math.Round(float64(ep.DurationMS) / 60000))

		lines = append(lines, fmt.Sprintf("%d. %s — Released %s | %d mins", i+1, name, release, minutes))
		if desc := preview(ep.Description); desc != "" {
			lines = append(lines, "   "+desc)
		}
		if ep.ExternalURLs.Spotify != "" {
			lines = append(lines, "   Listen: "+ep.ExternalURLs.Spotify)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
