package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultEventsBaseURL = "https://api.lu.ma/v1"

// Event is one upcoming calendar event from the events platform.
type Event struct {
	Name        string   `json:"name"`
	StartAt     string   `json:"start_at"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Geo         *GeoInfo `json:"geo_address_info"`
}

type GeoInfo struct {
	CityState   string `json:"city_state"`
	City        string `json:"city"`
	Description string `json:"description"`
}

// EventsClient talks to the Luma calendar API.
type EventsClient struct {
	APIKey     string
	CalendarID string
	BaseURL    string
	HTTPClient *http.Client
}

func NewEventsClient(apiKey, calendarID string) *EventsClient {
	return &EventsClient{
		APIKey:     apiKey,
		CalendarID: calendarID,
		BaseURL:    defaultEventsBaseURL,
		HTTPClient: newHTTPClient(),
	}
}

// FetchEvents lists calendar events starting within the next days days,
// soonest first, capped at maxItems.
func (c *EventsClient) FetchEvents(ctx context.Context, days int) ([]Event, error) {
	endpoint := fmt.Sprintf("%s/calendar/list-events?%s", strings.TrimSuffix(c.BaseURL, "/"),
		url.Values{"calendar_api_id": {c.CalendarID}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build events request")
	}
	req.Header.Set("x-luma-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "events request failed")
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, errors.Wrap(err, "events API")
	}

	var payload struct {
		Entries []struct {
			Event Event `json:"event"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode events response")
	}

	now := time.Now().UTC()
	cutoff := now.Add(time.Duration(days) * 24 * time.Hour)
	var events []Event
	for _, entry := range payload.Entries {
		start, err := time.Parse(time.RFC3339, entry.Event.StartAt)
		if err != nil {
			continue
		}
		if start.Before(now) || start.After(cutoff) {
			continue
		}
		events = append(events, entry.Event)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartAt < events[j].StartAt })
	if len(events) > maxItems {
		events = events[:maxItems]
	}
	return events, nil
}

// NormalizeEvents renders the fetched events as a fixed-format report.
func NormalizeEvents(events []Event, days int) string {
	header := fmt.Sprintf("UPCOMING EVENTS (next %d days)", days)
	if len(events) == 0 {
		return header + "\nNo upcoming events found.\n"
	}

	lines := []string{header}
	for i, event := range events {
		title := event.Name
		if title == "" {
			title = "Untitled Event"
		}

		location := "Online"
		if geo := event.Geo; geo != nil {
			switch {
			case geo.CityState != "":
				location = geo.CityState
			case geo.City != "":
				location = geo.City
			case geo.Description != "":
				location = geo.Description
			}
		}

		dateStr := "TBD"
		if event.StartAt != "" {
			if start, err := time.Parse(time.RFC3339, event.StartAt); err == nil {
				dateStr = start.UTC().Format("Jan 02, 2006 at 3:04 PM UTC")
			} else {
				dateStr = event.StartAt
			}
		}

		lines = append(lines, fmt.Sprintf("%d. %s — %s | %s", i+1, title, dateStr, location))
		if desc := preview(event.Description); desc != "" {
			lines = append(lines, "   "+desc)
		}
		if event.URL != "" {
			lines = append(lines, "   Register: "+event.URL)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
