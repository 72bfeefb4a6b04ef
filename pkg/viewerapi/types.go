package viewerapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Defaults used when a caller leaves paging or the time window unset.
const (
	DefaultLimit = 50
	DefaultHours = 24
)

// Dashboard is the aggregate returned by /api/dashboard. Every section is optional.
type Dashboard struct {
	Lifelog          *LifelogStats `json:"lifelog,omitempty"`
	Browser          *BrowserStats `json:"browser,omitempty"`
	Info             *InfoStats    `json:"info,omitempty"`
	RecentActivities []Activity    `json:"recent_activities,omitempty"`
	RecentNews       []NewsItem    `json:"recent_news,omitempty"`
}

// LifelogStats summarizes today's computer activity. Durations are in seconds.
type LifelogStats struct {
	ActiveDuration float64 `json:"active_duration"`
	AppCount       int     `json:"app_count"`
}

// BrowserStats summarizes today's browsing.
type BrowserStats struct {
	VisitCount int     `json:"visit_count"`
	TotalTime  float64 `json:"total_time"`
}

// InfoStats counts collected information items.
type InfoStats struct {
	NewsCount   int `json:"news_count"`
	ReportCount int `json:"report_count"`
}

// Activity is a single entry of the recent activity timeline.
type Activity struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

// LifelogSummary is returned by /api/lifelog/summary.
type LifelogSummary struct {
	TopApps        []AppUsage `json:"top_apps,omitempty"`
	ActiveDuration float64    `json:"active_duration"`
	IdleDuration   float64    `json:"idle_duration"`
	AppCount       int        `json:"app_count"`
}

// AppUsage is the time spent in one application.
type AppUsage struct {
	AppName  string  `json:"app_name"`
	Duration float64 `json:"duration"`
}

// BrowserHistoryItem is one visited page.
type BrowserHistoryItem struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	VisitTime string `json:"visit_time"`
}

// NewsItem is a collected article. Search results and RSS entries share this shape.
type NewsItem struct {
	Title       string `json:"title"`
	Source      string `json:"source,omitempty"`
	URL         string `json:"url,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	CollectedAt string `json:"collected_at,omitempty"`
}

// Timestamp returns the publication time, falling back to the collection time.
func (n NewsItem) Timestamp() string {
	if n.PublishedAt != "" {
		return n.PublishedAt
	}
	return n.CollectedAt
}

// ReportItem is a generated report. Content is only filled by Report.
type ReportItem struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Title     string          `json:"title"`
	Category  string          `json:"category,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
	Content   string          `json:"content,omitempty"`
}

// Key returns the report id as a string, whether the service sent a number or a string.
func (r ReportItem) Key() string {
	return strings.Trim(string(r.ID), `"`)
}

// Page selects a window of a list endpoint. Zero values mean limit 50, offset 0.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) values() url.Values {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	offset := max(p.Offset, 0)
	v := url.Values{}
	v.Set("limit", strconv.Itoa(limit))
	v.Set("offset", strconv.Itoa(offset))
	return v
}

func dateValues(date string) url.Values {
	if date == "" {
		return nil
	}
	return url.Values{"date": {date}}
}

func hoursValues(hours int) url.Values {
	if hours <= 0 {
		hours = DefaultHours
	}
	return url.Values{"hours": {strconv.Itoa(hours)}}
}

// Dashboard fetches the aggregate summary.
func (c *Client) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	if err := c.Request(ctx, "/api/dashboard", nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// LifelogSummary fetches the activity summary for date (YYYY-MM-DD), or today when empty.
func (c *Client) LifelogSummary(ctx context.Context, date string) (*LifelogSummary, error) {
	var s LifelogSummary
	if err := c.Request(ctx, "/api/lifelog/summary", dateValues(date), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// LifelogHourly fetches per-hour activity for date.
func (c *Client) LifelogHourly(ctx context.Context, date string) (json.RawMessage, error) {
	return c.raw(ctx, "/api/lifelog/hourly", dateValues(date))
}

// LifelogTimeline fetches the activity timeline of the last hours.
func (c *Client) LifelogTimeline(ctx context.Context, hours int) (json.RawMessage, error) {
	return c.raw(ctx, "/api/lifelog/timeline", hoursValues(hours))
}

// LifelogHealth fetches health metrics of the last hours.
func (c *Client) LifelogHealth(ctx context.Context, hours int) (json.RawMessage, error) {
	return c.raw(ctx, "/api/lifelog/health", hoursValues(hours))
}

// BrowserRecent fetches recently visited pages.
func (c *Client) BrowserRecent(ctx context.Context, p Page) ([]BrowserHistoryItem, error) {
	var items []BrowserHistoryItem
	if err := c.Request(ctx, "/api/browser/recent", p.values(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// BrowserStats fetches browsing statistics for date.
func (c *Client) BrowserStats(ctx context.Context, date string) (json.RawMessage, error) {
	return c.raw(ctx, "/api/browser/stats", dateValues(date))
}

// News fetches collected news.
func (c *Client) News(ctx context.Context, p Page) ([]NewsItem, error) {
	return c.newsList(ctx, "/api/info/news", p)
}

// RSS fetches collected RSS entries.
func (c *Client) RSS(ctx context.Context, p Page) ([]NewsItem, error) {
	return c.newsList(ctx, "/api/info/rss", p)
}

// SearchResults fetches collected search results.
func (c *Client) SearchResults(ctx context.Context, p Page) ([]NewsItem, error) {
	return c.newsList(ctx, "/api/info/search", p)
}

// Reports fetches the report list.
func (c *Client) Reports(ctx context.Context, p Page) ([]ReportItem, error) {
	var items []ReportItem
	if err := c.Request(ctx, "/api/info/reports", p.values(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Report fetches a single report including its content.
func (c *Client) Report(ctx context.Context, id string) (*ReportItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("report id required")
	}
	var r ReportItem
	if err := c.Request(ctx, "/api/info/reports/"+url.PathEscape(id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) newsList(ctx context.Context, path string, p Page) ([]NewsItem, error) {
	var items []NewsItem
	if err := c.Request(ctx, path, p.values(), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) raw(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var payload json.RawMessage
	if err := c.Request(ctx, path, query, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
