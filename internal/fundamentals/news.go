package fundamentals

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// NewsFetcher pulls headlines from a configurable set of RSS feeds and
// scores each by crude keyword polarity, grounded on the opense.ai
// datasource.News RSS fetch and HTML-cleaning.
type NewsFetcher struct {
	feedURLs []string
	parser   *gofeed.Parser
	cache    *ttlCache[NewsSentiment]
}

// NewNewsFetcher builds a NewsFetcher persisting to sentiment_cache.json
// under dir.
func NewNewsFetcher(feedURLs []string, dir string, ttl time.Duration) *NewsFetcher {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &NewsFetcher{
		feedURLs: feedURLs,
		parser:   gofeed.NewParser(),
		cache:    newTTLCache[NewsSentiment](filepath.Join(dir, "sentiment_cache.json"), ttl),
	}
}

// Fetch returns every cached sentiment record mentioning ticker, fetching
// fresh RSS items on a cold/expired cache entry.
func (n *NewsFetcher) Fetch(ctx context.Context, ticker string) ([]NewsSentiment, error) {
	if cached, ok := n.cache.Get(ticker); ok {
		return cached, nil
	}

	var matched []NewsSentiment
	keyword := strings.ToLower(ticker)
	for _, url := range n.feedURLs {
		items, err := n.fetchFeed(ctx, url)
		if err != nil {
			continue // one bad feed does not fail the whole fetch
		}
		for _, item := range items {
			if strings.Contains(strings.ToLower(item.Title+" "+item.Summary), keyword) {
				matched = append(matched, item)
			}
		}
	}

	n.cache.Set(ticker, matched)
	return matched, nil
}

func (n *NewsFetcher) fetchFeed(ctx context.Context, url string) ([]NewsSentiment, error) {
	feed, err := n.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fundamentals: parse RSS %s: %w", url, err)
	}

	out := make([]NewsSentiment, 0, len(feed.Items))
	for _, item := range feed.Items {
		headline := item.Title
		summary := cleanHTML(item.Description)
		s := NewsSentiment{
			Headline: headline,
			Source:   feed.Title,
			Score:    scoreSentiment(headline + " " + summary),
		}
		if item.PublishedParsed != nil {
			s.PublishedAt = *item.PublishedParsed
		}
		out = append(out, s)
	}
	return out, nil
}

// cleanHTML strips markup from an RSS description field.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

var positiveWords = []string{"beat", "surge", "rally", "upgrade", "growth", "record", "soar", "gain", "strong"}
var negativeWords = []string{"miss", "plunge", "downgrade", "slump", "loss", "lawsuit", "recall", "crash", "weak"}

// scoreSentiment is a crude keyword-polarity score in [-1, 1], not a
// machine-learning model: +1 per positive hit, -1 per negative hit,
// normalized by total hits.
func scoreSentiment(text string) float64 {
	lower := strings.ToLower(text)
	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}
