package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nearnio/internal/config"
	"nearnio/internal/models"
)

// ErrRateLimited marks an upstream 429; the run aborts and the next scheduled
// run retries from the same cursor.
var ErrRateLimited = errors.New("rate limited by listing API")

// Client pulls the full current open set from the Nearn listing API.
// The source has no pagination; one GET returns everything.
type Client struct {
	listingURL string
	httpClient *http.Client
}

func NewClient(cfg config.UpstreamConfig) *Client {
	return &Client{
		listingURL: cfg.ListingURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// rawListing mirrors the upstream wire format.
type rawListing struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	RewardAmount *float64 `json:"rewardAmount"`
	Token        string   `json:"token"`
	Deadline     string   `json:"deadline"`
	Type         string   `json:"type"`
	Status       string   `json:"status"`
	Slug         string   `json:"slug"`
	Count        struct {
		Comments   int `json:"Comments"`
		Submission int `json:"Submission"`
	} `json:"_count"`
	Sponsor struct {
		Name       string `json:"name"`
		Slug       string `json:"slug"`
		IsVerified bool   `json:"isVerified"`
	} `json:"sponsor"`
}

// FetchListings performs the single catalog GET and maps the payload into
// domain listings. Any failure here is source-level: the caller aborts the
// sync run without advancing its checkpoint.
func (c *Client) FetchListings(ctx context.Context) ([]*models.Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build listing request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing API returned status %d", resp.StatusCode)
	}

	var raw []rawListing
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode listings: %w", err)
	}

	listings := make([]*models.Listing, 0, len(raw))
	for _, r := range raw {
		listing, err := r.toModel()
		if err != nil {
			// Malformed single records are dropped, not fatal.
			continue
		}
		listings = append(listings, listing)
	}

	return listings, nil
}

func (r rawListing) toModel() (*models.Listing, error) {
	if r.Slug == "" {
		return nil, errors.New("listing without slug")
	}

	deadline, err := time.Parse(time.RFC3339, r.Deadline)
	if err != nil {
		return nil, fmt.Errorf("parse deadline for %s: %w", r.Slug, err)
	}

	id := r.ID
	if id == "" {
		id = r.Slug
	}

	return &models.Listing{
		ID:              id,
		Slug:            r.Slug,
		Title:           r.Title,
		RewardAmount:    r.RewardAmount,
		Token:           strings.ToUpper(r.Token),
		Deadline:        deadline,
		Type:            r.Type,
		Status:          r.Status,
		Category:        CategoryForTitle(r.Title),
		SponsorName:     r.Sponsor.Name,
		SponsorSlug:     r.Sponsor.Slug,
		SponsorVerified: r.Sponsor.IsVerified,
		SubmissionCount: r.Count.Submission,
		CommentsCount:   r.Count.Comments,
	}, nil
}

// CategoryForTitle maps a listing onto a coarse category from title keywords.
// The upstream record carries no category field of its own.
func CategoryForTitle(title string) string {
	lower := strings.ToLower(title)

	switch {
	case containsAny(lower, "develop", "smart contract", "sdk", "api", "bug", "integrat", "bot", "dapp", "protocol", "code"):
		return models.CategoryDevelopment
	case containsAny(lower, "design", "ui", "ux", "logo", "brand", "illustrat"):
		return models.CategoryDesign
	case containsAny(lower, "write", "writing", "article", "blog", "thread", "video", "content", "tutorial", "translat"):
		return models.CategoryContent
	default:
		return models.CategoryOther
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
