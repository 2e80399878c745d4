// Package soda is a minimal client for Socrata Open Data API (SODA)
// resource endpoints, tuned for the contract-awards dataset the
// dashboard reads from.
package soda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// selectColumns is the fixed $select list; keep in sync with RawRecord.
var selectColumns = []string{
	"request_id",
	"vendor_name",
	"agency_name",
	"contract_amount",
	"short_title",
	"start_date",
	"end_date",
	"category_description",
	"selection_method_description",
	"type_of_notice_description",
	"section_name",
	"other_info_1",
	"other_info_2",
	"other_info_3",
}

// RawRecord is one untyped row as served by the API. Every field arrives
// as a string; numeric and date coercion happens in the award package.
type RawRecord struct {
	RequestID                  string `json:"request_id"`
	VendorName                 string `json:"vendor_name"`
	AgencyName                 string `json:"agency_name"`
	ContractAmount             string `json:"contract_amount"`
	ShortTitle                 string `json:"short_title"`
	StartDate                  string `json:"start_date"`
	EndDate                    string `json:"end_date"`
	CategoryDescription        string `json:"category_description"`
	SelectionMethodDescription string `json:"selection_method_description"`
	TypeOfNoticeDescription    string `json:"type_of_notice_description"`
	SectionName                string `json:"section_name"`
	OtherInfo1                 string `json:"other_info_1"`
	OtherInfo2                 string `json:"other_info_2"`
	OtherInfo3                 string `json:"other_info_3"`
}

// Query carries the server-side bounds of a fetch. Date-range and
// minimum-amount narrowing happen here, at the data-source boundary;
// everything finer is client-side filtering.
type Query struct {
	StartDate time.Time
	EndDate   time.Time // zero value means no upper bound
	MinAmount float64
}

// Options configures a Client beyond its dataset coordinates.
type Options struct {
	AppToken     string
	PageSize     int
	MaxRecords   int
	Timeout      time.Duration
	RateLimitRPS float64
	CacheTTL     time.Duration
}

// Client fetches contract-award rows with $limit/$offset pagination,
// a request rate limit, and a short-lived response cache so repeated
// dashboard refreshes don't re-crawl the dataset.
type Client struct {
	client     *http.Client
	baseURL    string
	appToken   string
	pageSize   int
	maxRecords int
	limiter    *rate.Limiter
	cache      *gocache.Cache
}

const sodaTimeLayout = "2006-01-02T15:04:05"

// NewClient builds a client for one resource endpoint, e.g.
// NewClient("data.cityofnewyork.us", "qyyg-4tf5", opts).
func NewClient(domain, resourceID string, opts Options) *Client {
	if opts.PageSize <= 0 {
		opts.PageSize = 10000
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = 100000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 2.0
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	return &Client{
		client:     &http.Client{Timeout: opts.Timeout},
		baseURL:    fmt.Sprintf("https://%s/resource/%s.json", domain, resourceID),
		appToken:   opts.AppToken,
		pageSize:   opts.PageSize,
		maxRecords: opts.MaxRecords,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimitRPS), 1),
		cache:      gocache.New(opts.CacheTTL, 10*time.Minute),
	}
}

// SetBaseURL overrides the resource URL. Used by tests and by deployments
// that front the dataset with a proxy.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// FetchAll pages through the resource until a short page is returned or
// the hard record cap is reached. Any page failure fails the whole fetch;
// no partial data is returned and no retries are attempted.
func (c *Client) FetchAll(ctx context.Context, q Query) ([]RawRecord, error) {
	key := c.cacheKey(q)
	if hit, ok := c.cache.Get(key); ok {
		return hit.([]RawRecord), nil
	}

	var all []RawRecord
	offset := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		page, err := c.fetchPage(ctx, q, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(all) >= c.maxRecords {
			// Deliberate silent truncation to bound memory, not a failure.
			log.Printf("[SODA] Hit record cap (%d), truncating result", c.maxRecords)
			all = all[:c.maxRecords]
			break
		}
		if len(page) < c.pageSize {
			break
		}
		offset += len(page)
	}

	log.Printf("[SODA] Fetched %d rows", len(all))
	c.cache.Set(key, all, gocache.DefaultExpiration)
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, q Query, offset int) ([]RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+c.queryValues(q, offset).Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.appToken != "" {
		req.Header.Set("X-App-Token", c.appToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page []RawRecord
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return page, nil
}

func (c *Client) queryValues(q Query, offset int) url.Values {
	where := []string{
		fmt.Sprintf("start_date >= '%s'", q.StartDate.Format(sodaTimeLayout)),
	}
	if !q.EndDate.IsZero() {
		where = append(where, fmt.Sprintf("start_date <= '%s'", q.EndDate.Format(sodaTimeLayout)))
	}
	where = append(where,
		fmt.Sprintf("contract_amount > %s", strconv.FormatFloat(q.MinAmount, 'f', -1, 64)),
		"vendor_name IS NOT NULL",
	)

	v := url.Values{}
	v.Set("$where", strings.Join(where, " AND "))
	v.Set("$select", strings.Join(selectColumns, ","))
	v.Set("$order", "contract_amount DESC")
	v.Set("$limit", strconv.Itoa(c.pageSize))
	v.Set("$offset", strconv.Itoa(offset))
	return v
}

// cacheKey identifies a query independent of pagination position.
func (c *Client) cacheKey(q Query) string {
	return c.queryValues(q, 0).Get("$where")
}
