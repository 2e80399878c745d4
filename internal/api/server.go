package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/awardflow/awardflow/internal/award"
	"github.com/awardflow/awardflow/internal/config"
	"github.com/awardflow/awardflow/internal/soda"
)

// Fetcher retrieves raw contract-award rows from the data source.
type Fetcher interface {
	FetchAll(ctx context.Context, q soda.Query) ([]soda.RawRecord, error)
}

// Server exposes the aggregation pipeline over HTTP. It holds the
// current record snapshot in memory; a refresh replaces it wholesale,
// so a new fetch supersedes stale data by replacement.
type Server struct {
	Echo    *echo.Echo
	cfg     *config.Config
	fetcher Fetcher

	mu        sync.RWMutex
	records   []award.ContractRecord
	fetchedAt time.Time
}

func NewServer(cfg *config.Config, fetcher Fetcher) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	s := &Server{
		Echo:    e,
		cfg:     cfg,
		fetcher: fetcher,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")
	api.GET("/awards", s.handleListAwards)
	api.GET("/projections/sankey", s.handleSankey)
	api.GET("/projections/matrix", s.handleMatrix)
	api.GET("/stats", s.handleStats)
	api.GET("/options", s.handleOptions)
	api.POST("/refresh", s.handleRefresh)
}

// Start begins serving on the given port.
func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Snapshot returns the current record collection. Callers must treat it
// as read-only.
func (s *Server) Snapshot() []award.ContractRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records
}

// SetSnapshot replaces the working record collection.
func (s *Server) SetSnapshot(records []award.ContractRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.fetchedAt = time.Now().UTC()
}

// Refresh fetches a fresh record set and swaps it in. On failure the
// prior snapshot is left untouched.
func (s *Server) Refresh(ctx context.Context, q soda.Query) (int, error) {
	rows, err := s.fetcher.FetchAll(ctx, q)
	if err != nil {
		return 0, err
	}
	records := award.NormalizeAll(rows)
	s.SetSnapshot(records)
	return len(records), nil
}

// DefaultQuery builds the server-side fetch bounds from configuration.
func (s *Server) DefaultQuery() soda.Query {
	return soda.Query{
		StartDate: time.Now().UTC().AddDate(0, 0, -s.cfg.Dataset.LookbackDays),
		MinAmount: s.cfg.Dataset.MinAmount,
	}
}

func (s *Server) window() award.Window {
	return award.Window{
		MaxVendors:  s.cfg.Window.MaxVendors,
		MaxAgencies: s.cfg.Window.MaxAgencies,
		MaxLinks:    s.cfg.Window.MaxLinks,
	}
}

// parseFilterState reads the client-local filter refinements from query
// parameters. Date and amount bounds are fetch-time concerns and are not
// parsed here.
func parseFilterState(c echo.Context) award.FilterState {
	return award.FilterState{
		Query:    c.QueryParam("q"),
		Vendors:  splitCSV(c.QueryParam("vendors")),
		Agencies: splitCSV(c.QueryParam("agencies")),
		Sort:     award.ParseSortSpec(c.QueryParam("sort")),
	}
}

func (s *Server) handleListAwards(c echo.Context) error {
	state := parseFilterState(c)
	filtered := award.ApplyFilters(s.Snapshot(), state)

	limit := 20
	offset := 0
	if l, err := strconv.Atoi(c.QueryParam("limit")); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	if o, err := strconv.Atoi(c.QueryParam("offset")); err == nil && o >= 0 {
		offset = o
	}

	total := len(filtered)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"awards": filtered[offset:end],
	})
}

func (s *Server) handleSankey(c echo.Context) error {
	state := parseFilterState(c)
	filtered := award.ApplyFilters(s.Snapshot(), state)
	agg := award.Aggregate(filtered)
	return c.JSON(http.StatusOK, agg.Sankey(state.Sort, s.window()))
}

func (s *Server) handleMatrix(c echo.Context) error {
	state := parseFilterState(c)
	filtered := award.ApplyFilters(s.Snapshot(), state)
	agg := award.Aggregate(filtered)
	return c.JSON(http.StatusOK, agg.Matrix(state.Sort, s.window()))
}

func (s *Server) handleStats(c echo.Context) error {
	state := parseFilterState(c)
	filtered := award.ApplyFilters(s.Snapshot(), state)
	return c.JSON(http.StatusOK, award.Aggregate(filtered).Stats())
}

// handleOptions returns the distinct vendor and agency names in the
// current snapshot, for populating the filter dropdowns.
func (s *Server) handleOptions(c echo.Context) error {
	agg := award.Aggregate(s.Snapshot())
	nameAsc := award.SortSpec{Field: award.SortByName}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"vendors":  award.RankEntities(agg.VendorTotals(), nameAsc),
		"agencies": award.RankEntities(agg.AgencyTotals(), nameAsc),
	})
}

func (s *Server) handleRefresh(c echo.Context) error {
	q := s.DefaultQuery()
	if days, err := strconv.Atoi(c.QueryParam("days")); err == nil && days > 0 {
		q.StartDate = time.Now().UTC().AddDate(0, 0, -days)
	}
	if v, err := strconv.ParseFloat(c.QueryParam("min_amount"), 64); err == nil && v > 0 {
		q.MinAmount = v
	}
	if end := c.QueryParam("end_date"); end != "" {
		if t, err := time.Parse("2006-01-02", end); err == nil {
			q.EndDate = t
		}
	}

	count, err := s.Refresh(c.Request().Context(), q)
	if err != nil {
		c.Logger().Errorf("Refresh failed: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "data source fetch failed"})
	}

	s.mu.RLock()
	fetchedAt := s.fetchedAt
	s.mu.RUnlock()

	return c.JSON(http.StatusOK, map[string]interface{}{
		"job_id":     uuid.NewString(),
		"records":    count,
		"fetched_at": fetchedAt,
	})
}

// splitCSV splits a comma-separated query parameter into trimmed
// non-empty strings.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
