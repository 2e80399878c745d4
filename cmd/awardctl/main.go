// awardctl fetches contract awards and prints the top vendor and agency
// rollups as tables, for eyeballing the data without a browser.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"

	"github.com/awardflow/awardflow/internal/award"
	"github.com/awardflow/awardflow/internal/config"
	"github.com/awardflow/awardflow/internal/soda"
)

func main() {
	configPath := flag.String("config", os.Getenv("AWARDFLOW_CONFIG"), "path to config file")
	days := flag.Int("days", 0, "lookback window in days (default from config)")
	minAmount := flag.Float64("min", 0, "minimum contract amount (default from config)")
	query := flag.String("q", "", "free-text search query")
	sortBy := flag.String("sort", "amount-desc", "sort spec (amount|count|name)-(asc|desc)")
	top := flag.Int("top", 15, "rows per table")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *days <= 0 {
		*days = cfg.Dataset.LookbackDays
	}
	if *minAmount <= 0 {
		*minAmount = cfg.Dataset.MinAmount
	}

	client := soda.NewClient(cfg.Dataset.Domain, cfg.Dataset.ResourceID, soda.Options{
		AppToken:     cfg.Dataset.AppToken,
		PageSize:     cfg.Fetch.PageSize,
		MaxRecords:   cfg.Fetch.MaxRecords,
		Timeout:      time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
		RateLimitRPS: cfg.Fetch.RateLimitRPS,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rows, err := client.FetchAll(ctx, soda.Query{
		StartDate: time.Now().UTC().AddDate(0, 0, -*days),
		MinAmount: *minAmount,
	})
	if err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}

	state := award.FilterState{Query: *query, Sort: award.ParseSortSpec(*sortBy)}
	filtered := award.ApplyFilters(award.NormalizeAll(rows), state)
	agg := award.Aggregate(filtered)

	stats := agg.Stats()
	fmt.Printf("Contracts: %d   Vendors: %d   Agencies: %d   Total: $%.2f   Avg: $%.2f\n\n",
		stats.ContractCount, stats.VendorCount, stats.AgencyCount, stats.TotalAmount, stats.AverageAmount)

	printTotals("Top Vendors", award.RankEntities(agg.VendorTotals(), state.Sort), *top)
	printTotals("Top Agencies", award.RankEntities(agg.AgencyTotals(), state.Sort), *top)
}

func printTotals(title string, totals []award.EntityTotal, top int) {
	if top > 0 && len(totals) > top {
		totals = totals[:top]
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Name", "Amount", "Contracts"})
	for _, e := range totals {
		t.AppendRow(table.Row{e.Name, fmt.Sprintf("$%.2f", e.Amount), e.Count})
	}
	t.Render()
	fmt.Println()
}
