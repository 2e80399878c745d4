package award

import (
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/awardflow/awardflow/internal/soda"
)

// Labels substituted when the source row omits a party name, so every
// record lands in a nameable aggregation bucket.
const (
	UnknownVendor = "Unknown Vendor"
	UnknownAgency = "Unknown Agency"
)

// ContractRecord is one awarded contract, normalized from a raw API row.
// Created once per fetch and treated as immutable afterward.
type ContractRecord struct {
	RequestID       string     `json:"request_id,omitempty"`
	VendorName      string     `json:"vendor_name"`
	AgencyName      string     `json:"agency_name"`
	Amount          float64    `json:"contract_amount"`
	ShortTitle      string     `json:"short_title,omitempty"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	Category        string     `json:"category,omitempty"`
	SelectionMethod string     `json:"selection_method,omitempty"`
	NoticeType      string     `json:"notice_type,omitempty"`
	Section         string     `json:"section,omitempty"`
	AdditionalInfo  string     `json:"additional_info,omitempty"`
}

// textPolicy strips any markup that rides along in free-text columns;
// the dashboard renders these values verbatim in tooltips.
var textPolicy = bluemonday.StrictPolicy()

// FromRaw converts a raw API row into a canonical ContractRecord.
// It is a pure transform and never fails: unparseable amounts become 0
// and missing names get the Unknown substitutes.
func FromRaw(raw soda.RawRecord) ContractRecord {
	rec := ContractRecord{
		RequestID:       cleanText(raw.RequestID),
		VendorName:      cleanText(raw.VendorName),
		AgencyName:      cleanText(raw.AgencyName),
		Amount:          parseAmount(raw.ContractAmount),
		ShortTitle:      cleanText(raw.ShortTitle),
		Category:        cleanText(raw.CategoryDescription),
		SelectionMethod: cleanText(raw.SelectionMethodDescription),
		NoticeType:      cleanText(raw.TypeOfNoticeDescription),
		Section:         cleanText(raw.SectionName),
	}

	if rec.VendorName == "" {
		rec.VendorName = UnknownVendor
	}
	if rec.AgencyName == "" {
		rec.AgencyName = UnknownAgency
	}

	rec.StartDate = parseDate(raw.StartDate)
	rec.EndDate = parseDate(raw.EndDate)

	rec.AdditionalInfo = joinInfo(
		cleanText(raw.OtherInfo1),
		cleanText(raw.OtherInfo2),
		cleanText(raw.OtherInfo3),
	)

	return rec
}

// NormalizeAll converts a fetched page set into records, preserving order.
func NormalizeAll(rows []soda.RawRecord) []ContractRecord {
	records := make([]ContractRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, FromRaw(row))
	}
	return records
}

// cleanText sanitizes markup and collapses whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(textPolicy.Sanitize(s)), " ")
}

// parseAmount coerces a source amount string to a non-negative float.
// Socrata serves numerics as strings, sometimes with currency formatting.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), ",", "")
	val, err := strconv.ParseFloat(s, 64)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

var dateLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate parses a Socrata floating timestamp. An absent or malformed
// value yields nil, not an error.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// joinInfo builds the derived additional_info field: non-empty parts
// joined with a literal " | " separator.
func joinInfo(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}
