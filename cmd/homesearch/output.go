package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/fatih/color"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/ingestion"
	"github.com/poiesic/homesearch/search"
)

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	heading = color.New(color.FgCyan, color.Bold)
	faint   = color.New(color.Faint)
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, r *ingestion.LoadReport) {
	fmt.Fprintf(w, "Read %d rows, loaded %d, repaired %d\n", r.Read, r.Loaded, r.Repaired)
	if n := r.TotalDropped(); n > 0 {
		warning.Fprintf(w, "Dropped %d rows:\n", n)
		for _, reason := range r.Reasons() {
			fmt.Fprintf(w, "  %-18s %d\n", reason, r.Dropped[reason])
		}
	}
	if r.FailedChunks > 0 {
		warning.Fprintf(w, "Failed to store %d chunks (%d records)\n", r.FailedChunks, r.FailedRecords)
	}
}

func printResponse(w io.Writer, resp *search.Response) {
	faint.Fprintf(w, "request %s", resp.RequestID)
	if resp.Extracted {
		faint.Fprint(w, " (natural language applied)")
	}
	fmt.Fprintln(w)
	for _, fe := range resp.Rejected {
		warning.Fprintf(w, "ignored %s: %v\n", fe.Param, fe.Err)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No matching listings.")
		return
	}
	for i, r := range resp.Results {
		printProperty(w, i+1, r.Property, &r.Metadata)
	}
}

func printProperty(w io.Writer, rank int, p *core.PropertyRecord, meta *search.Metadata) {
	heading.Fprintf(w, "%2d. %s", rank, p.ID)
	if meta != nil {
		fmt.Fprintf(w, "  score %.4f", meta.Score)
	}
	fmt.Fprintln(w)

	var facts []string
	if p.HomeType != "" {
		facts = append(facts, p.HomeType)
	}
	if place := strings.Trim(strings.Join([]string{p.City, p.State}, ", "), ", "); place != "" {
		facts = append(facts, place)
	}
	if p.Price != nil {
		facts = append(facts, fmt.Sprintf("$%.0f", *p.Price))
	}
	if p.Bedrooms != nil || p.Bathrooms != nil {
		facts = append(facts, fmt.Sprintf("%sbd/%sba", optInt(p.Bedrooms), optInt(p.Bathrooms)))
	}
	if p.LivingArea != nil {
		facts = append(facts, fmt.Sprintf("%d sqft", *p.LivingArea))
	}
	if p.Event != "" {
		facts = append(facts, p.Event)
	}
	fmt.Fprintf(w, "    %s\n", strings.Join(facts, " | "))
	if p.Description != "" {
		fmt.Fprintf(w, "    %s\n", truncate(p.Description, 120))
	}

	if meta != nil && len(meta.PartialScores) > 0 {
		names := slices.Sorted(maps.Keys(meta.PartialScores))
		parts := make([]string, 0, len(names))
		for _, n := range names {
			parts = append(parts, fmt.Sprintf("%s=%.3f", n, meta.PartialScores[n]))
		}
		faint.Fprintf(w, "    %s\n", strings.Join(parts, " "))
	}
}

func optInt(v *int64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprint(*v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
