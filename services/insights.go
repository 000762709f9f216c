package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"repairer-discovery/models"
	"repairer-discovery/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate summarises one processed batch.
func (s *InsightService) Generate(batch []*models.ProcessedRepairer) *models.InsightReport {
	report := &models.InsightReport{
		BySource:   make(map[models.Source]int),
		ByMethod:   make(map[models.ClassificationMethod]int),
		ByAccuracy: make(map[models.Accuracy]int),
		ByCity:     make(map[string]int),
	}

	if len(batch) == 0 {
		return report
	}

	report.TotalRepairers = len(batch)

	var totalConf, totalQuality float64
	for _, p := range batch {
		report.BySource[p.Source]++
		report.ByMethod[p.Method]++
		report.ByAccuracy[p.Accuracy]++
		if p.City != "" {
			report.ByCity[p.City]++
		}
		if p.Degraded() {
			report.DegradedRecords++
		}
		totalConf += p.ConfidenceScore
		totalQuality += float64(p.QualityScore)
	}
	report.AverageConfidence = round2(totalConf / float64(len(batch)))
	report.AverageQuality = round2(totalQuality / float64(len(batch)))

	// Top 5 by quality score
	ranked := append([]*models.ProcessedRepairer(nil), batch...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].QualityScore > ranked[j].QualityScore
	})
	if len(ranked) > 5 {
		report.TopQuality = ranked[:5]
	} else {
		report.TopQuality = ranked
	}

	s.logger.Debug("[insights] Report built for %d repairers", report.TotalRepairers)
	return report
}

// Print renders the report for a terminal.
func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🔧 REPAIRER DISCOVERY REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Repairers accepted     : \033[1m%d\033[0m\n", r.TotalRepairers)
	fmt.Fprintf(w, "  From directory / map   : \033[1m%d / %d\033[0m\n",
		r.BySource[models.SourceDirectory], r.BySource[models.SourceMap])
	fmt.Fprintf(w, "  With fallback data     : \033[1;31m%d\033[0m\n", r.DegradedRecords)
	fmt.Fprintln(w)

	// Enrichment
	fmt.Fprintf(w, "\033[1;33m  Enrichment\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalRepairers > 0 {
		fmt.Fprintf(w, "  Classified by AI / keywords : %d / %d\n",
			r.ByMethod[models.MethodAI], r.ByMethod[models.MethodFallback])
		fmt.Fprintf(w, "  Geocoded precise / approx.  : %d / %d\n",
			r.ByAccuracy[models.AccuracyPrecise], r.ByAccuracy[models.AccuracyApproximate])
		fmt.Fprintf(w, "  Department fallback         : %d\n", r.ByAccuracy[models.AccuracyFallback])
		fmt.Fprintf(w, "  Average confidence          : \033[1;32m%.2f\033[0m\n", r.AverageConfidence)
		fmt.Fprintf(w, "  Average quality score       : \033[1;32m%.2f\033[0m\n", r.AverageQuality)
	} else {
		fmt.Fprintf(w, "  No repairers accepted\n")
	}
	fmt.Fprintln(w)

	// ── TOP 5 BY QUALITY ─────────────────────────────────────────────────
	fmt.Fprintf(w, "\033[1;33m  Top 5 by Quality Score\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TopQuality) == 0 {
		fmt.Fprintf(w, "  No repairers found\n")
	} else {
		for i, p := range r.TopQuality {
			name := truncate(p.Name, 38)
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%3d\033[0m (%s)\n",
				i+1, name, p.QualityScore, p.Accuracy)
		}
	}
	fmt.Fprintln(w)

	// Repairers by City
	fmt.Fprintf(w, "\033[1;33m  Repairers by City\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ByCity) == 0 {
		fmt.Fprintf(w, "  No city data\n")
	} else {
		type cityCount struct {
			city  string
			count int
		}
		var cities []cityCount
		for city, cnt := range r.ByCity {
			cities = append(cities, cityCount{city, cnt})
		}
		sort.Slice(cities, func(i, j int) bool {
			if cities[i].count == cities[j].count {
				return cities[i].city < cities[j].city
			}
			return cities[i].count > cities[j].count
		})
		for _, cc := range cities {
			bar := strings.Repeat("█", cc.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(cc.city, 28), bar, cc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
