package services

import (
	"bytes"
	"strings"
	"testing"

	"repairer-discovery/models"
)

func processed(name, city string, src models.Source, method models.ClassificationMethod, acc models.Accuracy, conf float64, quality int) *models.ProcessedRepairer {
	p := models.NewProcessedRepairer(
		models.RawListing{Name: name, City: city, Source: src},
		models.Classification{IsRepairer: true, Confidence: conf, Method: method, QualityScore: quality},
		models.GeocodingResult{Accuracy: acc},
	)
	return &p
}

func sampleBatch() []*models.ProcessedRepairer {
	return []*models.ProcessedRepairer{
		processed("Mobile Fix", "Paris", models.SourceDirectory, models.MethodAI, models.AccuracyPrecise, 0.9, 80),
		processed("Écran Express", "Paris", models.SourceMap, models.MethodFallback, models.AccuracyApproximate, 0.6, 55),
		processed("Fix Phone", "Lyon", models.SourceMap, models.MethodAI, models.AccuracyFallback, 0.8, 70),
		processed("Répar Smartphone", "Lyon", models.SourceDirectory, models.MethodFallback, models.AccuracyFallback, 0.75, 40),
		processed("iDoc", "Lille", models.SourceMap, models.MethodAI, models.AccuracyPrecise, 0.95, 90),
		processed("Batterie Plus", "", models.SourceMap, models.MethodAI, models.AccuracyPrecise, 0.7, 20),
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleBatch())
	if r.TotalRepairers != 6 {
		t.Errorf("TotalRepairers: got %d, want 6", r.TotalRepairers)
	}
	if r.BySource[models.SourceMap] != 4 || r.BySource[models.SourceDirectory] != 2 {
		t.Errorf("BySource: got %v", r.BySource)
	}
	if r.ByMethod[models.MethodFallback] != 2 {
		t.Errorf("ByMethod fallback: got %d, want 2", r.ByMethod[models.MethodFallback])
	}
	if r.ByAccuracy[models.AccuracyFallback] != 2 {
		t.Errorf("ByAccuracy fallback: got %d, want 2", r.ByAccuracy[models.AccuracyFallback])
	}
	// fallback method or fallback accuracy
	if r.DegradedRecords != 3 {
		t.Errorf("DegradedRecords: got %d, want 3", r.DegradedRecords)
	}
}

func TestInsightAverages(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleBatch())
	if r.AverageConfidence != 0.78 {
		t.Errorf("AverageConfidence: got %.2f, want 0.78", r.AverageConfidence)
	}
	if r.AverageQuality != 59.17 {
		t.Errorf("AverageQuality: got %.2f, want 59.17", r.AverageQuality)
	}
}

func TestInsightTopQuality(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	batch := sampleBatch()
	r := svc.Generate(batch)
	if len(r.TopQuality) != 5 {
		t.Fatalf("TopQuality len: got %d, want 5", len(r.TopQuality))
	}
	if r.TopQuality[0].Name != "iDoc" {
		t.Errorf("TopQuality[0]: got %q, want iDoc", r.TopQuality[0].Name)
	}
	if batch[0].Name != "Mobile Fix" {
		t.Errorf("Generate reordered its input")
	}
}

func TestInsightCityGrouping(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(sampleBatch())
	if r.ByCity["Paris"] != 2 || r.ByCity["Lyon"] != 2 || r.ByCity["Lille"] != 1 {
		t.Errorf("ByCity: got %v", r.ByCity)
	}
	if _, ok := r.ByCity[""]; ok {
		t.Errorf("empty city should not be grouped")
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	r := svc.Generate(nil)
	if r.TotalRepairers != 0 {
		t.Errorf("expected 0 total repairers for empty input")
	}

	var buf bytes.Buffer
	svc.Print(&buf, r)
	if !strings.Contains(buf.String(), "No repairers accepted") {
		t.Errorf("empty report should say so, got:\n%s", buf.String())
	}
}

func TestInsightPrint(t *testing.T) {
	svc := NewInsightService(newTestLogger())
	var buf bytes.Buffer
	svc.Print(&buf, svc.Generate(sampleBatch()))

	out := buf.String()
	for _, want := range []string{"REPAIRER DISCOVERY REPORT", "iDoc", "Paris", "Department fallback"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
