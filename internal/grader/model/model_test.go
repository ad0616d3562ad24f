package model_test

import (
	"testing"

	"bugdojo/internal/grader/model"
)

func TestNewGradeReportAggregates(t *testing.T) {
	outcomes := []model.CaseOutcome{
		{Name: "example_1", OK: true, Actual: "1 2 3"},
		{Name: "hidden_1", OK: false, Actual: "3 2 1"},
		{Name: "hidden_2", OK: false, Error: "timeout: time limit exceeded (2000ms)"},
	}
	report := model.NewGradeReport("sort_asc", outcomes)

	if report.Pass {
		t.Fatal("report with failures must not pass")
	}
	if report.Total != 3 || report.FailedCount != 2 {
		t.Fatalf("total = %d, failed = %d", report.Total, report.FailedCount)
	}
	if report.ValidatorName != "sort_asc" {
		t.Errorf("validator = %q", report.ValidatorName)
	}
	if len(report.Outcomes) != 3 || report.Outcomes[0].Name != "example_1" {
		t.Fatalf("outcomes = %+v", report.Outcomes)
	}
}

func TestNewGradeReportAllPassing(t *testing.T) {
	report := model.NewGradeReport("sum", []model.CaseOutcome{
		{Name: "example_1", OK: true},
		{Name: "hidden_1", OK: true},
	})
	if !report.Pass || report.FailedCount != 0 {
		t.Fatalf("report = %+v", report)
	}
}

func TestNewGradeReportEmpty(t *testing.T) {
	report := model.NewGradeReport("sort_asc", nil)
	if !report.Pass || report.Total != 0 {
		t.Fatalf("report = %+v", report)
	}
}
