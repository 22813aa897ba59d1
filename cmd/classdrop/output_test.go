package main

import (
	"strings"
	"testing"
	"time"

	"classdrop/internal/models"
)

func TestFormatResourceDetail(t *testing.T) {
	resource := models.Resource{
		ID:          "rs-ab12",
		DisplayName: "syllabus.pdf",
		SizeBytes:   42,
		UploadedBy:  "ms.frizzle",
		UploadedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Description: "fall syllabus",
		Tags:        []string{"science", "week-1"},
	}
	want := strings.Join([]string{
		"id: rs-ab12",
		"name: syllabus.pdf",
		"size: 42",
		"uploaded_by: ms.frizzle",
		"uploaded_at: 2026-03-01T12:00:00Z",
		"description: fall syllabus",
		"tags: science, week-1",
	}, "\n")
	if got := formatResourceDetail(resource); got != want {
		t.Fatalf("detail = %q, want %q", got, want)
	}
}

func TestFormatResourceDetailOmitsEmptyFields(t *testing.T) {
	resource := models.Resource{
		ID:          "rs-cd34",
		DisplayName: "notes.txt",
		UploadedBy:  "ms.frizzle",
		UploadedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	got := formatResourceDetail(resource)
	if strings.Contains(got, "description:") || strings.Contains(got, "tags:") {
		t.Fatalf("empty fields should be omitted, got %q", got)
	}
}
