package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"classdrop/internal/models"
)

func writeJSON(payload any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeResourceList(resources []models.Resource) error {
	if len(resources) == 0 {
		return writePlain("no files shared\n")
	}
	for _, resource := range resources {
		if err := writePlain("%s\n", formatResourceLine(resource)); err != nil {
			return err
		}
	}
	return nil
}

func writeResourceDetail(resource models.Resource) error {
	return writePlain("%s\n", formatResourceDetail(resource))
}

func formatResourceDetail(resource models.Resource) string {
	lines := []string{
		fmt.Sprintf("id: %s", resource.ID),
		fmt.Sprintf("name: %s", resource.DisplayName),
		fmt.Sprintf("size: %d", resource.SizeBytes),
		fmt.Sprintf("uploaded_by: %s", resource.UploadedBy),
		fmt.Sprintf("uploaded_at: %s", formatTime(resource.UploadedAt)),
	}
	if resource.Description != "" {
		lines = append(lines, fmt.Sprintf("description: %s", resource.Description))
	}
	if len(resource.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("tags: %s", strings.Join(resource.Tags, ", ")))
	}
	return strings.Join(lines, "\n")
}

func writeAuditEntries(entries []models.AuditEntry) error {
	if len(entries) == 0 {
		return writePlain("audit log is empty\n")
	}
	for _, entry := range entries {
		line := fmt.Sprintf("%6d  %s  %-8s %-8s %s", entry.Seq, formatTime(entry.Timestamp), entry.Action, entry.Username, entry.Target)
		if err := writePlain("%s\n", strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func formatResourceLine(resource models.Resource) string {
	return fmt.Sprintf("%s  %-30s %8d  %s  %s", resource.ID, resource.DisplayName, resource.SizeBytes, resource.UploadedBy, formatTime(resource.UploadedAt))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
