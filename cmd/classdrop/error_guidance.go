package main

import (
	"errors"

	"classdrop/internal/share"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	switch {
	case errors.Is(err, share.ErrInvalidCredentials):
		lines = append(lines, "hint: log in with: classdrop login <username>")
	case errors.Is(err, share.ErrPermissionDenied):
		lines = append(lines, "hint: this operation is restricted to another role.")
	case errors.Is(err, share.ErrStorage):
		lines = append(lines, "hint: check the database and blob store paths in your config.")
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
