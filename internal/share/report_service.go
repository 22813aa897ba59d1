package share

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"classdrop/internal/models"
	"classdrop/internal/policy"
	"classdrop/internal/store"
)

// UserActivity aggregates one user's audit entries.
type UserActivity struct {
	Username string
	Role     models.Role
	Counts   map[models.Action]int
	LastSeen time.Time
}

// Total returns the user's entry count across all actions.
func (u UserActivity) Total() int {
	total := 0
	for _, n := range u.Counts {
		total += n
	}
	return total
}

// ReportService builds per-user activity summaries from the audit log.
type ReportService struct {
	audit store.AuditStore
}

// NewReportService constructs a ReportService.
func NewReportService(audit store.AuditStore) *ReportService {
	return &ReportService{audit: audit}
}

// Report summarizes the live audit log per user. The read is recorded as
// a VIEW entry.
func (s *ReportService) Report(ctx context.Context, session *models.Session, now time.Time) ([]UserActivity, error) {
	if err := requireSession(session, policy.OpViewLog); err != nil {
		return nil, err
	}
	entries, err := s.audit.ReadAudit(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	view := models.AuditEntry{Timestamp: now.UTC(), Username: session.Username, Role: session.Role, Action: models.ActionView, Target: "audit_report"}
	if err := s.audit.AppendAudit(ctx, &view); err != nil {
		return nil, storageErr(err)
	}
	return Summarize(entries), nil
}

// ExportCSV writes the activity report as CSV. Column order is fixed so
// exports diff cleanly across runs.
func (s *ReportService) ExportCSV(ctx context.Context, session *models.Session, w io.Writer, now time.Time) error {
	report, err := s.Report(ctx, session, now)
	if err != nil {
		return err
	}
	return WriteCSV(w, report)
}

// Summarize folds audit entries into per-user activity, sorted by
// username. It is a pure function over the input slice.
func Summarize(entries []models.AuditEntry) []UserActivity {
	byUser := map[string]*UserActivity{}
	for _, entry := range entries {
		activity, ok := byUser[entry.Username]
		if !ok {
			activity = &UserActivity{
				Username: entry.Username,
				Role:     entry.Role,
				Counts:   map[models.Action]int{},
			}
			byUser[entry.Username] = activity
		}
		activity.Counts[entry.Action]++
		if entry.Timestamp.After(activity.LastSeen) {
			activity.LastSeen = entry.Timestamp
			activity.Role = entry.Role
		}
	}

	report := make([]UserActivity, 0, len(byUser))
	for _, activity := range byUser {
		report = append(report, *activity)
	}
	sort.Slice(report, func(i, j int) bool {
		return report[i].Username < report[j].Username
	})
	return report
}

// WriteCSV renders the report with one row per user and one column per
// known action, plus a total and last-seen timestamp.
func WriteCSV(w io.Writer, report []UserActivity) error {
	cw := csv.NewWriter(w)

	actions := models.Actions()
	header := []string{"username", "role"}
	for _, action := range actions {
		header = append(header, string(action))
	}
	header = append(header, "total", "last_seen")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	for _, activity := range report {
		row := []string{activity.Username, string(activity.Role)}
		for _, action := range actions {
			row = append(row, strconv.Itoa(activity.Counts[action]))
		}
		row = append(row, strconv.Itoa(activity.Total()))
		lastSeen := ""
		if !activity.LastSeen.IsZero() {
			lastSeen = activity.LastSeen.UTC().Format(time.RFC3339)
		}
		row = append(row, lastSeen)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write report row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
