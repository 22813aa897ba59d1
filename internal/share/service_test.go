package share

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"classdrop/internal/auth"
	"classdrop/internal/blobstore"
	"classdrop/internal/credstore"
	"classdrop/internal/models"
	"classdrop/internal/store"
)

type testEnv struct {
	store     *store.Store
	blobs     *blobstore.LocalStore
	auth      *AuthService
	resources *ResourceService
	audit     *AuditService
	reports   *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "classdrop.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	blobs, err := blobstore.NewLocalStore(filepath.Join(dir, "blobs"))
	if err != nil {
		t.Fatalf("open blob store: %v", err)
	}

	creds := testRoster(t)
	env := &testEnv{
		store:     st,
		blobs:     blobs,
		auth:      NewAuthService(creds, st, st),
		resources: NewResourceService(st, st, blobs),
		audit:     NewAuditService(st),
		reports:   NewReportService(st),
	}
	return env
}

func testRoster(t *testing.T) credstore.Store {
	t.Helper()
	users := []models.User{}
	for _, u := range []struct {
		name     string
		password string
		role     models.Role
	}{
		{"root", "rootpw", models.RoleAdmin},
		{"ms.frizzle", "buspass", models.RoleTeacher},
		{"arnold", "homework", models.RoleStudent},
	} {
		hash, err := auth.HashPassword(u.password)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		users = append(users, models.User{Username: u.name, PasswordHash: hash, Role: u.role})
	}
	creds, err := credstore.NewStatic(users)
	if err != nil {
		t.Fatalf("build roster: %v", err)
	}
	return creds
}

func mustLogin(t *testing.T, env *testEnv, username, password string) *models.Session {
	t.Helper()
	result, err := env.auth.Authenticate(context.Background(), username, password, time.Now().UTC())
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	session := result.Session
	return &session
}

func mustUpload(t *testing.T, env *testEnv, session *models.Session, name, content string) *models.Resource {
	t.Helper()
	resource, err := env.resources.Upload(context.Background(), session, UploadRequest{
		Filename: name,
		Content:  strings.NewReader(content),
	}, time.Now().UTC())
	if err != nil {
		t.Fatalf("upload %s: %v", name, err)
	}
	return resource
}

func readAudit(t *testing.T, env *testEnv) []models.AuditEntry {
	t.Helper()
	entries, err := env.store.ReadAudit(context.Background())
	if err != nil {
		t.Fatalf("read audit: %v", err)
	}
	return entries
}

func TestAuthenticateSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	result, err := env.auth.Authenticate(ctx, "ms.frizzle", "buspass", now)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a session token")
	}
	if result.Session.Username != "ms.frizzle" || result.Session.Role != models.RoleTeacher {
		t.Fatalf("unexpected session %+v", result.Session)
	}

	session, err := env.auth.Resolve(ctx, result.Token, now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if session.Username != "ms.frizzle" {
		t.Fatalf("resolved wrong session %+v", session)
	}

	entries := readAudit(t, env)
	if len(entries) != 1 || entries[0].Action != models.ActionLogin || entries[0].Username != "ms.frizzle" {
		t.Fatalf("expected single LOGIN entry, got %+v", entries)
	}
}

func TestAuthenticateFailureLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	cases := []struct{ username, password string }{
		{"ms.frizzle", "wrong"},
		{"nobody", "buspass"},
		{"", "buspass"},
		{"ms.frizzle", ""},
	}
	for _, tc := range cases {
		_, err := env.auth.Authenticate(ctx, tc.username, tc.password, now)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("authenticate(%q, %q): want ErrInvalidCredentials, got %v", tc.username, tc.password, err)
		}
	}
	if entries := readAudit(t, env); len(entries) != 0 {
		t.Fatalf("failed logins must not be audited, got %+v", entries)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	result, err := env.auth.Authenticate(ctx, "arnold", "homework", now)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := env.auth.Logout(ctx, result.Token, now); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := env.auth.Resolve(ctx, result.Token, now); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("resolve after logout: want ErrInvalidCredentials, got %v", err)
	}

	entries := readAudit(t, env)
	if len(entries) != 2 || entries[0].Action != models.ActionLogin || entries[1].Action != models.ActionLogout {
		t.Fatalf("expected LOGIN then LOGOUT, got %+v", entries)
	}
}

func TestSessionExpiryEndsAccess(t *testing.T) {
	env := newTestEnv(t)
	env.auth.SetSessionTTL(time.Minute)
	ctx := context.Background()
	now := time.Now().UTC()

	result, err := env.auth.Authenticate(ctx, "arnold", "homework", now)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := env.auth.Resolve(ctx, result.Token, now.Add(30*time.Second)); err != nil {
		t.Fatalf("resolve before expiry: %v", err)
	}
	if _, err := env.auth.Resolve(ctx, result.Token, now.Add(2*time.Minute)); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("resolve after expiry: want ErrInvalidCredentials, got %v", err)
	}
}

func TestUploadListDownload(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	teacher := mustLogin(t, env, "ms.frizzle", "buspass")
	student := mustLogin(t, env, "arnold", "homework")

	resource, err := env.resources.Upload(ctx, teacher, UploadRequest{
		Filename:    "syllabus.pdf",
		Description: "fall syllabus",
		Tags:        []string{"Science", "week-1"},
		Content:     strings.NewReader("course outline"),
	}, now)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if resource.ID == "" || resource.UploadedBy != "ms.frizzle" {
		t.Fatalf("unexpected resource %+v", resource)
	}
	if resource.SizeBytes != int64(len("course outline")) {
		t.Fatalf("size = %d, want %d", resource.SizeBytes, len("course outline"))
	}

	listed, err := env.resources.List(ctx, student)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != resource.ID {
		t.Fatalf("unexpected listing %+v", listed)
	}
	if got := listed[0].Tags; len(got) != 2 || got[0] != "science" || got[1] != "week-1" {
		t.Fatalf("unexpected tags %v", got)
	}

	content, err := env.resources.Open(ctx, student, resource.ID, now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, err := io.ReadAll(content.Reader)
	content.Reader.Close()
	if err != nil {
		t.Fatalf("read content: %v", err)
	}
	if string(data) != "course outline" {
		t.Fatalf("content = %q", data)
	}

	var actions []models.Action
	for _, entry := range readAudit(t, env) {
		actions = append(actions, entry.Action)
	}
	want := []models.Action{models.ActionLogin, models.ActionLogin, models.ActionUpload, models.ActionDownload}
	if len(actions) != len(want) {
		t.Fatalf("audit actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("audit actions = %v, want %v", actions, want)
		}
	}
}

func TestAuditRecordsDisplayNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")
	student := mustLogin(t, env, "arnold", "homework")

	resource := mustUpload(t, env, teacher, "lesson1.pdf", "chapter one")
	content, err := env.resources.Open(ctx, student, resource.ID, now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	content.Reader.Close()
	if err := env.resources.Delete(ctx, teacher, resource.ID, now); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var matched int
	for _, entry := range readAudit(t, env) {
		switch entry.Action {
		case models.ActionUpload, models.ActionDownload, models.ActionDelete:
			matched++
			if entry.Target != "lesson1.pdf" {
				t.Errorf("%s target = %q, want the display name", entry.Action, entry.Target)
			}
		}
	}
	if matched != 3 {
		t.Fatalf("expected UPLOAD, DOWNLOAD and DELETE entries, matched %d", matched)
	}
}

func TestUploadDeniedForStudentAndAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()

	student := mustLogin(t, env, "arnold", "homework")
	admin := mustLogin(t, env, "root", "rootpw")

	for _, session := range []*models.Session{student, admin} {
		_, err := env.resources.Upload(ctx, session, UploadRequest{
			Filename: "notes.txt",
			Content:  strings.NewReader("x"),
		}, now)
		if !errors.Is(err, ErrPermissionDenied) {
			t.Fatalf("upload as %s: want ErrPermissionDenied, got %v", session.Role, err)
		}
	}

	// Denied uploads never touch storage.
	keys, err := env.blobs.List(ctx)
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("blob store should be unchanged, found %v", keys)
	}
	listed, err := env.resources.List(ctx, student)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("no resources should exist, got %+v", listed)
	}

	if _, err := env.resources.List(ctx, nil); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("nil session: want ErrInvalidCredentials, got %v", err)
	}
}

func TestUploadRejectsPathTricks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")

	for _, name := range []string{"", "  ", "../escape.txt", "a/b.txt", `a\b.txt`, ".", ".."} {
		_, err := env.resources.Upload(ctx, teacher, UploadRequest{
			Filename: name,
			Content:  strings.NewReader("x"),
		}, now)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("upload %q: want ErrInvalidArgument, got %v", name, err)
		}
	}
}

func TestUploadExtensionAllowList(t *testing.T) {
	env := newTestEnv(t)
	env.resources.SetAllowedExtensions([]string{"pdf", ".TXT"})
	ctx := context.Background()
	now := time.Now().UTC()
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")

	if _, err := env.resources.Upload(ctx, teacher, UploadRequest{Filename: "ok.pdf", Content: strings.NewReader("x")}, now); err != nil {
		t.Fatalf("pdf upload: %v", err)
	}
	if _, err := env.resources.Upload(ctx, teacher, UploadRequest{Filename: "notes.txt", Content: strings.NewReader("x")}, now); err != nil {
		t.Fatalf("txt upload: %v", err)
	}
	if _, err := env.resources.Upload(ctx, teacher, UploadRequest{Filename: "run.exe", Content: strings.NewReader("x")}, now); err == nil {
		t.Fatal("exe upload: expected error")
	}
}

func TestUploadSizeLimit(t *testing.T) {
	env := newTestEnv(t)
	env.resources.SetMaxUploadBytes(8)
	ctx := context.Background()
	now := time.Now().UTC()
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")

	if _, err := env.resources.Upload(ctx, teacher, UploadRequest{Filename: "small.txt", Content: strings.NewReader("12345678")}, now); err != nil {
		t.Fatalf("within limit: %v", err)
	}
	if _, err := env.resources.Upload(ctx, teacher, UploadRequest{Filename: "big.txt", Content: strings.NewReader("123456789")}, now); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("over limit: want ErrInvalidArgument, got %v", err)
	}
}

func TestDuplicateNamesKeepBothUploads(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")

	first := mustUpload(t, env, teacher, "worksheet.pdf", "version one")
	second := mustUpload(t, env, teacher, "worksheet.pdf", "version two")
	if first.ID == second.ID {
		t.Fatal("uploads with the same name must get distinct ids")
	}

	listed, err := env.resources.List(ctx, teacher)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected both uploads listed, got %+v", listed)
	}
}

func TestIdenticalContentSharesOneBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")

	first := mustUpload(t, env, teacher, "a.txt", "same bytes")
	second := mustUpload(t, env, teacher, "b.txt", "same bytes")
	if first.BlobID != second.BlobID {
		t.Fatalf("blob ids differ: %s vs %s", first.BlobID, second.BlobID)
	}

	if err := env.resources.Delete(ctx, teacher, first.ID, now); err != nil {
		t.Fatalf("delete first: %v", err)
	}
	content, err := env.resources.Open(ctx, teacher, second.ID, now)
	if err != nil {
		t.Fatalf("open survivor: %v", err)
	}
	data, _ := io.ReadAll(content.Reader)
	content.Reader.Close()
	if string(data) != "same bytes" {
		t.Fatalf("survivor content = %q", data)
	}
}

func TestDeleteRemovesResourceAndBytes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")

	resource := mustUpload(t, env, teacher, "old.txt", "stale")
	if err := env.resources.Delete(ctx, teacher, resource.ID, now); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := env.resources.Get(ctx, teacher, resource.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get deleted: want ErrNotFound, got %v", err)
	}
	keys, err := env.blobs.List(ctx)
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected blob bytes reclaimed, found %v", keys)
	}

	if err := env.resources.Delete(ctx, teacher, resource.ID, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete again: want ErrNotFound, got %v", err)
	}
}

func TestGCReclaimsOrphans(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	admin := mustLogin(t, env, "root", "rootpw")
	student := mustLogin(t, env, "arnold", "homework")

	// A put with no metadata row behind it is an orphaned content file.
	if _, err := env.blobs.Put(ctx, bytes.NewReader([]byte("orphan bytes"))); err != nil {
		t.Fatalf("put orphan: %v", err)
	}

	if _, err := env.resources.GC(ctx, student, now); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("gc as student: want ErrPermissionDenied, got %v", err)
	}

	result, err := env.resources.GC(ctx, admin, now)
	if err != nil {
		t.Fatalf("gc: %v", err)
	}
	if result.OrphanedFiles != 1 {
		t.Fatalf("orphaned files = %d, want 1", result.OrphanedFiles)
	}
	keys, err := env.blobs.List(ctx)
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty blob tree, found %v", keys)
	}
}

func TestGCBatchSizeBoundsSweep(t *testing.T) {
	env := newTestEnv(t)
	env.resources.SetGCBatchSize(1)
	ctx := context.Background()
	now := time.Now().UTC()
	admin := mustLogin(t, env, "root", "rootpw")
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")

	first := mustUpload(t, env, teacher, "a.txt", "first bytes")
	second := mustUpload(t, env, teacher, "b.txt", "second bytes")

	// Drop the resource rows at the store level, stranding both blob rows.
	for _, id := range []string{first.ID, second.ID} {
		if _, err := env.store.DeleteResource(ctx, id); err != nil {
			t.Fatalf("delete resource %s: %v", id, err)
		}
	}

	result, err := env.resources.GC(ctx, admin, now)
	if err != nil {
		t.Fatalf("first gc: %v", err)
	}
	if result.BlobRowsDeleted != 1 || result.BlobFilesDeleted != 1 {
		t.Fatalf("first pass = %+v, want one row and one file reclaimed", result)
	}

	result, err = env.resources.GC(ctx, admin, now)
	if err != nil {
		t.Fatalf("second gc: %v", err)
	}
	if result.BlobRowsDeleted != 1 {
		t.Fatalf("second pass = %+v, want the remaining row reclaimed", result)
	}
	keys, err := env.blobs.List(ctx)
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected empty blob tree, found %v", keys)
	}
}

func TestAuditEntriesAdminOnlyAndRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	admin := mustLogin(t, env, "root", "rootpw")
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")

	if _, err := env.audit.Entries(ctx, teacher, now); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("entries as teacher: want ErrPermissionDenied, got %v", err)
	}

	entries, err := env.audit.Entries(ctx, admin, now)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected the two LOGIN entries, got %+v", entries)
	}

	after := readAudit(t, env)
	last := after[len(after)-1]
	if last.Action != models.ActionView || last.Username != "root" {
		t.Fatalf("expected trailing VIEW by root, got %+v", last)
	}
}

func TestArchiveRotatesLog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	admin := mustLogin(t, env, "root", "rootpw")
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")
	mustUpload(t, env, teacher, "a.txt", "a")

	moved, err := env.audit.Archive(ctx, admin, now)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	// two LOGIN, one UPLOAD, plus the ARCHIVE marker
	if moved != 4 {
		t.Fatalf("moved = %d, want 4", moved)
	}

	if live := readAudit(t, env); len(live) != 0 {
		t.Fatalf("live log should be empty, got %+v", live)
	}
	archived, err := env.audit.ArchivedEntries(ctx, admin, now)
	if err != nil {
		t.Fatalf("archived entries: %v", err)
	}
	if len(archived) != 4 || archived[len(archived)-1].Action != models.ActionArchive {
		t.Fatalf("expected archive ending in ARCHIVE marker, got %+v", archived)
	}
}

func TestReportSummarizesPerUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	admin := mustLogin(t, env, "root", "rootpw")
	teacher := mustLogin(t, env, "ms.frizzle", "buspass")
	student := mustLogin(t, env, "arnold", "homework")

	resource := mustUpload(t, env, teacher, "lab.pdf", "lab sheet")
	content, err := env.resources.Open(ctx, student, resource.ID, now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	content.Reader.Close()

	report, err := env.reports.Report(ctx, admin, now)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report) != 3 {
		t.Fatalf("expected 3 users, got %+v", report)
	}
	if report[0].Username != "arnold" || report[1].Username != "ms.frizzle" || report[2].Username != "root" {
		t.Fatalf("report not sorted by username: %+v", report)
	}
	if report[0].Counts[models.ActionDownload] != 1 {
		t.Fatalf("arnold downloads = %d, want 1", report[0].Counts[models.ActionDownload])
	}
	if report[1].Counts[models.ActionUpload] != 1 {
		t.Fatalf("ms.frizzle uploads = %d, want 1", report[1].Counts[models.ActionUpload])
	}

	if _, err := env.reports.Report(ctx, student, now); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("report as student: want ErrPermissionDenied, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	report := []UserActivity{
		{
			Username: "arnold",
			Role:     models.RoleStudent,
			Counts:   map[models.Action]int{models.ActionLogin: 2, models.ActionDownload: 3},
			LastSeen: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, report); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "username,role,LOGIN,LOGOUT,") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "arnold,student,2,0,0,0,3,0,0,5,2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if got := Summarize(nil); len(got) != 0 {
		t.Fatalf("expected empty report, got %+v", got)
	}
}
