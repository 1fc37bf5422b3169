package engine

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"coachline/internal/config"
	"coachline/internal/domain"
	"coachline/internal/expectation"
	"coachline/internal/forms"
	"coachline/internal/sheet"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	e := New(sheet.NewMemoryStore(), config.Default("coachline"), log)
	e.Now = func() time.Time { return time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC) }
	t.Cleanup(e.Close)
	err := e.Directory.Upsert(context.Background(), domain.Employee{
		ResourceID: 1, Name: "Admin", Email: "admin@example.com", Role: "admin",
	})
	if err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	return e
}

func TestMutationsLeaveAuditTrail(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	actor := "admin@example.com"

	id, err := e.AddExpectation(ctx, actor, expectation.Candidate{
		ResourceID: 10, Performance: 2, OneToOne: 1, SideBySide: 1,
		StartDate: "2024-01-01", EndDate: "2024-03-31", Type: "Agent", Active: true,
	})
	if err != nil {
		t.Fatalf("add expectation: %v", err)
	}
	formID, err := e.CreateForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("create form: %v", err)
	}
	if _, err := e.AddQuestion(ctx, actor, formID, 1, forms.QuestionCandidate{Text: "Notes", Kind: "text"}); err != nil {
		t.Fatalf("add question: %v", err)
	}

	events, err := e.LogTail(ctx, 0)
	if err != nil {
		t.Fatalf("log tail: %v", err)
	}
	types := map[string]bool{}
	for _, evt := range events {
		types[evt.Type] = true
		if evt.Actor != actor {
			t.Fatalf("event actor: %+v", evt)
		}
	}
	for _, want := range []string{"expectation.add", "form.create", "question.add"} {
		if !types[want] {
			t.Fatalf("missing audit event %s in %v", want, types)
		}
	}
	if id != 1 {
		t.Fatalf("expected id 1, got %d", id)
	}
}

func TestFailedMutationLeavesNoAuditEvent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	_, err := e.AddExpectation(ctx, "admin@example.com", expectation.Candidate{
		ResourceID: 10, Performance: -1,
		StartDate: "2024-01-01", EndDate: "2024-03-31", Type: "Agent", Active: true,
	})
	var verr expectation.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	events, err := e.LogTail(ctx, 0)
	if err != nil {
		t.Fatalf("log tail: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("rejected mutation must not be logged: %+v", events)
	}
}

func TestPermissionsOfFallsBackToDirectoryRole(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	role, perms, err := e.PermissionsOf(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if role != "admin" || len(perms) == 0 {
		t.Fatalf("directory fallback: role=%q perms=%v", role, perms)
	}

	// An explicit assignment overrides the directory column.
	if err := e.AssignRole(ctx, "admin@example.com", "admin@example.com", "viewer"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	role, perms, err = e.PermissionsOf(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("permissions: %v", err)
	}
	if role != "viewer" {
		t.Fatalf("assignment must win, got %q", role)
	}
	for _, p := range perms {
		if p == "roles.write" {
			t.Fatalf("viewer must not hold roles.write: %v", perms)
		}
	}

	// Unknown subjects resolve to no role and no permissions.
	role, perms, err = e.PermissionsOf(ctx, "stranger@example.com")
	if err != nil || role != "" || len(perms) != 0 {
		t.Fatalf("stranger: role=%q perms=%v err=%v", role, perms, err)
	}
}

func TestAssignRoleRejectsUnknownRole(t *testing.T) {
	e := newTestEngine(t)
	err := e.AssignRole(context.Background(), "admin@example.com", "x@example.com", "superuser")
	var verr expectation.ValidationError
	if !errors.As(err, &verr) || verr.Field != "role" {
		t.Fatalf("expected role validation error, got %v", err)
	}
}

func TestSnapshotJoinsStoreState(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	actor := "admin@example.com"

	formID, err := e.CreateForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("create form: %v", err)
	}
	if _, err := e.AddQuestion(ctx, actor, formID, 1, forms.QuestionCandidate{Text: "Notes", Kind: "text"}); err != nil {
		t.Fatalf("add question: %v", err)
	}
	graph, err := e.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(graph.Forms) != 1 || len(graph.Forms[0].Questions) != 1 {
		t.Fatalf("graph shape: %+v", graph)
	}
	if graph.Names[domain.TypeAgent]["1"] != "Admin" {
		t.Fatalf("agent names: %v", graph.Names)
	}
}

func TestMintedKeyResolvesBySubject(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	rec, plain, err := e.MintAPIKey(ctx, "admin@example.com", "coach@example.com", "ci")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if rec.Subject != "coach@example.com" || plain == "" {
		t.Fatalf("mint result: %+v %q", rec, plain)
	}
	if err := e.RevokeAPIKey(ctx, "admin@example.com", rec.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	keys, err := e.ListAPIKeys(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("revoked key still listed: %+v", keys)
	}
}
