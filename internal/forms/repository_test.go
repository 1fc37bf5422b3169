package forms_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"coachline/internal/expectation"
	"coachline/internal/forms"
	"coachline/internal/sheet"
)

type staticIdentity map[string]int

func (s staticIdentity) ResourceID(_ context.Context, subject string) (int, error) {
	if id, ok := s[subject]; ok {
		return id, nil
	}
	return 0, errors.New("no resource id mapped for caller")
}

func newTestRepo(t *testing.T) *forms.Repository {
	t.Helper()
	store := sheet.NewMemoryStore()
	lock := sheet.NewLocker(5 * time.Second)
	sheets := forms.Sheets{Forms: "Forms", Questions: "Questions", Links: "FormQuestions"}
	rules := forms.Rules{Categories: []string{"Soft Skills", "Compliance"}, MaxTextLength: 200}
	repo := forms.NewRepository(store, lock, sheets, staticIdentity{"coach@example.com": 42}, rules)
	repo.Now = func() time.Time { return time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC) }
	return repo
}

const actor = "coach@example.com"

func TestAddFormStartsAtVersionOne(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id, err := repo.AddForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("add form: %v", err)
	}
	if id != 1 {
		t.Fatalf("empty store must seed id 1, got %d", id)
	}
	f, err := repo.GetForm(ctx, id)
	if err != nil {
		t.Fatalf("get form: %v", err)
	}
	if f.Version != 1 {
		t.Fatalf("new form must start at version 1, got %d", f.Version)
	}
	if f.CreatedBy != 42 || f.ModifiedBy != 42 {
		t.Fatalf("audit ids not stamped: %+v", f)
	}
	if f.CreatedDate != "2024-05-20" || f.ModifiedDate != "2024-05-20" {
		t.Fatalf("audit dates not stamped: %+v", f)
	}
}

func TestAddFormRejectsBlankName(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.AddForm(context.Background(), actor, "   ")
	var verr expectation.ValidationError
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestRenameFormInPlace(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id, err := repo.AddForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("add form: %v", err)
	}
	if err := repo.RenameForm(ctx, actor, id, "Quality Review"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	f, err := repo.GetForm(ctx, id)
	if err != nil {
		t.Fatalf("get form: %v", err)
	}
	if f.Name != "Quality Review" {
		t.Fatalf("rename not persisted: %+v", f)
	}
	if f.Version != 1 {
		t.Fatalf("rename must not bump version, got %d", f.Version)
	}
	if err := repo.RenameForm(ctx, actor, 99, "x"); !errors.Is(err, forms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetFormHidden(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	id, err := repo.AddForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("add form: %v", err)
	}
	if err := repo.SetFormHidden(ctx, actor, id, true); err != nil {
		t.Fatalf("hide: %v", err)
	}
	f, _ := repo.GetForm(ctx, id)
	if !f.Hidden {
		t.Fatal("hidden flag not persisted")
	}
	if err := repo.SetFormHidden(ctx, actor, id, false); err != nil {
		t.Fatalf("unhide: %v", err)
	}
	f, _ = repo.GetForm(ctx, id)
	if f.Hidden {
		t.Fatal("unhide not persisted")
	}
}

func TestAddQuestionLinksAtCurrentVersion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	formID, err := repo.AddForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("add form: %v", err)
	}
	qID, err := repo.AddQuestion(ctx, actor, formID, 1, forms.QuestionCandidate{
		Text: "Greeting used?",
		Kind: forms.KindCheckbox,
	})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if qID != 1 {
		t.Fatalf("expected question id 1, got %d", qID)
	}
	links, err := repo.ListLinks(ctx)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 1 {
		t.Fatalf("expected one link, got %d", len(links))
	}
	l := links[0]
	if l.FormID != formID || l.QuestionID != qID || l.Version != 1 || l.Rank != 1 {
		t.Fatalf("link wrong: %+v", l)
	}
}

func TestAddQuestionValidation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	formID, err := repo.AddForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("add form: %v", err)
	}
	cases := []struct {
		name  string
		rank  int
		c     forms.QuestionCandidate
		field string
	}{
		{"blank text", 1, forms.QuestionCandidate{Text: " ", Kind: forms.KindText}, "text"},
		{"unknown kind", 1, forms.QuestionCandidate{Text: "ok", Kind: "dropdown"}, "kind"},
		{"unknown category", 1, forms.QuestionCandidate{Text: "ok", Kind: forms.KindText, Category: "Latency"}, "category"},
		{"zero rank", 0, forms.QuestionCandidate{Text: "ok", Kind: forms.KindText}, "rank"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.AddQuestion(ctx, actor, formID, tc.rank, tc.c)
			var verr expectation.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, verr.Field)
			}
		})
	}
	qs, err := repo.ListQuestions(ctx)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	if len(qs) != 0 {
		t.Fatalf("rejected candidates must not persist, got %d rows", len(qs))
	}
}

func TestAddQuestionRequiresForm(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.AddQuestion(context.Background(), actor, 7, 1, forms.QuestionCandidate{
		Text: "Notes", Kind: forms.KindText,
	})
	if !errors.Is(err, forms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRepublishMigratesCurrentVersionLinks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	formID, err := repo.AddForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("add form: %v", err)
	}
	q1, err := repo.AddQuestion(ctx, actor, formID, 1, forms.QuestionCandidate{Text: "Greeting used?", Kind: forms.KindCheckbox})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	v2, err := repo.Republish(ctx, actor, formID)
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if v2 != 2 {
		t.Fatalf("expected version 2, got %d", v2)
	}
	// Links on the old current version follow the bump.
	links, _ := repo.ListLinks(ctx)
	if len(links) != 1 || links[0].Version != 2 {
		t.Fatalf("links not migrated: %+v", links)
	}
	// A question added after the bump lands on version 2; republishing
	// again leaves the version-2 question at 2 only if nothing was on 2.
	q2, err := repo.AddQuestion(ctx, actor, formID, 2, forms.QuestionCandidate{Text: "Notes", Kind: forms.KindText})
	if err != nil {
		t.Fatalf("second question: %v", err)
	}
	v3, err := repo.Republish(ctx, actor, formID)
	if err != nil {
		t.Fatalf("second republish: %v", err)
	}
	if v3 != 3 {
		t.Fatalf("expected version 3, got %d", v3)
	}
	byQuestion := map[int]int{}
	links, _ = repo.ListLinks(ctx)
	for _, l := range links {
		byQuestion[l.QuestionID] = l.Version
	}
	if byQuestion[q1] != 3 || byQuestion[q2] != 3 {
		t.Fatalf("current-version links must all move, got %v", byQuestion)
	}
	if _, err := repo.Republish(ctx, actor, 99); !errors.Is(err, forms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateQuestionPreservesMembership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	formID, err := repo.AddForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("add form: %v", err)
	}
	qID, err := repo.AddQuestion(ctx, actor, formID, 1, forms.QuestionCandidate{Text: "Notes", Kind: forms.KindText})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	err = repo.UpdateQuestion(ctx, actor, qID, forms.QuestionCandidate{
		Text:     "Compliance notes",
		Category: "Compliance",
		Kind:     forms.KindText,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	qs, _ := repo.ListQuestions(ctx)
	if len(qs) != 1 || qs[0].Text != "Compliance notes" || qs[0].Category != "Compliance" {
		t.Fatalf("update not persisted: %+v", qs)
	}
	links, _ := repo.ListLinks(ctx)
	if len(links) != 1 || links[0].QuestionID != qID {
		t.Fatalf("update must leave links alone: %+v", links)
	}
	if err := repo.UpdateQuestion(ctx, actor, 99, forms.QuestionCandidate{Text: "x", Kind: forms.KindText}); !errors.Is(err, forms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetQuestionHidden(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	formID, err := repo.AddForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("add form: %v", err)
	}
	qID, err := repo.AddQuestion(ctx, actor, formID, 1, forms.QuestionCandidate{Text: "Notes", Kind: forms.KindText})
	if err != nil {
		t.Fatalf("add question: %v", err)
	}
	if err := repo.SetQuestionHidden(ctx, actor, qID, true); err != nil {
		t.Fatalf("hide: %v", err)
	}
	qs, _ := repo.ListQuestions(ctx)
	if !qs[0].Hidden {
		t.Fatal("hidden flag not persisted")
	}
}

func TestUnknownActorRejected(t *testing.T) {
	repo := newTestRepo(t)
	if _, err := repo.AddForm(context.Background(), "stranger@example.com", "QA Review"); err == nil {
		t.Fatal("unknown actor must fail")
	}
}

func TestCheckValueDispatchesByKind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	formID, err := repo.AddForm(ctx, actor, "QA Review")
	if err != nil {
		t.Fatalf("add form: %v", err)
	}
	checkboxID, err := repo.AddQuestion(ctx, actor, formID, 1, forms.QuestionCandidate{
		Text: "Greeted the customer?", Kind: forms.KindCheckbox,
	})
	if err != nil {
		t.Fatalf("add checkbox question: %v", err)
	}
	categoryID, err := repo.AddQuestion(ctx, actor, formID, 2, forms.QuestionCandidate{
		Text: "Which skill area?", Kind: forms.KindCategory,
	})
	if err != nil {
		t.Fatalf("add category question: %v", err)
	}

	if err := repo.CheckValue(ctx, checkboxID, "true"); err != nil {
		t.Fatalf("checkbox accepts true: %v", err)
	}
	var verr expectation.ValidationError
	if err := repo.CheckValue(ctx, checkboxID, "maybe"); !errors.As(err, &verr) || verr.Field != "value" {
		t.Fatalf("checkbox must reject maybe with a value error, got %v", err)
	}
	if err := repo.CheckValue(ctx, categoryID, "Soft Skills"); err != nil {
		t.Fatalf("category accepts vocabulary entry: %v", err)
	}
	if err := repo.CheckValue(ctx, categoryID, "Plumbing"); !errors.As(err, &verr) || verr.Field != "value" {
		t.Fatalf("category must reject unknown entry, got %v", err)
	}
}

func TestCheckValueUnknownQuestion(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.CheckValue(context.Background(), 99, "true"); !errors.Is(err, forms.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
