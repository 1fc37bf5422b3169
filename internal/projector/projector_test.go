package projector

import (
	"testing"

	"coachline/internal/domain"
)

func fixture() ([]domain.Employee, []domain.Form, []domain.FormQuestion, []domain.Question) {
	employees := []domain.Employee{
		{ResourceID: 1, Name: "Ada Li", Workgroup: "Tier 1", JobProfile: "Support Agent"},
		{ResourceID: 2, Name: "Ben Roy", Workgroup: "Tier 2", JobProfile: "Support Agent"},
	}
	forms := []domain.Form{
		{ID: 1, Name: "QA Review", Version: 2},
		{ID: 2, Name: "Onboarding", Version: 1, Hidden: true},
	}
	links := []domain.FormQuestion{
		{FormID: 1, QuestionID: 11, Version: 2, Rank: 2},
		{FormID: 1, QuestionID: 12, Version: 1, Rank: 1},
		{FormID: 9, QuestionID: 13, Version: 1, Rank: 1}, // orphan, form 9 does not exist
		{FormID: 2, QuestionID: 14, Version: 1, Rank: 1},
	}
	questions := []domain.Question{
		{ID: 11, Text: "Greeting used?", Kind: "checkbox"},
		{ID: 12, Text: "Notes", Kind: "text"},
		{ID: 13, Text: "Orphaned", Kind: "text"},
		{ID: 14, Text: "Badge issued?", Kind: "checkbox"},
	}
	return employees, forms, links, questions
}

func TestBuildNameLookups(t *testing.T) {
	g := Build(fixture())
	if g.Names[domain.TypeAgent]["1"] != "Ada Li" {
		t.Fatalf("agent lookup: %v", g.Names[domain.TypeAgent])
	}
	if _, ok := g.Names[domain.TypeWorkgroup]["Tier 2"]; !ok {
		t.Fatalf("workgroup lookup: %v", g.Names[domain.TypeWorkgroup])
	}
	if len(g.Names[domain.TypeJobProfile]) != 1 {
		t.Fatalf("job profiles must be distinct: %v", g.Names[domain.TypeJobProfile])
	}
}

func TestBuildOrdersQuestionsByRank(t *testing.T) {
	g := Build(fixture())
	var qa *GraphForm
	for i := range g.Forms {
		if g.Forms[i].ID == 1 {
			qa = &g.Forms[i]
		}
	}
	if qa == nil {
		t.Fatal("form 1 missing from graph")
	}
	if len(qa.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qa.Questions))
	}
	if qa.Questions[0].ID != 12 || qa.Questions[1].ID != 11 {
		t.Fatalf("questions not rank ordered: %+v", qa.Questions)
	}
	if len(qa.Versions) != 2 || qa.Versions[0] != 1 || qa.Versions[1] != 2 {
		t.Fatalf("distinct version set wrong: %v", qa.Versions)
	}
}

func TestBuildDropsOrphanQuestionsSilently(t *testing.T) {
	g := Build(fixture())
	for _, f := range g.Forms {
		for _, q := range f.Questions {
			if q.ID == 13 {
				t.Fatal("orphan question must be dropped")
			}
		}
	}
	if len(g.Forms) != 2 {
		t.Fatalf("unexpected form count %d", len(g.Forms))
	}
}

func TestBuildIsPure(t *testing.T) {
	employees, forms, links, questions := fixture()
	first := Build(employees, forms, links, questions)
	second := Build(employees, forms, links, questions)
	if len(first.Forms) != len(second.Forms) {
		t.Fatal("rebuild must be deterministic")
	}
	// Inputs are not mutated by the build.
	if links[1].Rank != 1 || forms[0].Version != 2 {
		t.Fatal("build mutated its inputs")
	}
}

func TestBuildEmptyInputs(t *testing.T) {
	g := Build(nil, nil, nil, nil)
	if len(g.Forms) != 0 {
		t.Fatalf("empty build produced forms: %v", g.Forms)
	}
	if g.Names[domain.TypeAgent] == nil {
		t.Fatal("lookup maps must be initialized")
	}
}
