// Package projector builds the denormalized read-side graph consumed by the
// presentation layer. Build is a pure function of its four row sets and
// rebuilds the whole graph on every call.
package projector

import (
	"sort"
	"strconv"

	"coachline/internal/domain"
)

// GraphQuestion is a question placed at its rank within a form version.
type GraphQuestion struct {
	ID       int    `json:"id"`
	Text     string `json:"text"`
	Category string `json:"category"`
	Kind     string `json:"kind"`
	Hidden   bool   `json:"hidden"`
	Version  int    `json:"version"`
	Rank     int    `json:"rank"`
}

// GraphForm is a form with its questions ordered by rank and the distinct
// set of versions its links span.
type GraphForm struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Version   int             `json:"version"`
	Hidden    bool            `json:"hidden"`
	Questions []GraphQuestion `json:"questions"`
	Versions  []int           `json:"versions"`
}

// Graph is the full read-side projection.
type Graph struct {
	// Display-name lookups for expectation targets, keyed by expectation
	// type. Agent maps resource ids to employee names; Workgroup and
	// Job Profile map their distinct values to themselves.
	Names map[string]map[string]string `json:"names"`
	Forms []GraphForm                  `json:"forms"`
}

// Build joins employees, forms, form-question links and question metadata
// into the graph. Links whose form id does not resolve are dropped without
// error, matching the store's tolerance for re-parenting drift.
func Build(employees []domain.Employee, forms []domain.Form, links []domain.FormQuestion, questions []domain.Question) Graph {
	g := Graph{
		Names: map[string]map[string]string{
			domain.TypeAgent:      {},
			domain.TypeWorkgroup:  {},
			domain.TypeJobProfile: {},
		},
	}
	for _, e := range employees {
		g.Names[domain.TypeAgent][strconv.Itoa(e.ResourceID)] = e.Name
		if e.Workgroup != "" {
			g.Names[domain.TypeWorkgroup][e.Workgroup] = e.Workgroup
		}
		if e.JobProfile != "" {
			g.Names[domain.TypeJobProfile][e.JobProfile] = e.JobProfile
		}
	}

	questionByID := make(map[int]domain.Question, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}
	formIndex := make(map[int]int, len(forms))
	for _, f := range forms {
		formIndex[f.ID] = len(g.Forms)
		g.Forms = append(g.Forms, GraphForm{
			ID:      f.ID,
			Name:    f.Name,
			Version: f.Version,
			Hidden:  f.Hidden,
		})
	}

	for _, l := range links {
		i, ok := formIndex[l.FormID]
		if !ok {
			continue
		}
		q, ok := questionByID[l.QuestionID]
		if !ok {
			continue
		}
		g.Forms[i].Questions = append(g.Forms[i].Questions, GraphQuestion{
			ID:       q.ID,
			Text:     q.Text,
			Category: q.Category,
			Kind:     q.Kind,
			Hidden:   q.Hidden,
			Version:  l.Version,
			Rank:     l.Rank,
		})
	}

	for i := range g.Forms {
		f := &g.Forms[i]
		sort.SliceStable(f.Questions, func(a, b int) bool {
			return f.Questions[a].Rank < f.Questions[b].Rank
		})
		seen := map[int]bool{}
		for _, q := range f.Questions {
			if !seen[q.Version] {
				seen[q.Version] = true
				f.Versions = append(f.Versions, q.Version)
			}
		}
		sort.Ints(f.Versions)
	}
	return g
}
