package forms

import (
	"context"
	"errors"
	"strings"
	"time"

	"coachline/internal/domain"
	"coachline/internal/expectation"
	"coachline/internal/sheet"
)

// ErrNotFound means the referenced form or question id has no row.
var ErrNotFound = errors.New("form or question not found")

// Sheets names the three tabs the repository reads and writes.
type Sheets struct {
	Forms     string
	Questions string
	Links     string
}

// Repository manages forms, question metadata and the links binding a
// question into one version of one form. Mutations run inside the shared
// store lock, same discipline as the expectation repository.
type Repository struct {
	Store    sheet.Store
	Lock     *sheet.Locker
	Sheets   Sheets
	Identity expectation.Identity
	Rules    Rules
	Now      func() time.Time
	Zone     *time.Location
}

func NewRepository(store sheet.Store, lock *sheet.Locker, sheets Sheets, identity expectation.Identity, rules Rules) *Repository {
	return &Repository{
		Store:    store,
		Lock:     lock,
		Sheets:   sheets,
		Identity: identity,
		Rules:    rules,
		Now:      time.Now,
		Zone:     time.UTC,
	}
}

func (r *Repository) today() string {
	now := r.Now
	if now == nil {
		now = time.Now
	}
	zone := r.Zone
	if zone == nil {
		zone = time.UTC
	}
	return now().In(zone).Format(time.DateOnly)
}

// QuestionCandidate carries the caller-supplied question fields. Audit
// fields and membership are assigned by the repository.
type QuestionCandidate struct {
	Text     string
	Category string
	Kind     string
}

func (r *Repository) validateQuestion(c QuestionCandidate) error {
	if strings.TrimSpace(c.Text) == "" {
		return expectation.ValidationError{Field: "text", Reason: "must not be empty"}
	}
	if r.Rules.MaxTextLength > 0 && len(c.Text) > r.Rules.MaxTextLength {
		return expectation.ValidationError{Field: "text", Reason: "exceeds the configured maximum length"}
	}
	if !ValidKind(c.Kind) {
		return expectation.ValidationError{Field: "kind", Reason: "must be one of checkbox, text, category, identifier"}
	}
	if c.Category != "" {
		found := false
		for _, cat := range r.Rules.Categories {
			if cat == c.Category {
				found = true
				break
			}
		}
		if !found {
			return expectation.ValidationError{Field: "category", Reason: "not in the category vocabulary"}
		}
	}
	return nil
}

// AddForm creates a form at version 1.
func (r *Repository) AddForm(ctx context.Context, actor, name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, expectation.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return 0, err
	}
	var newID int
	err = r.Lock.WithLock(ctx, func() error {
		set, err := r.loadForms(ctx)
		if err != nil {
			return err
		}
		newID = nextID(formIDs(set.records))
		today := r.today()
		f := domain.Form{
			ID:           newID,
			Name:         name,
			Version:      1,
			CreatedBy:    modifier,
			CreatedDate:  today,
			ModifiedBy:   modifier,
			ModifiedDate: today,
		}
		if set.total == 0 {
			if err := r.Store.AppendRow(ctx, r.Sheets.Forms, formHeader); err != nil {
				return err
			}
		}
		return r.Store.AppendRow(ctx, r.Sheets.Forms, encodeForm(f))
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}

// RenameForm replaces the form name in place.
func (r *Repository) RenameForm(ctx context.Context, actor string, id int, name string) error {
	if strings.TrimSpace(name) == "" {
		return expectation.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return err
	}
	return r.Lock.WithLock(ctx, func() error {
		set, err := r.loadForms(ctx)
		if err != nil {
			return err
		}
		idx, f, ok := set.find(id)
		if !ok {
			return ErrNotFound
		}
		f.Name = name
		f.ModifiedBy = modifier
		f.ModifiedDate = r.today()
		return r.Store.WriteRange(ctx, r.Sheets.Forms, idx, 1, sheet.Grid{encodeForm(f)})
	})
}

// SetFormHidden toggles a form's hidden flag.
func (r *Repository) SetFormHidden(ctx context.Context, actor string, id int, hidden bool) error {
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return err
	}
	return r.Lock.WithLock(ctx, func() error {
		set, err := r.loadForms(ctx)
		if err != nil {
			return err
		}
		idx, f, ok := set.find(id)
		if !ok {
			return ErrNotFound
		}
		f.Hidden = hidden
		f.ModifiedBy = modifier
		f.ModifiedDate = r.today()
		return r.Store.WriteRange(ctx, r.Sheets.Forms, idx, 1, sheet.Grid{encodeForm(f)})
	})
}

// Republish bumps the form version and moves its question links to the new
// version. Links at older versions stay behind as history.
func (r *Repository) Republish(ctx context.Context, actor string, id int) (int, error) {
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return 0, err
	}
	var newVersion int
	err = r.Lock.WithLock(ctx, func() error {
		set, err := r.loadForms(ctx)
		if err != nil {
			return err
		}
		idx, f, ok := set.find(id)
		if !ok {
			return ErrNotFound
		}
		oldVersion := f.Version
		newVersion = oldVersion + 1
		f.Version = newVersion
		f.ModifiedBy = modifier
		f.ModifiedDate = r.today()
		if err := r.Store.WriteRange(ctx, r.Sheets.Forms, idx, 1, sheet.Grid{encodeForm(f)}); err != nil {
			return err
		}
		links, err := r.loadLinks(ctx)
		if err != nil {
			return err
		}
		for i, l := range links.records {
			if l.FormID != id || l.Version != oldVersion {
				continue
			}
			l.Version = newVersion
			if err := r.Store.WriteRange(ctx, r.Sheets.Links, links.indices[i], 1, sheet.Grid{encodeLink(l)}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// ListForms returns every form row in storage order.
func (r *Repository) ListForms(ctx context.Context) ([]domain.Form, error) {
	set, err := r.loadForms(ctx)
	if err != nil {
		return nil, err
	}
	return set.records, nil
}

// GetForm returns the form with the given id.
func (r *Repository) GetForm(ctx context.Context, id int) (domain.Form, error) {
	set, err := r.loadForms(ctx)
	if err != nil {
		return domain.Form{}, err
	}
	if _, f, ok := set.find(id); ok {
		return f, nil
	}
	return domain.Form{}, ErrNotFound
}

// AddQuestion validates the candidate, appends the question row and links
// it into the form's current version at the given rank. A question belongs
// to exactly one version of exactly one form.
func (r *Repository) AddQuestion(ctx context.Context, actor string, formID int, rank int, c QuestionCandidate) (int, error) {
	if err := r.validateQuestion(c); err != nil {
		return 0, err
	}
	if rank <= 0 {
		return 0, expectation.ValidationError{Field: "rank", Reason: "must be a positive integer"}
	}
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return 0, err
	}
	var newID int
	err = r.Lock.WithLock(ctx, func() error {
		formSet, err := r.loadForms(ctx)
		if err != nil {
			return err
		}
		_, form, ok := formSet.find(formID)
		if !ok {
			return ErrNotFound
		}
		qSet, err := r.loadQuestions(ctx)
		if err != nil {
			return err
		}
		newID = nextID(questionIDs(qSet.records))
		today := r.today()
		q := domain.Question{
			ID:           newID,
			Text:         c.Text,
			Category:     c.Category,
			Kind:         c.Kind,
			CreatedBy:    modifier,
			CreatedDate:  today,
			ModifiedBy:   modifier,
			ModifiedDate: today,
		}
		if qSet.total == 0 {
			if err := r.Store.AppendRow(ctx, r.Sheets.Questions, questionHeader); err != nil {
				return err
			}
		}
		if err := r.Store.AppendRow(ctx, r.Sheets.Questions, encodeQuestion(q)); err != nil {
			return err
		}
		links, err := r.loadLinks(ctx)
		if err != nil {
			return err
		}
		if links.total == 0 {
			if err := r.Store.AppendRow(ctx, r.Sheets.Links, linkHeader); err != nil {
				return err
			}
		}
		link := domain.FormQuestion{FormID: formID, QuestionID: newID, Version: form.Version, Rank: rank}
		return r.Store.AppendRow(ctx, r.Sheets.Links, encodeLink(link))
	})
	if err != nil {
		return 0, err
	}
	return newID, nil
}

// UpdateQuestion replaces the mutable question fields in place. Membership
// and the created audit pair are preserved.
func (r *Repository) UpdateQuestion(ctx context.Context, actor string, id int, c QuestionCandidate) error {
	if err := r.validateQuestion(c); err != nil {
		return err
	}
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return err
	}
	return r.Lock.WithLock(ctx, func() error {
		set, err := r.loadQuestions(ctx)
		if err != nil {
			return err
		}
		idx, q, ok := set.find(id)
		if !ok {
			return ErrNotFound
		}
		q.Text = c.Text
		q.Category = c.Category
		q.Kind = c.Kind
		q.ModifiedBy = modifier
		q.ModifiedDate = r.today()
		return r.Store.WriteRange(ctx, r.Sheets.Questions, idx, 1, sheet.Grid{encodeQuestion(q)})
	})
}

// SetQuestionHidden toggles a question's hidden flag.
func (r *Repository) SetQuestionHidden(ctx context.Context, actor string, id int, hidden bool) error {
	modifier, err := r.Identity.ResourceID(ctx, actor)
	if err != nil {
		return err
	}
	return r.Lock.WithLock(ctx, func() error {
		set, err := r.loadQuestions(ctx)
		if err != nil {
			return err
		}
		idx, q, ok := set.find(id)
		if !ok {
			return ErrNotFound
		}
		q.Hidden = hidden
		q.ModifiedBy = modifier
		q.ModifiedDate = r.today()
		return r.Store.WriteRange(ctx, r.Sheets.Questions, idx, 1, sheet.Grid{encodeQuestion(q)})
	})
}

// CheckValue validates a candidate answer against the question's kind using
// the per-kind checker. A rejected value surfaces as a ValidationError on the
// value field.
func (r *Repository) CheckValue(ctx context.Context, id int, value string) error {
	set, err := r.loadQuestions(ctx)
	if err != nil {
		return err
	}
	_, q, ok := set.find(id)
	if !ok {
		return ErrNotFound
	}
	check, ok := CheckerFor(q.Kind)
	if !ok {
		return expectation.ValidationError{Field: "kind", Reason: "question kind has no checker"}
	}
	return check(value, r.Rules)
}

// ListQuestions returns every question row in storage order.
func (r *Repository) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	set, err := r.loadQuestions(ctx)
	if err != nil {
		return nil, err
	}
	return set.records, nil
}

// ListLinks returns every form-question link in storage order.
func (r *Repository) ListLinks(ctx context.Context) ([]domain.FormQuestion, error) {
	set, err := r.loadLinks(ctx)
	if err != nil {
		return nil, err
	}
	return set.records, nil
}

type formSet struct {
	records []domain.Form
	indices []int
	total   int
}

func (s formSet) find(id int) (int, domain.Form, bool) {
	for i, f := range s.records {
		if f.ID == id {
			return s.indices[i], f, true
		}
	}
	return 0, domain.Form{}, false
}

type questionSet struct {
	records []domain.Question
	indices []int
	total   int
}

func (s questionSet) find(id int) (int, domain.Question, bool) {
	for i, q := range s.records {
		if q.ID == id {
			return s.indices[i], q, true
		}
	}
	return 0, domain.Question{}, false
}

type linkSet struct {
	records []domain.FormQuestion
	indices []int
	total   int
}

func (r *Repository) loadForms(ctx context.Context) (formSet, error) {
	grid, err := sheet.ReadAll(ctx, r.Store, r.Sheets.Forms, formCols)
	if err != nil {
		return formSet{}, err
	}
	set := formSet{total: len(grid)}
	for i, row := range grid {
		if f, ok := decodeForm(row); ok {
			set.records = append(set.records, f)
			set.indices = append(set.indices, i+1)
		}
	}
	return set, nil
}

func (r *Repository) loadQuestions(ctx context.Context) (questionSet, error) {
	grid, err := sheet.ReadAll(ctx, r.Store, r.Sheets.Questions, questionCols)
	if err != nil {
		return questionSet{}, err
	}
	set := questionSet{total: len(grid)}
	for i, row := range grid {
		if q, ok := decodeQuestion(row); ok {
			set.records = append(set.records, q)
			set.indices = append(set.indices, i+1)
		}
	}
	return set, nil
}

func (r *Repository) loadLinks(ctx context.Context) (linkSet, error) {
	grid, err := sheet.ReadAll(ctx, r.Store, r.Sheets.Links, linkCols)
	if err != nil {
		return linkSet{}, err
	}
	set := linkSet{total: len(grid)}
	for i, row := range grid {
		if l, ok := decodeLink(row); ok {
			set.records = append(set.records, l)
			set.indices = append(set.indices, i+1)
		}
	}
	return set, nil
}

func formIDs(records []domain.Form) []int {
	ids := make([]int, len(records))
	for i, f := range records {
		ids[i] = f.ID
	}
	return ids
}

func questionIDs(records []domain.Question) []int {
	ids := make([]int, len(records))
	for i, q := range records {
		ids[i] = q.ID
	}
	return ids
}

func nextID(ids []int) int {
	maxID := 0
	for _, id := range ids {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}
