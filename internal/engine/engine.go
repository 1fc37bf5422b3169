package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"coachline/internal/config"
	"coachline/internal/domain"
	"coachline/internal/events"
	"coachline/internal/expectation"
	"coachline/internal/forms"
	"coachline/internal/identity"
	"coachline/internal/projector"
	"coachline/internal/queue"
	"coachline/internal/sheet"
)

// Engine wires the sheet store, repositories, identity, audit log and the
// mutation queue behind one facade. Mutations go through the queue so they
// run one at a time in arrival order.
type Engine struct {
	Store        sheet.Store
	Lock         *sheet.Locker
	Expectations *expectation.Repository
	Forms        *forms.Repository
	Directory    identity.Directory
	Roles        identity.Roles
	Keys         identity.Keys
	Events       events.Writer
	Queue        *queue.Runner
	Config       *config.Config
	Log          *logrus.Logger
	Now          func() time.Time
}

func New(store sheet.Store, cfg *config.Config, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	timeout := cfg.Lock.Timeout
	if timeout <= 0 {
		timeout = sheet.DefaultLockTimeout
	}
	lock := sheet.NewLocker(timeout)
	dir := identity.Directory{Store: store, Sheet: cfg.Sheets.Employees}
	e := &Engine{
		Store:     store,
		Lock:      lock,
		Directory: dir,
		Roles:     identity.Roles{Store: store, Lock: lock, Sheet: cfg.Sheets.Properties},
		Keys:      identity.Keys{Store: store, Lock: lock, Sheet: cfg.Sheets.Credentials},
		Events:    events.Writer{Store: store, Sheet: cfg.Sheets.EventLog},
		Queue:     queue.NewRunner(64),
		Config:    cfg,
		Log:       log,
		Now:       time.Now,
	}
	e.Expectations = expectation.NewRepository(store, lock, cfg.Sheets.Expectations, dir)
	e.Expectations.Now = e.now
	e.Expectations.Zone = cfg.AuditLocation()
	e.Forms = forms.NewRepository(store, lock, forms.Sheets{
		Forms:     cfg.Sheets.Forms,
		Questions: cfg.Sheets.Questions,
		Links:     cfg.Sheets.FormQuestions,
	}, dir, forms.Rules{
		Categories:    cfg.Questions.Categories,
		MaxTextLength: cfg.Questions.MaxTextLength,
	})
	e.Forms.Now = e.now
	e.Forms.Zone = cfg.AuditLocation()
	e.Events.Now = e.now
	e.Keys.Now = e.now
	return e
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Close drains the mutation queue.
func (e *Engine) Close() {
	e.Queue.Close()
}

func (e *Engine) logEvent(ctx context.Context, evtType, entityKind, entityID, actor string, payload events.EventPayload) {
	if err := e.Events.Append(ctx, evtType, entityKind, entityID, actor, payload); err != nil {
		e.Log.WithError(err).WithField("type", evtType).Warn("append audit event")
	}
}

// AddExpectation submits the add through the mutation queue and logs the
// audit event on success.
func (e *Engine) AddExpectation(ctx context.Context, actor string, c expectation.Candidate) (int, error) {
	var id int
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		var err error
		id, err = e.Expectations.Add(ctx, actor, c)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.logEvent(ctx, "expectation.add", "expectation", strconv.Itoa(id), actor, events.EventPayload{
		"resource_id": c.ResourceID,
		"type":        c.Type,
		"start_date":  c.StartDate,
		"end_date":    c.EndDate,
	})
	return id, nil
}

// UpdateExpectation submits the in-place update through the mutation queue.
func (e *Engine) UpdateExpectation(ctx context.Context, actor string, id int, c expectation.Candidate) error {
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		return e.Expectations.Update(ctx, actor, id, c)
	})
	if err != nil {
		return err
	}
	e.logEvent(ctx, "expectation.update", "expectation", strconv.Itoa(id), actor, events.EventPayload{
		"resource_id": c.ResourceID,
		"type":        c.Type,
	})
	return nil
}

// SetExpectationStatus toggles the active flag through the mutation queue.
func (e *Engine) SetExpectationStatus(ctx context.Context, actor string, id int, active bool) error {
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		return e.Expectations.SetActive(ctx, actor, id, active)
	})
	if err != nil {
		return err
	}
	e.logEvent(ctx, "expectation.set_status", "expectation", strconv.Itoa(id), actor, events.EventPayload{
		"active": active,
	})
	return nil
}

func (e *Engine) ListExpectations(ctx context.Context) ([]domain.Expectation, error) {
	return e.Expectations.List(ctx)
}

func (e *Engine) GetExpectation(ctx context.Context, id int) (domain.Expectation, error) {
	return e.Expectations.Get(ctx, id)
}

// CreateForm creates an empty form at version 1.
func (e *Engine) CreateForm(ctx context.Context, actor, name string) (int, error) {
	var id int
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		var err error
		id, err = e.Forms.AddForm(ctx, actor, name)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.logEvent(ctx, "form.create", "form", strconv.Itoa(id), actor, events.EventPayload{"name": name})
	return id, nil
}

func (e *Engine) RenameForm(ctx context.Context, actor string, id int, name string) error {
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		return e.Forms.RenameForm(ctx, actor, id, name)
	})
	if err != nil {
		return err
	}
	e.logEvent(ctx, "form.rename", "form", strconv.Itoa(id), actor, events.EventPayload{"name": name})
	return nil
}

func (e *Engine) SetFormHidden(ctx context.Context, actor string, id int, hidden bool) error {
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		return e.Forms.SetFormHidden(ctx, actor, id, hidden)
	})
	if err != nil {
		return err
	}
	e.logEvent(ctx, "form.set_hidden", "form", strconv.Itoa(id), actor, events.EventPayload{"hidden": hidden})
	return nil
}

// RepublishForm bumps the form version and carries its links forward.
func (e *Engine) RepublishForm(ctx context.Context, actor string, id int) (int, error) {
	var version int
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		var err error
		version, err = e.Forms.Republish(ctx, actor, id)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.logEvent(ctx, "form.republish", "form", strconv.Itoa(id), actor, events.EventPayload{"version": version})
	return version, nil
}

func (e *Engine) ListForms(ctx context.Context) ([]domain.Form, error) {
	return e.Forms.ListForms(ctx)
}

func (e *Engine) GetForm(ctx context.Context, id int) (domain.Form, error) {
	return e.Forms.GetForm(ctx, id)
}

// AddQuestion appends a question and links it into the form's current
// version at the given rank.
func (e *Engine) AddQuestion(ctx context.Context, actor string, formID, rank int, c forms.QuestionCandidate) (int, error) {
	var id int
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		var err error
		id, err = e.Forms.AddQuestion(ctx, actor, formID, rank, c)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.logEvent(ctx, "question.add", "question", strconv.Itoa(id), actor, events.EventPayload{
		"form_id": formID,
		"kind":    c.Kind,
	})
	return id, nil
}

func (e *Engine) UpdateQuestion(ctx context.Context, actor string, id int, c forms.QuestionCandidate) error {
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		return e.Forms.UpdateQuestion(ctx, actor, id, c)
	})
	if err != nil {
		return err
	}
	e.logEvent(ctx, "question.update", "question", strconv.Itoa(id), actor, events.EventPayload{"kind": c.Kind})
	return nil
}

func (e *Engine) SetQuestionHidden(ctx context.Context, actor string, id int, hidden bool) error {
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		return e.Forms.SetQuestionHidden(ctx, actor, id, hidden)
	})
	if err != nil {
		return err
	}
	e.logEvent(ctx, "question.set_hidden", "question", strconv.Itoa(id), actor, events.EventPayload{"hidden": hidden})
	return nil
}

func (e *Engine) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	return e.Forms.ListQuestions(ctx)
}

// CheckAnswer is a read-only dry run: it validates a candidate answer value
// against the question's kind without writing anything.
func (e *Engine) CheckAnswer(ctx context.Context, id int, value string) error {
	return e.Forms.CheckValue(ctx, id, value)
}

// Snapshot rebuilds the read-side graph from the four row sets.
func (e *Engine) Snapshot(ctx context.Context) (projector.Graph, error) {
	employees, err := e.Directory.List(ctx)
	if err != nil {
		return projector.Graph{}, err
	}
	formList, err := e.Forms.ListForms(ctx)
	if err != nil {
		return projector.Graph{}, err
	}
	links, err := e.Forms.ListLinks(ctx)
	if err != nil {
		return projector.Graph{}, err
	}
	questions, err := e.Forms.ListQuestions(ctx)
	if err != nil {
		return projector.Graph{}, err
	}
	return projector.Build(employees, formList, links, questions), nil
}

// UpsertEmployee writes a directory row.
func (e *Engine) UpsertEmployee(ctx context.Context, actor string, emp domain.Employee) error {
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		return e.Lock.WithLock(ctx, func() error {
			return e.Directory.Upsert(ctx, emp)
		})
	})
	if err != nil {
		return err
	}
	e.logEvent(ctx, "employee.upsert", "employee", strconv.Itoa(emp.ResourceID), actor, events.EventPayload{
		"email": emp.Email,
	})
	return nil
}

func (e *Engine) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	return e.Directory.List(ctx)
}

// AssignRole sets a subject's role, validated against the config catalog.
func (e *Engine) AssignRole(ctx context.Context, actor, subject, role string) error {
	if role != "" {
		if _, ok := e.Config.Roles[role]; !ok {
			return expectation.ValidationError{Field: "role", Reason: "unknown role"}
		}
	}
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		return e.Roles.Assign(ctx, subject, role)
	})
	if err != nil {
		return err
	}
	e.logEvent(ctx, "role.assign", "subject", subject, actor, events.EventPayload{"role": role})
	return nil
}

func (e *Engine) RoleAssignments(ctx context.Context) (map[string]string, error) {
	return e.Roles.Get(ctx)
}

// PermissionsOf expands a subject's role into its permission list. The
// directory row's role is the fallback when no explicit assignment is set.
func (e *Engine) PermissionsOf(ctx context.Context, subject string) (string, []string, error) {
	role, err := e.Roles.RoleOf(ctx, subject)
	if err != nil {
		return "", nil, err
	}
	if role == "" {
		employees, err := e.Directory.List(ctx)
		if err != nil {
			return "", nil, err
		}
		for _, emp := range employees {
			if emp.Email == subject {
				role = emp.Role
				break
			}
		}
	}
	if role == "" {
		return "", nil, nil
	}
	def, ok := e.Config.Roles[role]
	if !ok {
		return role, nil, nil
	}
	return role, def.Permissions, nil
}

// MintAPIKey creates a key for subject and returns the record plus the
// plaintext, shown once.
func (e *Engine) MintAPIKey(ctx context.Context, actor, subject, name string) (domain.APIKey, string, error) {
	var rec domain.APIKey
	var plain string
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		var err error
		rec, plain, err = e.Keys.Mint(ctx, subject, name)
		return err
	})
	if err != nil {
		return domain.APIKey{}, "", err
	}
	e.logEvent(ctx, "apikey.mint", "apikey", rec.ID, actor, events.EventPayload{"subject": subject})
	return rec, plain, nil
}

func (e *Engine) ListAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	return e.Keys.List(ctx)
}

func (e *Engine) RevokeAPIKey(ctx context.Context, actor, id string) error {
	err := e.Queue.Submit(ctx, func(ctx context.Context) error {
		return e.Keys.Revoke(ctx, id)
	})
	if err != nil {
		return err
	}
	e.logEvent(ctx, "apikey.revoke", "apikey", id, actor, nil)
	return nil
}

// LogTail returns the most recent audit events.
func (e *Engine) LogTail(ctx context.Context, n int) ([]domain.Event, error) {
	return e.Events.Tail(ctx, n)
}
