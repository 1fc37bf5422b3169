package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"coachline/internal/domain"
	"coachline/internal/engine"
	"coachline/internal/expectation"
	"coachline/internal/forms"
	"coachline/internal/identity"
	"coachline/internal/projector"
	"coachline/internal/sheet"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   *engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"conflicting_expectation"`
	Message string         `json:"message" example:"date range overlaps active expectation 7"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"conflicting_id\":7}"`
}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Coachline API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request decode errors are 400 bad_request; 422 is
			// reserved for domain validation.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Keys))
	hcfg := huma.DefaultConfig("Coachline API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerExpectations(group, cfg.Engine)
	registerForms(group, cfg.Engine)
	registerQuestions(group, cfg.Engine)
	registerCatalog(group, cfg.Engine)
	registerEmployees(group, cfg.Engine)
	registerRoles(group, cfg.Engine)
	registerAPIKeys(group, cfg.Engine)
	registerLog(group, cfg.Engine)
	registerMe(group, cfg.Engine)
	if cfg.Auth.AllowDevLogin {
		cfg.Auth.logger().Warn("dev login endpoint enabled; do not expose in production")
		registerDevAuth(group, cfg.Auth)
	}
	registerOpenAPI(router, api, basePath)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// handleError maps each domain error kind onto its envelope code so
// callers can branch without string matching.
func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve expectation.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{"field": ve.Field})
	}
	var ce expectation.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusConflict, "conflicting_expectation", err.Error(), map[string]any{"conflicting_id": ce.ConflictingID})
	}
	if errors.Is(err, expectation.ErrNotFound) || errors.Is(err, forms.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, sheet.ErrLockTimeout) {
		return newAPIError(http.StatusServiceUnavailable, "lock_timeout", err.Error(), nil)
	}
	if errors.Is(err, identity.ErrKeyNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	if errors.Is(err, identity.ErrIdentityNotFound) {
		return newAPIError(http.StatusForbidden, "identity_not_found", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflicting_expectation"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusServiceUnavailable:
		return "lock_timeout"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func hasPermission(perms []string, perm string) bool {
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

func requirePermission(ctx context.Context, e *engine.Engine, perm string) (string, huma.StatusError) {
	principal, authErr := principalFromRequest(ctx)
	if authErr != nil {
		return "", authErr
	}
	_, perms, err := e.PermissionsOf(ctx, principal.Subject)
	if err != nil {
		return "", handleError(err)
	}
	if !hasPermission(perms, perm) {
		return "", newAPIError(http.StatusForbidden, "forbidden", fmt.Sprintf("permission %s required", perm), map[string]any{"permission": perm})
	}
	return principal.Subject, nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	open := map[string]bool{
		"/" + strings.TrimPrefix(path.Join(basePath, "health"), "/"):         true,
		"/" + strings.TrimPrefix(path.Join(basePath, "auth/dev/login"), "/"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Coachline API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func candidateFromRequest(req ExpectationRequest) expectation.Candidate {
	return expectation.Candidate{
		ResourceID:  req.ResourceID,
		Performance: req.Performance,
		OneToOne:    req.OneToOne,
		SideBySide:  req.SideBySide,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Type:        req.Type,
		Active:      req.Active,
	}
}

func registerExpectations(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-expectations",
		Method:      http.MethodGet,
		Path:        "/expectations",
		Summary:     "List expectations",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Expectation `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "expectation.read"); err != nil {
			return nil, err
		}
		items, err := e.ListExpectations(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Expectation `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-expectation",
		Method:        http.MethodPost,
		Path:          "/expectations",
		Summary:       "Add expectation",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusForbidden,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body ExpectationRequest `json:"body"`
	}) (*struct {
		Body IDResponse `json:"body"`
	}, error) {
		subject, authErr := requirePermission(ctx, e, "expectation.write")
		if authErr != nil {
			return nil, authErr
		}
		id, err := e.AddExpectation(ctx, subject, candidateFromRequest(input.Body))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDResponse `json:"body"`
		}{Body: IDResponse{ID: id}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-expectation",
		Method:      http.MethodGet,
		Path:        "/expectations/{id}",
		Summary:     "Get expectation",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int `path:"id"`
	}) (*struct {
		Body domain.Expectation `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "expectation.read"); err != nil {
			return nil, err
		}
		item, err := e.GetExpectation(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Expectation `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-expectation",
		Method:      http.MethodPut,
		Path:        "/expectations/{id}",
		Summary:     "Update expectation",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   int                `path:"id"`
		Body ExpectationRequest `json:"body"`
	}) (*struct{}, error) {
		subject, authErr := requirePermission(ctx, e, "expectation.write")
		if authErr != nil {
			return nil, authErr
		}
		if err := e.UpdateExpectation(ctx, subject, input.ID, candidateFromRequest(input.Body)); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-expectation-status",
		Method:      http.MethodPost,
		Path:        "/expectations/{id}/status",
		Summary:     "Activate or archive expectation",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   int           `path:"id"`
		Body StatusRequest `json:"body"`
	}) (*struct{}, error) {
		subject, authErr := requirePermission(ctx, e, "expectation.write")
		if authErr != nil {
			return nil, authErr
		}
		if err := e.SetExpectationStatus(ctx, subject, input.ID, input.Body.Active); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerForms(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-forms",
		Method:      http.MethodGet,
		Path:        "/forms",
		Summary:     "List forms",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Form `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "form.read"); err != nil {
			return nil, err
		}
		items, err := e.ListForms(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Form `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-form",
		Method:        http.MethodPost,
		Path:          "/forms",
		Summary:       "Create form",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusForbidden,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body FormCreateRequest `json:"body"`
	}) (*struct {
		Body IDResponse `json:"body"`
	}, error) {
		subject, authErr := requirePermission(ctx, e, "form.write")
		if authErr != nil {
			return nil, authErr
		}
		id, err := e.CreateForm(ctx, subject, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDResponse `json:"body"`
		}{Body: IDResponse{ID: id}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-form",
		Method:      http.MethodGet,
		Path:        "/forms/{id}",
		Summary:     "Get form",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int `path:"id"`
	}) (*struct {
		Body domain.Form `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "form.read"); err != nil {
			return nil, err
		}
		item, err := e.GetForm(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Form `json:"body"`
		}{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rename-form",
		Method:      http.MethodPut,
		Path:        "/forms/{id}",
		Summary:     "Rename form",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   int               `path:"id"`
		Body FormRenameRequest `json:"body"`
	}) (*struct{}, error) {
		subject, authErr := requirePermission(ctx, e, "form.write")
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RenameForm(ctx, subject, input.ID, input.Body.Name); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "hide-form",
		Method:      http.MethodPost,
		Path:        "/forms/{id}/hide",
		Summary:     "Hide or unhide form",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   int         `path:"id"`
		Body HideRequest `json:"body"`
	}) (*struct{}, error) {
		subject, authErr := requirePermission(ctx, e, "form.write")
		if authErr != nil {
			return nil, authErr
		}
		if err := e.SetFormHidden(ctx, subject, input.ID, input.Body.Hidden); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "republish-form",
		Method:      http.MethodPost,
		Path:        "/forms/{id}/republish",
		Summary:     "Republish form at the next version",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID int `path:"id"`
	}) (*struct {
		Body VersionResponse `json:"body"`
	}, error) {
		subject, authErr := requirePermission(ctx, e, "form.write")
		if authErr != nil {
			return nil, authErr
		}
		version, err := e.RepublishForm(ctx, subject, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body VersionResponse `json:"body"`
		}{Body: VersionResponse{Version: version}}, nil
	})
}

func registerQuestions(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-questions",
		Method:      http.MethodGet,
		Path:        "/questions",
		Summary:     "List questions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Question `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "form.read"); err != nil {
			return nil, err
		}
		items, err := e.ListQuestions(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Question `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-question",
		Method:        http.MethodPost,
		Path:          "/forms/{form_id}/questions",
		Summary:       "Add question to form",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		FormID int                   `path:"form_id"`
		Body   QuestionCreateRequest `json:"body"`
	}) (*struct {
		Body IDResponse `json:"body"`
	}, error) {
		subject, authErr := requirePermission(ctx, e, "form.write")
		if authErr != nil {
			return nil, authErr
		}
		id, err := e.AddQuestion(ctx, subject, input.FormID, input.Body.Rank, forms.QuestionCandidate{
			Text:     input.Body.Text,
			Category: input.Body.Category,
			Kind:     input.Body.Kind,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IDResponse `json:"body"`
		}{Body: IDResponse{ID: id}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-question",
		Method:      http.MethodPut,
		Path:        "/questions/{id}",
		Summary:     "Update question",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   int                   `path:"id"`
		Body QuestionUpdateRequest `json:"body"`
	}) (*struct{}, error) {
		subject, authErr := requirePermission(ctx, e, "form.write")
		if authErr != nil {
			return nil, authErr
		}
		err := e.UpdateQuestion(ctx, subject, input.ID, forms.QuestionCandidate{
			Text:     input.Body.Text,
			Category: input.Body.Category,
			Kind:     input.Body.Kind,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "hide-question",
		Method:      http.MethodPost,
		Path:        "/questions/{id}/hide",
		Summary:     "Hide or unhide question",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   int         `path:"id"`
		Body HideRequest `json:"body"`
	}) (*struct{}, error) {
		subject, authErr := requirePermission(ctx, e, "form.write")
		if authErr != nil {
			return nil, authErr
		}
		if err := e.SetQuestionHidden(ctx, subject, input.ID, input.Body.Hidden); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-answer",
		Method:      http.MethodPost,
		Path:        "/questions/{id}/check",
		Summary:     "Dry-run an answer value against the question kind",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   int                `path:"id"`
		Body AnswerCheckRequest `json:"body"`
	}) (*struct{}, error) {
		if _, authErr := requirePermission(ctx, e, "form.read"); authErr != nil {
			return nil, authErr
		}
		if err := e.CheckAnswer(ctx, input.ID, input.Body.Value); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerCatalog(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "catalog",
		Method:      http.MethodGet,
		Path:        "/catalog",
		Summary:     "Read-side graph of names, forms and questions",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body projector.Graph `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "form.read"); err != nil {
			return nil, err
		}
		graph, err := e.Snapshot(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body projector.Graph `json:"body"`
		}{Body: graph}, nil
	})
}

func registerEmployees(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-employees",
		Method:      http.MethodGet,
		Path:        "/employees",
		Summary:     "List employees",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Employee `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "expectation.read"); err != nil {
			return nil, err
		}
		items, err := e.ListEmployees(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Employee `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "upsert-employee",
		Method:      http.MethodPut,
		Path:        "/employees",
		Summary:     "Create or replace an employee row",
		Errors: []int{
			http.StatusForbidden,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body EmployeeRequest `json:"body"`
	}) (*struct{}, error) {
		subject, authErr := requirePermission(ctx, e, "roles.write")
		if authErr != nil {
			return nil, authErr
		}
		err := e.UpsertEmployee(ctx, subject, domain.Employee{
			ResourceID: input.Body.ResourceID,
			Name:       input.Body.Name,
			Email:      input.Body.Email,
			Workgroup:  input.Body.Workgroup,
			JobProfile: input.Body.JobProfile,
			Role:       input.Body.Role,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerRoles(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-role-assignments",
		Method:      http.MethodGet,
		Path:        "/roles",
		Summary:     "List role assignments",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "roles.read"); err != nil {
			return nil, err
		}
		assignments, err := e.RoleAssignments(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: assignments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-role",
		Method:      http.MethodPost,
		Path:        "/roles/assign",
		Summary:     "Assign a role to a subject",
		Errors: []int{
			http.StatusForbidden,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body RoleAssignRequest `json:"body"`
	}) (*struct{}, error) {
		subject, authErr := requirePermission(ctx, e, "roles.write")
		if authErr != nil {
			return nil, authErr
		}
		if err := e.AssignRole(ctx, subject, input.Body.Subject, input.Body.Role); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerAPIKeys(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "mint-api-key",
		Method:        http.MethodPost,
		Path:          "/apikeys",
		Summary:       "Mint API key (plaintext shown once)",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusForbidden,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body APIKeyMintRequest `json:"body"`
	}) (*struct {
		Body APIKeyMintResponse `json:"body"`
	}, error) {
		subject, authErr := requirePermission(ctx, e, "apikey.write")
		if authErr != nil {
			return nil, authErr
		}
		rec, plain, err := e.MintAPIKey(ctx, subject, input.Body.Subject, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body APIKeyMintResponse `json:"body"`
		}{Body: APIKeyMintResponse{
			ID:      rec.ID,
			Subject: rec.Subject,
			Name:    rec.Name,
			Key:     plain,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/apikeys",
		Summary:     "List API keys",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.APIKey `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "apikey.write"); err != nil {
			return nil, err
		}
		items, err := e.ListAPIKeys(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.APIKey `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-api-key",
		Method:      http.MethodDelete,
		Path:        "/apikeys/{id}",
		Summary:     "Revoke API key",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		subject, authErr := requirePermission(ctx, e, "apikey.write")
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RevokeAPIKey(ctx, subject, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerLog(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "tail-log",
		Method:      http.MethodGet,
		Path:        "/log",
		Summary:     "Tail the audit log",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body []domain.Event `json:"body"`
	}, error) {
		if _, err := requirePermission(ctx, e, "log.read"); err != nil {
			return nil, err
		}
		items, err := e.LogTail(ctx, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Event `json:"body"`
		}{Body: nonNilSlice(items)}, nil
	})
}

func registerMe(api huma.API, e *engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors: []int{
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		role, perms, err := e.PermissionsOf(ctx, principal.Subject)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: WhoAmIResponse{
			Subject:     principal.Subject,
			Role:        role,
			Permissions: nonNilSlice(perms),
		}}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		subject := strings.TrimSpace(input.Body.Subject)
		if subject == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "subject is required", nil)
		}
		token, err := signDevToken(authCfg.JWTSecret, subject)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}
