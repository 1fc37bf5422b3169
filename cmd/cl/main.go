package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"coachline/internal/config"
	"coachline/internal/domain"
	"coachline/internal/engine"
	"coachline/internal/expectation"
	"coachline/internal/forms"
	"coachline/internal/migrate"
	"coachline/internal/server"
	"coachline/internal/sheet"
)

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Coachline CLI",
	Long: `Coachline manages coaching forms, versioned question sets and employee
performance expectations. Expectations carry a date range per resource and
type; two active expectations for the same resource and type may never
overlap. All records live in a row-oriented cell store under .coachline/.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := sheet.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	_ = godotenv.Load()
	viper.SetEnvPrefix("COACHLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor", "local-user", "actor subject (employee email)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor", rootCmd.PersistentFlags().Lookup("actor"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(expectationCmd())
	rootCmd.AddCommand(formCmd())
	rootCmd.AddCommand(questionCmd())
	rootCmd.AddCommand(employeeCmd())
	rootCmd.AddCommand(rolesCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var orgID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a workspace with the default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := sheet.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := sheet.OpenDB(sheet.DBConfig{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(orgID)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Initialized workspace: %s and %s\n", sheet.DBPath(workspace), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "default-org", "organization id")
	return cmd
}

func expectationCmd() *cobra.Command {
	exp := &cobra.Command{Use: "expectation", Short: "Manage expectations"}
	exp.AddCommand(expectationListCmd())
	exp.AddCommand(expectationAddCmd())
	exp.AddCommand(expectationShowCmd())
	exp.AddCommand(expectationUpdateCmd())
	exp.AddCommand(expectationSetStatusCmd())
	return exp
}

func expectationFlags(cmd *cobra.Command, c *expectation.Candidate) {
	cmd.Flags().IntVar(&c.ResourceID, "resource", 0, "resource id the expectation targets")
	cmd.Flags().Float64Var(&c.Performance, "performance", 0, "performance cadence")
	cmd.Flags().Float64Var(&c.OneToOne, "one-to-one", 0, "one-to-one cadence")
	cmd.Flags().Float64Var(&c.SideBySide, "side-by-side", 0, "side-by-side cadence")
	cmd.Flags().StringVar(&c.StartDate, "start", "", "start date (yyyy-MM-dd)")
	cmd.Flags().StringVar(&c.EndDate, "end", "", "end date (yyyy-MM-dd)")
	cmd.Flags().StringVar(&c.Type, "type", domain.TypeAgent, "expectation type")
}

func expectationListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expectations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListExpectations(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Resource", "Type", "Start", "End", "Active"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.ResourceID, it.Type, it.StartDate, it.EndDate, it.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func expectationAddCmd() *cobra.Command {
	var c expectation.Candidate
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add expectation",
		RunE: func(cmd *cobra.Command, args []string) error {
			c.Active = true
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				id, err := e.AddExpectation(ctx, viper.GetString("actor"), c)
				if err != nil {
					return err
				}
				item, err := e.GetExpectation(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	expectationFlags(cmd, &c)
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func expectationShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an expectation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				item, err := e.GetExpectation(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	return cmd
}

func expectationUpdateCmd() *cobra.Command {
	var c expectation.Candidate
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an expectation in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.UpdateExpectation(ctx, viper.GetString("actor"), id, c); err != nil {
					return err
				}
				item, err := e.GetExpectation(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	expectationFlags(cmd, &c)
	return cmd
}

func expectationSetStatusCmd() *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "set-status <id>",
		Short: "Activate or archive an expectation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.SetExpectationStatus(ctx, viper.GetString("actor"), id, active); err != nil {
					return err
				}
				item, err := e.GetExpectation(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().BoolVar(&active, "active", true, "desired active state")
	return cmd
}

func formCmd() *cobra.Command {
	form := &cobra.Command{Use: "form", Short: "Manage forms"}
	form.AddCommand(formListCmd())
	form.AddCommand(formCreateCmd())
	form.AddCommand(formRenameCmd())
	form.AddCommand(formHideCmd())
	form.AddCommand(formRepublishCmd())
	return form
}

func formListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List forms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListForms(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Version", "Hidden"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Name, it.Version, it.Hidden})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func formCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create form",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				id, err := e.CreateForm(ctx, viper.GetString("actor"), name)
				if err != nil {
					return err
				}
				item, err := e.GetForm(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(item)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "form name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func formRenameCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "rename <id>",
		Short: "Rename form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.RenameForm(ctx, viper.GetString("actor"), id, name)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func formHideCmd() *cobra.Command {
	var hidden bool
	cmd := &cobra.Command{
		Use:   "hide <id>",
		Short: "Hide or unhide form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.SetFormHidden(ctx, viper.GetString("actor"), id, hidden)
			})
		},
	}
	cmd.Flags().BoolVar(&hidden, "hidden", true, "desired hidden state")
	return cmd
}

func formRepublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "republish <id>",
		Short: "Republish form at the next version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				version, err := e.RepublishForm(ctx, viper.GetString("actor"), id)
				if err != nil {
					return err
				}
				fmt.Printf("form %d now at version %d\n", id, version)
				return nil
			})
		},
	}
	return cmd
}

func questionCmd() *cobra.Command {
	q := &cobra.Command{Use: "question", Short: "Manage questions"}
	q.AddCommand(questionListCmd())
	q.AddCommand(questionAddCmd())
	q.AddCommand(questionUpdateCmd())
	q.AddCommand(questionHideCmd())
	q.AddCommand(questionCheckCmd())
	return q
}

func questionListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListQuestions(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Text", "Category", "Kind", "Hidden"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Text, it.Category, it.Kind, it.Hidden})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func questionAddCmd() *cobra.Command {
	var formID, rank int
	var c forms.QuestionCandidate
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add question to a form",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				id, err := e.AddQuestion(ctx, viper.GetString("actor"), formID, rank, c)
				if err != nil {
					return err
				}
				fmt.Printf("question %d added to form %d\n", id, formID)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&formID, "form", 0, "form id")
	cmd.Flags().IntVar(&rank, "rank", 1, "display rank")
	cmd.Flags().StringVar(&c.Text, "text", "", "question text")
	cmd.Flags().StringVar(&c.Category, "category", "", "question category")
	cmd.Flags().StringVar(&c.Kind, "kind", forms.KindText, "question kind (checkbox, text, category, identifier)")
	_ = cmd.MarkFlagRequired("form")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func questionUpdateCmd() *cobra.Command {
	var c forms.QuestionCandidate
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a question in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.UpdateQuestion(ctx, viper.GetString("actor"), id, c)
			})
		},
	}
	cmd.Flags().StringVar(&c.Text, "text", "", "question text")
	cmd.Flags().StringVar(&c.Category, "category", "", "question category")
	cmd.Flags().StringVar(&c.Kind, "kind", forms.KindText, "question kind")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}

func questionHideCmd() *cobra.Command {
	var hidden bool
	cmd := &cobra.Command{
		Use:   "hide <id>",
		Short: "Hide or unhide question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.SetQuestionHidden(ctx, viper.GetString("actor"), id, hidden)
			})
		},
	}
	cmd.Flags().BoolVar(&hidden, "hidden", true, "desired hidden state")
	return cmd
}

func questionCheckCmd() *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Dry-run an answer value against a question's kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				if err := e.CheckAnswer(ctx, id, value); err != nil {
					return err
				}
				fmt.Printf("value accepted for question %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "candidate answer value")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func employeeCmd() *cobra.Command {
	emp := &cobra.Command{Use: "employee", Short: "Manage the employee directory"}
	emp.AddCommand(employeeListCmd())
	emp.AddCommand(employeeUpsertCmd())
	return emp
}

func employeeListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListEmployees(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Resource", "Name", "Email", "Workgroup", "Job Profile", "Role"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.ResourceID, it.Name, it.Email, it.Workgroup, it.JobProfile, it.Role})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func employeeUpsertCmd() *cobra.Command {
	var emp domain.Employee
	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Create or replace an employee row",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.UpsertEmployee(ctx, viper.GetString("actor"), emp)
			})
		},
	}
	cmd.Flags().IntVar(&emp.ResourceID, "resource", 0, "resource id")
	cmd.Flags().StringVar(&emp.Name, "name", "", "full name")
	cmd.Flags().StringVar(&emp.Email, "email", "", "email (subject for auth)")
	cmd.Flags().StringVar(&emp.Workgroup, "workgroup", "", "workgroup")
	cmd.Flags().StringVar(&emp.JobProfile, "job-profile", "", "job profile")
	cmd.Flags().StringVar(&emp.Role, "role", "", "default role")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func rolesCmd() *cobra.Command {
	roles := &cobra.Command{Use: "roles", Short: "Role assignments"}
	roles.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List role assignments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				assignments, err := e.RoleAssignments(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(assignments)
			})
		},
	})
	var subject, role string
	assign := &cobra.Command{
		Use:   "assign",
		Short: "Assign a role to a subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.AssignRole(ctx, viper.GetString("actor"), subject, role)
			})
		},
	}
	assign.Flags().StringVar(&subject, "subject", "", "subject (employee email)")
	assign.Flags().StringVar(&role, "role", "", "role id (empty removes)")
	_ = assign.MarkFlagRequired("subject")
	roles.AddCommand(assign)
	return roles
}

func apikeyCmd() *cobra.Command {
	keys := &cobra.Command{Use: "apikey", Short: "API keys"}
	var subject, name string
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Mint an API key (plaintext shown once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				rec, plain, err := e.MintAPIKey(ctx, viper.GetString("actor"), subject, name)
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]string{
					"id":      rec.ID,
					"subject": rec.Subject,
					"key":     plain,
				})
			})
		},
	}
	mint.Flags().StringVar(&subject, "subject", "", "subject the key acts as")
	mint.Flags().StringVar(&name, "name", "", "key label")
	_ = mint.MarkFlagRequired("subject")
	keys.AddCommand(mint)
	keys.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListAPIKeys(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	})
	keys.AddCommand(&cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				return e.RevokeAPIKey(ctx, viper.GetString("actor"), args[0])
			})
		},
	})
	return keys
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Show the read-side graph of names, forms and questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				graph, err := e.Snapshot(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(graph)
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Audit log"}
	var n int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.LogTail(ctx, n)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"TS", "Type", "Entity", "ID", "Actor"})
				for _, it := range items {
					tw.AppendRow(table.Row{it.TS, it.Type, it.EntityKind, it.EntityID, it.Actor})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVarP(&n, "lines", "n", 50, "number of events")
	log.AddCommand(tail)
	return log
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			secret := os.Getenv("COACHLINE_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("COACHLINE_JWT_SECRET is required for bearer auth")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				e.Log = log
				handler, err := server.New(server.Config{
					Engine:   e,
					BasePath: basePath,
					Auth: server.AuthConfig{
						JWTSecret:     secret,
						AllowDevLogin: devLogin,
						Logger:        log,
					},
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(shutdownCtx)
				}()
				log.WithField("addr", addr).Info("serving Coachline API")
				fmt.Printf("Serving Coachline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "enable the dev token mint endpoint")
	return cmd
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("COACHLINE_LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
	return log
}

func openStore(workspace string) (*sql.DB, *sheet.SQLiteStore, error) {
	conn, err := sheet.OpenDB(sheet.DBConfig{Workspace: workspace})
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, sheet.NewSQLiteStore(conn), nil
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, store, err := openStore(workspace)
	if err != nil {
		return err
	}
	defer conn.Close()
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	e := engine.New(store, cfg, newLogger())
	defer e.Close()
	return fn(ctx, e)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
