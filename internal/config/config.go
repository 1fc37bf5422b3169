package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models coachline.yml.
type Config struct {
	Org struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"org"`
	Sheets struct {
		Expectations  string `yaml:"expectations"`
		Employees     string `yaml:"employees"`
		Forms         string `yaml:"forms"`
		FormQuestions string `yaml:"form_questions"`
		Questions     string `yaml:"questions"`
		Properties    string `yaml:"properties"`
		Credentials   string `yaml:"credentials"`
		EventLog      string `yaml:"event_log"`
	} `yaml:"sheets"`
	Expectations struct {
		Types []string `yaml:"types"`
	} `yaml:"expectations"`
	Questions struct {
		Categories    []string `yaml:"categories"`
		MaxTextLength int      `yaml:"max_text_length"`
	} `yaml:"questions"`
	Roles map[string]Role `yaml:"roles"`
	Lock  struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"lock"`
	Audit struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"audit"`
}

type Role struct {
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Org.ID == "" {
		return fmt.Errorf("config.org.id is required")
	}
	sheets := map[string]string{
		"sheets.expectations":   c.Sheets.Expectations,
		"sheets.employees":      c.Sheets.Employees,
		"sheets.forms":          c.Sheets.Forms,
		"sheets.form_questions": c.Sheets.FormQuestions,
		"sheets.questions":      c.Sheets.Questions,
		"sheets.properties":     c.Sheets.Properties,
		"sheets.credentials":    c.Sheets.Credentials,
		"sheets.event_log":      c.Sheets.EventLog,
	}
	for key, name := range sheets {
		if name == "" {
			return fmt.Errorf("config.%s is required", key)
		}
	}
	if len(c.Expectations.Types) == 0 {
		return fmt.Errorf("config.expectations.types is required")
	}
	for _, t := range c.Expectations.Types {
		if t == "" {
			return fmt.Errorf("config.expectations.types contains an empty value")
		}
	}
	if len(c.Questions.Categories) == 0 {
		return fmt.Errorf("config.questions.categories is required")
	}
	if c.Questions.MaxTextLength <= 0 {
		return fmt.Errorf("config.questions.max_text_length must be positive")
	}
	if len(c.Roles) > 0 {
		if _, ok := c.Roles["admin"]; !ok {
			return fmt.Errorf("config.roles must include admin")
		}
		for roleID, role := range c.Roles {
			if roleID == "" {
				return fmt.Errorf("config.roles contains empty role id")
			}
			for _, perm := range role.Permissions {
				if perm == "" {
					return fmt.Errorf("role %s has empty permission id", roleID)
				}
			}
		}
	}
	if c.Lock.Timeout < 0 {
		return fmt.Errorf("config.lock.timeout must not be negative")
	}
	if c.Audit.Timezone != "" {
		if _, err := time.LoadLocation(c.Audit.Timezone); err != nil {
			return fmt.Errorf("config.audit.timezone: %w", err)
		}
	}
	return nil
}

// AuditLocation resolves the fixed time zone for stamped audit dates.
func (c *Config) AuditLocation() *time.Location {
	if c.Audit.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Audit.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "coachline.yml")
}

// Load reads and validates config from workspace, falling back to the
// default when the file does not exist.
func Load(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default("default-org"), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for an org.
func Default(orgID string) *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, orgID))).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault(orgID string) string {
	return fmt.Sprintf(defaultTemplate, orgID)
}

const defaultTemplate = `org:
  id: %s
  name: Coaching Operations

sheets:
  expectations: Expectations
  employees: Employees
  forms: Forms
  form_questions: FormQuestions
  questions: Questions
  properties: Properties
  credentials: Credentials
  event_log: EventLog

expectations:
  types: [Default, Agent, Workgroup, Job Profile]

questions:
  categories: [Greeting, Discovery, Resolution, Compliance, Closing]
  max_text_length: 500

roles:
  admin:
    description: "Full control including role assignment"
    permissions: [expectation.write, expectation.read, form.write, form.read, roles.write, roles.read, apikey.write, log.read]
  manager:
    description: "Manages expectations and forms"
    permissions: [expectation.write, expectation.read, form.write, form.read, roles.read, log.read]
  coach:
    description: "Runs coaching sessions"
    permissions: [expectation.read, form.read]
  viewer:
    description: "Read-only access"
    permissions: [expectation.read, form.read]

lock:
  timeout: 2m

audit:
  timezone: UTC
`
