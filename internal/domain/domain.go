package domain

// Expectation type values; they disambiguate what ResourceID points at.
const (
	TypeDefault    = "Default"
	TypeAgent      = "Agent"
	TypeWorkgroup  = "Workgroup"
	TypeJobProfile = "Job Profile"
)

// ExpectationTypes lists the accepted expectation type values.
var ExpectationTypes = []string{TypeDefault, TypeAgent, TypeWorkgroup, TypeJobProfile}

// Expectation is a coaching-cadence assignment to a resource over a date range.
// Audit fields are stamped by the repository and never supplied by callers.
type Expectation struct {
	ID           int     `json:"id"`
	ResourceID   int     `json:"resource_id"`
	Performance  float64 `json:"performance"`
	OneToOne     float64 `json:"one_to_one"`
	SideBySide   float64 `json:"side_by_side"`
	StartDate    string  `json:"start_date" format:"date"`
	EndDate      string  `json:"end_date" format:"date"`
	Type         string  `json:"type" enum:"Default,Agent,Workgroup,Job Profile"`
	Active       bool    `json:"active"`
	CreatedBy    int     `json:"created_by"`
	CreatedDate  string  `json:"created_date" format:"date"`
	ModifiedBy   int     `json:"modified_by"`
	ModifiedDate string  `json:"modified_date" format:"date"`
}

type Form struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Version      int    `json:"version"`
	Hidden       bool   `json:"hidden"`
	CreatedBy    int    `json:"created_by"`
	CreatedDate  string `json:"created_date" format:"date"`
	ModifiedBy   int    `json:"modified_by"`
	ModifiedDate string `json:"modified_date" format:"date"`
}

// Question carries the reusable metadata; membership in a form version is
// expressed through FormQuestion links.
type Question struct {
	ID           int    `json:"id"`
	Text         string `json:"text"`
	Category     string `json:"category"`
	Kind         string `json:"kind" enum:"checkbox,text,category,identifier"`
	Hidden       bool   `json:"hidden"`
	CreatedBy    int    `json:"created_by"`
	CreatedDate  string `json:"created_date" format:"date"`
	ModifiedBy   int    `json:"modified_by"`
	ModifiedDate string `json:"modified_date" format:"date"`
}

// FormQuestion links a question into exactly one version of exactly one form
// at a display rank.
type FormQuestion struct {
	FormID     int `json:"form_id"`
	QuestionID int `json:"question_id"`
	Version    int `json:"version"`
	Rank       int `json:"rank"`
}

// Employee is a directory row; ResourceID is the audit identifier stamped
// onto expectation records.
type Employee struct {
	ResourceID int    `json:"resource_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Workgroup  string `json:"workgroup"`
	JobProfile string `json:"job_profile"`
	Role       string `json:"role" enum:"admin,manager,coach,viewer"`
}

type APIKey struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Event is one audit log row.
type Event struct {
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Actor      string `json:"actor"`
	Payload    string `json:"payload_json"`
}

// ValidExpectationType reports membership in the fixed type set.
func ValidExpectationType(t string) bool {
	for _, v := range ExpectationTypes {
		if v == t {
			return true
		}
	}
	return false
}
