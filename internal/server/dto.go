package server

// Request payloads

type ExpectationRequest struct {
	ResourceID  int     `json:"resource_id"`
	Performance float64 `json:"performance"`
	OneToOne    float64 `json:"one_to_one"`
	SideBySide  float64 `json:"side_by_side"`
	StartDate   string  `json:"start_date" format:"date"`
	EndDate     string  `json:"end_date" format:"date"`
	Type        string  `json:"type" enum:"Default,Agent,Workgroup,Job Profile"`
	Active      bool    `json:"active"`
}

type StatusRequest struct {
	Active bool `json:"active"`
}

type FormCreateRequest struct {
	Name string `json:"name"`
}

type FormRenameRequest struct {
	Name string `json:"name"`
}

type HideRequest struct {
	Hidden bool `json:"hidden"`
}

type QuestionCreateRequest struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Kind     string `json:"kind" enum:"checkbox,text,category,identifier"`
	Rank     int    `json:"rank"`
}

type AnswerCheckRequest struct {
	Value string `json:"value"`
}

type QuestionUpdateRequest struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
	Kind     string `json:"kind" enum:"checkbox,text,category,identifier"`
}

type EmployeeRequest struct {
	ResourceID int    `json:"resource_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Workgroup  string `json:"workgroup,omitempty"`
	JobProfile string `json:"job_profile,omitempty"`
	Role       string `json:"role,omitempty"`
}

type RoleAssignRequest struct {
	Subject string `json:"subject"`
	Role    string `json:"role"`
}

type APIKeyMintRequest struct {
	Subject string `json:"subject"`
	Name    string `json:"name,omitempty"`
}

type DevLoginRequest struct {
	Subject string `json:"subject"`
}

// Response payloads

type DevLoginResponse struct {
	Token string `json:"token"`
}

type IDResponse struct {
	ID int `json:"id"`
}

type VersionResponse struct {
	Version int `json:"version"`
}

type WhoAmIResponse struct {
	Subject     string   `json:"subject"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions"`
}

type APIKeyMintResponse struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Name    string `json:"name,omitempty"`
	Key     string `json:"key"`
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
