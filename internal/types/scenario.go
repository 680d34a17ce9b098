package types

// Category is the scenario taxonomy rank
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNegative Category = "negative"
	CategoryEdge     Category = "edge"
)

// Categories lists the taxonomy in rank order
var Categories = []Category{CategoryPositive, CategoryNegative, CategoryEdge}

// Outcome is the expected result class of a scenario
type Outcome string

const (
	OutcomeSuccess           Outcome = "success"
	OutcomeAuthFailure       Outcome = "auth_failure"
	OutcomeValidationFailure Outcome = "validation_failure"
)

// Mutation describes how an edge scenario corrupts its target field
type Mutation string

const (
	MutationMissing    Mutation = "missing"
	MutationWrongType  Mutation = "wrong_type"
	MutationOverLength Mutation = "over_length"
)

// Inputs holds the concrete parameter values chosen for a scenario.
// String values may contain {name} placeholders resolved later from env vars.
type Inputs struct {
	PathParams  map[string]any    `json:"path_params,omitempty"`
	QueryParams map[string]any    `json:"query_params,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        any               `json:"body,omitempty"`
}

// Scenario is an abstract test intent for one endpoint
type Scenario struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	EndpointRef int      `json:"endpoint_ref"`
	Method      string   `json:"method"`
	Path        string   `json:"path"`
	Category    Category `json:"category"`
	Inputs      Inputs   `json:"inputs"`
	Expected    Outcome  `json:"expected_outcome"`
	IncludeAuth bool     `json:"include_auth"`
	Field       string   `json:"field,omitempty"`
	Mutation    Mutation `json:"mutation,omitempty"`
}

// AssertionKind identifies what an assertion checks
type AssertionKind string

const (
	AssertStatusCode   AssertionKind = "status_code"
	AssertContentType  AssertionKind = "content_type"
	AssertFieldPresent AssertionKind = "field_present"
)

// Assertion is a single check evaluated against a response
type Assertion struct {
	Kind     AssertionKind `json:"kind"`
	Expected string        `json:"expected,omitempty"`
	Path     string        `json:"path,omitempty"`
}

// String renders the assertion for reports
func (a Assertion) String() string {
	switch a.Kind {
	case AssertStatusCode:
		return "status_code == " + a.Expected
	case AssertContentType:
		return "content-type contains " + a.Expected
	case AssertFieldPresent:
		return "field present " + a.Path
	default:
		return string(a.Kind)
	}
}

// TestCase is a fully resolved HTTP request derived from exactly one scenario
type TestCase struct {
	ID               string            `json:"id"`
	ScenarioRef      string            `json:"scenario_ref"`
	Name             string            `json:"name"`
	Method           string            `json:"method"`
	URL              string            `json:"url"`
	Headers          map[string]string `json:"headers,omitempty"`
	Body             any               `json:"body,omitempty"`
	ExpectedStatus   int               `json:"expected_status"`
	Assertions       []Assertion       `json:"assertions"`
	Unresolved       bool              `json:"unresolved"`
	MissingVariables []string          `json:"missing_variables,omitempty"`
	CredentialParams []string          `json:"credential_params,omitempty"`
}
