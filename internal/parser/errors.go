package parser

import (
	"fmt"

	"api-tester-mcp/internal/types"
)

// Reasons reported by ParseError
const (
	ReasonMalformed   = "malformed document"
	ReasonMissing     = "missing required structure"
	ReasonUnsupported = "unsupported specification version"
)

// ParseError reports a specification that cannot be ingested. No endpoints are
// produced when it is returned.
type ParseError struct {
	SpecType types.SpecType
	Reason   string
	Detail   string
	Err      error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("failed to parse %s specification: %s", e.SpecType, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(specType types.SpecType, reason, detail string, err error) *ParseError {
	return &ParseError{SpecType: specType, Reason: reason, Detail: detail, Err: err}
}
