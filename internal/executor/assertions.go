package executor

import (
	"fmt"
	"strconv"
	"strings"

	"api-tester-mcp/internal/types"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// evaluate checks every assertion against the response; the body is decoded at most once
func evaluate(assertions []types.Assertion, status int, contentType string, body []byte) []types.AssertionDetail {
	details := make([]types.AssertionDetail, 0, len(assertions))

	var (
		doc     any
		docErr  error
		decoded bool
	)
	document := func() (any, error) {
		if !decoded {
			decoded = true
			doc, docErr = oj.ParseString(string(body))
		}
		return doc, docErr
	}

	for _, a := range assertions {
		d := types.AssertionDetail{Assertion: a.String()}
		switch a.Kind {
		case types.AssertStatusCode:
			d.Passed = strconv.Itoa(status) == a.Expected
			d.Message = fmt.Sprintf("expected status %s, got %d", a.Expected, status)
		case types.AssertContentType:
			d.Passed = strings.Contains(strings.ToLower(contentType), strings.ToLower(a.Expected))
			d.Message = fmt.Sprintf("expected content-type %s, got %q", a.Expected, contentType)
		case types.AssertFieldPresent:
			d.Passed, d.Message = fieldPresent(a.Path, document)
		default:
			d.Message = fmt.Sprintf("unknown assertion kind %q", a.Kind)
		}
		details = append(details, d)
	}
	return details
}

func fieldPresent(path string, document func() (any, error)) (bool, string) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return false, fmt.Sprintf("invalid JSONPath %q: %v", path, err)
	}
	doc, err := document()
	if err != nil {
		return false, fmt.Sprintf("response body is not JSON: %v", err)
	}
	if len(expr.Get(doc)) == 0 {
		return false, fmt.Sprintf("field %s not found in response", path)
	}
	return true, fmt.Sprintf("field %s present", path)
}
