package terminology

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gofhir/fhir/r4"
	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/funcs"
)

func init() {
	// trace() output is not wanted in audit logs.
	funcs.SetTraceLogger(funcs.NullTraceLogger{})
}

const (
	// TerminologyServerProfile is the CapabilityStatement a terminology
	// server instantiates.
	TerminologyServerProfile = "http://hl7.org/fhir/CapabilityStatement/terminology-server"

	// ExpectedFHIRVersion is the FHIR release the audit targets.
	ExpectedFHIRVersion = r4.FHIRVersion("4.0.1")

	// StatusUnexpectedServer is reported when the server answers but is not
	// an R4 terminology server.
	StatusUnexpectedServer = http.StatusTeapot
)

var (
	capabilityExprOnce sync.Once
	capabilityExpr     *fhirpath.Expression
	capabilityExprErr  error
)

func compiledCapabilityExpr() (*fhirpath.Expression, error) {
	capabilityExprOnce.Do(func() {
		capabilityExpr, capabilityExprErr = fhirpath.Compile(fmt.Sprintf(
			"instantiates.first() = '%s' and fhirVersion = '%s'",
			TerminologyServerProfile, string(ExpectedFHIRVersion),
		))
	})
	return capabilityExpr, capabilityExprErr
}

// Capability fetches the server's capability statement and returns 200 when
// the server is an R4 terminology server, StatusUnexpectedServer when it
// answered with something else, and the HTTP status for any non-200 reply.
// An error is returned only when the server could not be reached.
func (c *Client) Capability(ctx context.Context) (int, error) {
	u := c.base.JoinPath(metadataPath)

	status, body, err := c.get(ctx, u.String())
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return httpErr.StatusCode, nil
		}
		return 0, err
	}
	if status != http.StatusOK {
		return status, nil
	}

	ok, err := MatchesTerminologyServer(body)
	if err != nil {
		c.logger.Warn().Err(err).Msg("capability statement could not be evaluated")
		return StatusUnexpectedServer, nil
	}
	if !ok {
		return StatusUnexpectedServer, nil
	}
	return http.StatusOK, nil
}

// MatchesTerminologyServer reports whether a CapabilityStatement declares the
// terminology server profile first and targets FHIR 4.0.1.
func MatchesTerminologyServer(capabilityStatement []byte) (bool, error) {
	if !jsonObject(capabilityStatement) {
		return false, errors.New("capability statement is not a JSON object")
	}
	expr, err := compiledCapabilityExpr()
	if err != nil {
		return false, fmt.Errorf("compile capability expression: %w", err)
	}
	res, err := expr.Evaluate(capabilityStatement)
	if err != nil {
		return false, fmt.Errorf("evaluate capability expression: %w", err)
	}
	if res.Empty() {
		return false, nil
	}
	return res.ToBoolean()
}
