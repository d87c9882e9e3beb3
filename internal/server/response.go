package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	executor "github.com/hanpama/apiform/internal/executor"
	fieldspec "github.com/hanpama/apiform/internal/fieldspec"
	schema "github.com/hanpama/apiform/internal/schema"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Detail      any    `json:"detail,omitempty"`
}

// scopeError reports an authenticated request lacking an endpoint scope.
type scopeError struct {
	scope string
}

func (e *scopeError) Error() string { return "scope not granted: " + e.scope }

// failure is an error translated into a response.
type failure struct {
	status int
	body   errorBody
	// defect marks failures caused by the server rather than the client.
	defect bool
	// cause replaces the original error in logs when translation failed.
	cause error
}

// translate maps err onto a response. req is used to serialize the detail of
// raised API errors.
func translate(err error, req *schema.Request) failure {
	var (
		raised   *schema.RaisedError
		execErr  *executor.Error
		jsonErr  *invalidJSONError
		specErr  *fieldspec.SyntaxError
		scopeErr *scopeError
	)
	switch {
	case errors.As(err, &raised):
		detail, serr := executor.Serialize(raised.Detail, raised.Type.Fields(), req, executor.Path{"detail"})
		if serr != nil {
			f := internalFailure()
			f.cause = fmt.Errorf("serialize detail of %s: %w", raised.Type.ID, serr)
			return f
		}
		body := errorBody{Code: raised.Type.Code, Description: raised.Type.Description}
		if len(detail) > 0 {
			body.Detail = detail
		}
		return failure{status: raised.Type.HTTPStatus, body: body}

	case errors.As(err, &execErr) && execErr.ClientError():
		detail := map[string]any{
			"kind": string(execErr.Kind),
			"path": execErr.Path.String(),
		}
		if execErr.Issue != "" {
			detail["issue"] = string(execErr.Issue)
		}
		if execErr.Argument != nil {
			detail["argument"] = execErr.Argument.Name
		}
		if execErr.Index >= 0 {
			detail["index"] = execErr.Index
		}
		if len(execErr.Errors) > 0 {
			detail["errors"] = execErr.Errors
		}
		return failure{status: http.StatusBadRequest, body: errorBody{
			Code:        string(execErr.Kind),
			Description: execErr.Error(),
			Detail:      detail,
		}}

	case errors.As(err, &jsonErr):
		return failure{status: http.StatusBadRequest, body: errorBody{
			Code:        "invalid_json_body",
			Description: "The JSON body provided with this request is invalid",
			Detail:      map[string]any{"details": jsonErr.details},
		}}

	case errors.Is(err, errBodyTooLarge):
		return failure{status: http.StatusRequestEntityTooLarge, body: errorBody{
			Code:        "body_too_large",
			Description: "The request body exceeds the configured limit",
		}}

	case errors.As(err, &specErr):
		return failure{status: http.StatusBadRequest, body: errorBody{
			Code:        "invalid_field_spec",
			Description: "The field spec provided with this request is invalid",
			Detail:      map[string]any{"details": specErr.Error()},
		}}

	case errors.As(err, &scopeErr):
		return failure{status: http.StatusForbidden, body: errorBody{
			Code:        "scope_not_granted",
			Description: "The scope required for this endpoint has not been granted",
			Detail:      map[string]any{"scope": scopeErr.scope},
		}}
	}
	return internalFailure()
}

func internalFailure() failure {
	return failure{status: http.StatusInternalServerError, defect: true, body: errorBody{
		Code:        "internal_error",
		Description: "An internal error occurred while processing this request",
	}}
}

func writeJSON(w http.ResponseWriter, status int, v any, pretty bool, logger *zap.Logger) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		logger.Error("encode response", zap.Error(err))
		status = http.StatusInternalServerError
		data, _ = json.Marshal(internalFailure().body)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
