package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"driver-application/internal/application/store"
	apperrors "driver-application/internal/common/errors"
	"driver-application/internal/common/validation"
	"driver-application/internal/models"
)

type errorBody struct {
	Code    apperrors.ErrorCode    `json:"code"`
	Message string                 `json:"message"`
	Fields  validation.FieldErrors `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders a StandardError as {"error": {code, message}}. Details and
// metadata stay in the logs.
func writeError(w http.ResponseWriter, stdErr *apperrors.StandardError) {
	writeJSON(w, apperrors.HTTPStatus(stdErr.Code), map[string]errorBody{
		"error": {Code: stdErr.Code, Message: stdErr.Message},
	})
}

func writeValidation(w http.ResponseWriter, fields validation.FieldErrors) {
	stdErr := apperrors.NewValidationFailedError(fields.Error())
	writeJSON(w, apperrors.HTTPStatus(stdErr.Code), map[string]errorBody{
		"error": {Code: stdErr.Code, Message: stdErr.Message, Fields: fields},
	})
}

// storeError maps persistence failures onto the API's error codes.
func storeError(err error, id string) *apperrors.StandardError {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidSide):
		return apperrors.NewDraftNotFoundError(id)
	case errors.Is(err, store.ErrAlreadySubmitted):
		return apperrors.NewAlreadySubmittedError(id)
	default:
		return apperrors.NewDatabaseUnavailableError(err)
	}
}

var errBodyTooLarge = errors.New("request body too large")

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, errBodyTooLarge
	}
	return body, err
}

// decodeJSON decodes the body into dst and answers 422 itself on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) ([]byte, bool) {
	body, err := readBody(w, r, maxJSONBodyBytes)
	if err == nil {
		err = json.Unmarshal(body, dst)
	}
	if err != nil {
		var fields validation.FieldErrors
		fields.Add("(root)", validation.CodeInvalidType, "Request body must be a JSON object")
		if errors.Is(err, errBodyTooLarge) {
			fields = validation.FieldErrors{{Field: "(root)", Code: validation.CodeMaxLength, Message: "Request body is too large"}}
		}
		writeValidation(w, fields)
		return nil, false
	}
	return body, true
}

// holdsRawSSN reports whether the identity group of a draft body carries an unmasked SSN.
func holdsRawSSN(body []byte) bool {
	var doc struct {
		Data struct {
			Identity interface{} `json:"identity"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return false
	}
	return models.ContainsRawSSN(doc.Data.Identity)
}
