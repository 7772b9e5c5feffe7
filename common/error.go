package common

import "fmt"

// APIError is the error shape every handler returns. Status picks the HTTP
// response code and is never serialized; Fields carries per-field validation
// detail when present.
type APIError struct {
	Status  int            `json:"-"`
	Message string         `json:"error"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (e APIError) Error() string { return e.Message }

// Errf builds an APIError from a format string.
func Errf(status int, format string, args ...any) APIError {
	return APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}
