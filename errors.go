package gear

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnitAlreadyExists = errors.New("unit already exists")
	ErrUnitNotFound      = errors.New("unit not found")
)

// AddError is returned when the supervisor answers a creation request with
// an unexpected status.
type AddError struct {
	Name       string
	StatusCode int
	Body       string
}

func (err *AddError) Error() string {
	return responseErrorMessage("add", err.Name, err.StatusCode, err.Body)
}

// Is matches ErrUnitAlreadyExists on a conflict, and ErrInvalidName or
// ErrInvalidImage when the unit was rejected for that reason.
func (err *AddError) Is(target error) bool {
	switch target {
	case ErrUnitAlreadyExists:
		return err.StatusCode == http.StatusConflict
	case ErrInvalidName, ErrInvalidImage:
		return err.StatusCode == http.StatusBadRequest && err.Body == target.Error()
	}
	return false
}

// ExistsError is returned when a status query gets an unexpected response.
type ExistsError struct {
	Name       string
	StatusCode int
	Body       string
}

func (err *ExistsError) Error() string {
	return responseErrorMessage("exists", err.Name, err.StatusCode, err.Body)
}

type RemoveError struct {
	Name       string
	StatusCode int
	Body       string
}

func (err *RemoveError) Error() string {
	return responseErrorMessage("remove", err.Name, err.StatusCode, err.Body)
}

func (err *RemoveError) Is(target error) bool {
	return target == ErrUnitNotFound && err.StatusCode == http.StatusNotFound
}

type ListError struct {
	StatusCode int
	Body       string
}

func (err *ListError) Error() string {
	return responseErrorMessage("list", "", err.StatusCode, err.Body)
}

// ProtocolError means the supervisor answered successfully but the body could
// not be understood.
type ProtocolError struct {
	Op  string
	Err error
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("%s: malformed supervisor response: %s", err.Op, err.Err)
}

func (err *ProtocolError) Unwrap() error {
	return err.Err
}

func responseErrorMessage(op, name string, statusCode int, body string) string {
	msg := fmt.Sprintf("%s failed with status %d", op, statusCode)
	if name != "" {
		msg = fmt.Sprintf("%s %q failed with status %d", op, name, statusCode)
	}
	if body != "" {
		msg = fmt.Sprintf("%s: %s", msg, body)
	}
	return msg
}
