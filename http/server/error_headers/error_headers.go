package error_headers

import (
	"errors"
	"net/http"

	"github.com/clusterhq/gear"
)

// Write answers with the status and body carried by a gear response error, so
// a client on the other side reconstructs the same error.
func Write(err error, w http.ResponseWriter) {
	var (
		addErr    *gear.AddError
		existsErr *gear.ExistsError
		removeErr *gear.RemoveError
		listErr   *gear.ListError
	)

	switch {
	case errors.As(err, &addErr):
		writeError(w, addErr.StatusCode, addErr.Body)
	case errors.As(err, &existsErr):
		writeError(w, existsErr.StatusCode, existsErr.Body)
	case errors.As(err, &removeErr):
		writeError(w, removeErr.StatusCode, removeErr.Body)
	case errors.As(err, &listErr):
		writeError(w, listErr.StatusCode, listErr.Body)
	case errors.Is(err, gear.ErrInvalidName), errors.Is(err, gear.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(statusCode)
	w.Write([]byte(body))
}
