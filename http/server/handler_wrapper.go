package server

import (
	"net/http"

	"code.cloudfoundry.org/lager/v3"
)

// LogWrap serves each request through provider with a request-scoped logger
// and records the status the handler answered with.
func LogWrap(provider HandlerProvider, logger lager.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestLog := logger.Session("request", lager.Data{
			"method":  r.Method,
			"request": r.URL.String(),
		})

		requestLog.Debug("serving")

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		provider.WithLogger(requestLog).ServeHTTP(recorder, r)

		data := lager.Data{"status": recorder.status}
		if recorder.status >= http.StatusInternalServerError {
			requestLog.Info("failed", data)
			return
		}
		requestLog.Debug("done", data)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
