package remove_unit

import (
	"net/http"

	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear"
	"github.com/clusterhq/gear/http/server/error_headers"
)

type provider struct {
	backend gear.Client
}

type handler struct {
	backend gear.Client
	logger  lager.Logger
}

func New(backend gear.Client) *provider {
	return &provider{backend: backend}
}

func (p *provider) WithLogger(logger lager.Logger) http.Handler {
	return &handler{
		backend: p.backend,
		logger:  logger,
	}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue(":id")
	removeLog := h.logger.Session("remove-handler", lager.Data{"name": name})

	err := h.backend.Remove(r.Context(), name)
	if err != nil {
		removeLog.Error("failed-to-remove-unit", err)
		error_headers.Write(err, w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
