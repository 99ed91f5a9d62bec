package add_unit

import (
	"encoding/json"
	"net/http"

	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear"
	ghttp "github.com/clusterhq/gear/http"
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
	addLog := h.logger.Session("add-handler", lager.Data{"name": name})

	var request ghttp.AddUnitRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		addLog.Error("failed-to-decode-request", err)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("malformed request body"))
		return
	}

	if err := gear.ValidateName(name); err != nil {
		error_headers.Write(err, w)
		return
	}
	if err := gear.ValidateImage(request.Image); err != nil {
		error_headers.Write(err, w)
		return
	}

	err = h.backend.Add(r.Context(), name, request.Image)
	if err != nil {
		addLog.Error("failed-to-add-unit", err)
		error_headers.Write(err, w)
		return
	}

	w.WriteHeader(http.StatusCreated)
}
