package list_units

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
	listLog := h.logger.Session("list-handler")

	units, err := h.backend.List(r.Context())
	if err != nil {
		listLog.Error("failed-to-list-units", err)
		error_headers.Write(err, w)
		return
	}

	list := ghttp.ContainerList{Containers: make([]ghttp.ContainerInfo, 0, len(units))}
	for _, unit := range units {
		list.Containers = append(list.Containers, ghttp.ContainerInfo{
			Id:          unit.Name,
			Image:       unit.Image,
			ActiveState: activeState(unit),
			LoadState:   "loaded",
			SubState:    unit.SubState,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	err = json.NewEncoder(w).Encode(list)
	if err != nil {
		listLog.Error("failed-to-marshal-response", err)
	}
}

func activeState(unit gear.Unit) string {
	switch unit.State {
	case gear.StateRunning:
		return "active"
	case gear.StateRemoved:
		return "inactive"
	default:
		return "activating"
	}
}
