// Package server serves the supervisor's unit API from any gear.Client. Backed
// by an inmemory client it stands in for a live supervisor.
package server

import (
	"net/http"
	"os"

	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear"
	ghttp "github.com/clusterhq/gear/http"
	"github.com/clusterhq/gear/http/server/add_unit"
	"github.com/clusterhq/gear/http/server/list_units"
	"github.com/clusterhq/gear/http/server/remove_unit"
	"github.com/tedsuo/ifrit"
	"github.com/tedsuo/ifrit/http_server"
	"github.com/tedsuo/rata"
)

type HandlerProvider interface {
	WithLogger(lager.Logger) http.Handler
}

func New(logger lager.Logger, backend gear.Client) (http.Handler, error) {
	handlers := rata.Handlers{}
	for key, provider := range NewHandlerProviders(backend) {
		handlers[key] = LogWrap(provider, logger)
	}

	return rata.NewRouter(ghttp.Routes, handlers)
}

func NewHandlerProviders(backend gear.Client) map[string]HandlerProvider {
	return map[string]HandlerProvider{
		ghttp.ListUnits:  list_units.New(backend),
		ghttp.AddUnit:    add_unit.New(backend),
		ghttp.RemoveUnit: remove_unit.New(backend),
	}
}

type Server struct {
	Address string
	Backend gear.Client
	Logger  lager.Logger
}

func (s *Server) Run(sigChan <-chan os.Signal, readyChan chan<- struct{}) error {
	logger := s.Logger.Session("server", lager.Data{"address": s.Address})

	router, err := New(logger, s.Backend)
	if err != nil {
		return err
	}

	server := ifrit.Invoke(http_server.New(s.Address, router))

	close(readyChan)
	logger.Info("started")

	for {
		select {
		case sig := <-sigChan:
			server.Signal(sig)
			logger.Info("signaled-to-stop")
		case err := <-server.Wait():
			if err != nil {
				logger.Error("server-failed", err)
			}

			logger.Info("stopped")
			return err
		}
	}
}
