package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear"
	ghttp "github.com/clusterhq/gear/http"
	"github.com/tedsuo/rata"
)

// DefaultRequestTimeout bounds every request made by a client built with New.
const DefaultRequestTimeout = 30 * time.Second

// New returns a gear.Client talking to the supervisor listening on host:port.
func New(logger lager.Logger, host string, port int) gear.Client {
	return NewWithHTTPClient(logger, &http.Client{Timeout: DefaultRequestTimeout}, host, port)
}

func NewWithHTTPClient(logger lager.Logger, httpClient *http.Client, host string, port int) gear.Client {
	baseURL := "http://" + net.JoinHostPort(host, strconv.Itoa(port))
	return &client{
		logger:     logger.Session("gear-client", lager.Data{"supervisor": baseURL}),
		httpClient: httpClient,
		reqGen:     rata.NewRequestGenerator(baseURL, ghttp.Routes),
	}
}

type client struct {
	logger     lager.Logger
	reqGen     *rata.RequestGenerator
	httpClient *http.Client
}

func (c *client) Add(ctx context.Context, name, image string) error {
	logger := c.logger.Session("add", lager.Data{"name": name, "image": image})

	err := gear.ValidateName(name)
	if err == nil {
		err = gear.ValidateImage(image)
	}
	if err != nil {
		logger.Info("invalid-unit", lager.Data{"reason": err.Error()})
		return &gear.AddError{Name: name, StatusCode: http.StatusBadRequest, Body: err.Error()}
	}

	exists, err := c.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		logger.Info("unit-already-exists")
		return &gear.AddError{Name: name, StatusCode: http.StatusConflict, Body: gear.ErrUnitAlreadyExists.Error()}
	}

	response, err := c.makeRequest(ctx, ghttp.AddUnit, rata.Params{"id": name}, ghttp.AddUnitRequest{
		Image:   image,
		Started: true,
	})
	if err != nil {
		logger.Error("failed-to-request", err)
		return fmt.Errorf("add %q: %w", name, err)
	}
	defer drainAndClose(response)

	if !successful(response) {
		body := readBody(response)
		logger.Info("unexpected-response", lager.Data{"status": response.StatusCode, "body": body})
		return &gear.AddError{Name: name, StatusCode: response.StatusCode, Body: body}
	}

	logger.Debug("added")
	return nil
}

func (c *client) Exists(ctx context.Context, name string) (bool, error) {
	logger := c.logger.Session("exists", lager.Data{"name": name})

	containers, err := c.listContainers(ctx, logger)
	if err != nil {
		if listErr, ok := err.(*gear.ListError); ok {
			return false, &gear.ExistsError{Name: name, StatusCode: listErr.StatusCode, Body: listErr.Body}
		}
		return false, err
	}

	for _, container := range containers {
		if container.Id == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *client) Remove(ctx context.Context, name string) error {
	logger := c.logger.Session("remove", lager.Data{"name": name})

	response, err := c.makeRequest(ctx, ghttp.RemoveUnit, rata.Params{"id": name}, nil)
	if err != nil {
		logger.Error("failed-to-request", err)
		return fmt.Errorf("remove %q: %w", name, err)
	}
	defer drainAndClose(response)

	if !successful(response) {
		body := readBody(response)
		logger.Info("unexpected-response", lager.Data{"status": response.StatusCode, "body": body})
		return &gear.RemoveError{Name: name, StatusCode: response.StatusCode, Body: body}
	}

	logger.Debug("removed")
	return nil
}

func (c *client) List(ctx context.Context) ([]gear.Unit, error) {
	logger := c.logger.Session("list")

	containers, err := c.listContainers(ctx, logger)
	if err != nil {
		return nil, err
	}

	units := make([]gear.Unit, 0, len(containers))
	for _, container := range containers {
		units = append(units, gear.NewUnit(container.Id, container.Image, container.SubState))
	}
	return units, nil
}

func (c *client) listContainers(ctx context.Context, logger lager.Logger) ([]ghttp.ContainerInfo, error) {
	response, err := c.makeRequest(ctx, ghttp.ListUnits, nil, nil)
	if err != nil {
		logger.Error("failed-to-request", err)
		return nil, fmt.Errorf("list: %w", err)
	}
	defer drainAndClose(response)

	if !successful(response) {
		body := readBody(response)
		logger.Info("unexpected-response", lager.Data{"status": response.StatusCode, "body": body})
		return nil, &gear.ListError{StatusCode: response.StatusCode, Body: body}
	}

	var list ghttp.ContainerList
	err = json.NewDecoder(response.Body).Decode(&list)
	if err != nil {
		logger.Error("failed-to-decode", err)
		return nil, &gear.ProtocolError{Op: "list", Err: err}
	}

	return list.Containers, nil
}

func (c *client) makeRequest(ctx context.Context, handlerName string, params rata.Params, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := c.reqGen.CreateRequest(handlerName, params, body)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func successful(response *http.Response) bool {
	return response.StatusCode >= 200 && response.StatusCode < 300
}

// drainAndClose consumes what is left of the body so the connection can be
// reused.
func drainAndClose(response *http.Response) {
	io.Copy(io.Discard, response.Body)
	response.Body.Close()
}

func readBody(response *http.Response) string {
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return ""
	}
	return string(body)
}
