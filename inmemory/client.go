// Package inmemory implements gear.Client without a supervisor.
//
// Units added to the fake report the "start-pre" sub-state until the
// configured start delay has elapsed on the injected clock, and "running"
// afterwards. A zero delay makes units running as soon as Add returns.
package inmemory

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear"
)

type unitNode struct {
	image   string
	addedAt time.Time
}

type Client struct {
	logger     lager.Logger
	clock      clock.Clock
	startDelay time.Duration

	lock  sync.RWMutex
	units map[string]unitNode
}

var _ gear.Client = (*Client)(nil)

func New(logger lager.Logger, clock clock.Clock, startDelay time.Duration) *Client {
	return &Client{
		logger:     logger.Session("inmemory-client"),
		clock:      clock,
		startDelay: startDelay,
		units:      make(map[string]unitNode),
	}
}

func (c *Client) Add(ctx context.Context, name, image string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger := c.logger.Session("add", lager.Data{"name": name, "image": image})

	err := gear.ValidateName(name)
	if err == nil {
		err = gear.ValidateImage(image)
	}
	if err != nil {
		logger.Info("invalid-unit", lager.Data{"reason": err.Error()})
		return &gear.AddError{Name: name, StatusCode: http.StatusBadRequest, Body: err.Error()}
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.units[name]; ok {
		logger.Info("unit-already-exists")
		return &gear.AddError{Name: name, StatusCode: http.StatusConflict, Body: gear.ErrUnitAlreadyExists.Error()}
	}

	c.units[name] = unitNode{image: image, addedAt: c.clock.Now()}
	logger.Debug("added")
	return nil
}

func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.lock.RLock()
	defer c.lock.RUnlock()

	_, ok := c.units[name]
	return ok, nil
}

func (c *Client) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	logger := c.logger.Session("remove", lager.Data{"name": name})

	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.units[name]; !ok {
		logger.Info("unit-not-found")
		return &gear.RemoveError{Name: name, StatusCode: http.StatusNotFound, Body: gear.ErrUnitNotFound.Error()}
	}

	delete(c.units, name)
	logger.Debug("removed")
	return nil
}

func (c *Client) List(ctx context.Context) ([]gear.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := c.clock.Now()

	c.lock.RLock()
	defer c.lock.RUnlock()

	units := make([]gear.Unit, 0, len(c.units))
	for name, node := range c.units {
		units = append(units, gear.NewUnit(name, node.image, c.subState(node, now)))
	}

	sort.Slice(units, func(i, j int) bool {
		return units[i].Name < units[j].Name
	})
	return units, nil
}

func (c *Client) subState(node unitNode, now time.Time) string {
	if now.Sub(node.addedAt) < c.startDelay {
		return gear.SubStateStartPre
	}
	return gear.SubStateRunning
}
