package poller

import (
	"context"

	"code.cloudfoundry.org/lager/v3"
	"github.com/clusterhq/gear"
)

// UnitRunning holds once the supervisor lists name with the running
// sub-state.
func UnitRunning(client gear.Client, name string) Predicate {
	return func(ctx context.Context) (bool, error) {
		units, err := client.List(ctx)
		if err != nil {
			return false, err
		}
		unit, ok := gear.FindUnit(units, name)
		return ok && unit.Running(), nil
	}
}

func UnitExists(client gear.Client, name string) Predicate {
	return func(ctx context.Context) (bool, error) {
		return client.Exists(ctx, name)
	}
}

func UnitGone(client gear.Client, name string) Predicate {
	return func(ctx context.Context) (bool, error) {
		exists, err := client.Exists(ctx, name)
		return !exists, err
	}
}

// WaitForRunning blocks until name is running, using p.
func (p *Poller) WaitForRunning(ctx context.Context, logger lager.Logger, client gear.Client, name string) error {
	return p.LoopUntil(ctx, logger.Session("wait-for-running", lager.Data{"name": name}), UnitRunning(client, name))
}
