// Package reaper removes units in bulk, typically units leaked by an earlier
// test run that shared the supervisor.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"code.cloudfoundry.org/lager/v3"
	"code.cloudfoundry.org/workpool"
	"github.com/clusterhq/gear"
	multierror "github.com/hashicorp/go-multierror"
)

const DefaultMaxWorkers = 5

// RemoveAll removes every named unit, at most maxWorkers at a time. Units
// that are already gone count as removed. Every other failure is collected
// into the returned error.
func RemoveAll(ctx context.Context, logger lager.Logger, client gear.Client, names []string, maxWorkers int) error {
	logger = logger.Session("remove-all", lager.Data{"count": len(names)})

	if len(names) == 0 {
		return nil
	}

	if maxWorkers < 1 {
		return fmt.Errorf("max workers must be positive, got %d", maxWorkers)
	}

	var (
		errLock sync.Mutex
		result  *multierror.Error
	)

	works := make([]func(), 0, len(names))
	for _, name := range names {
		works = append(works, func() {
			err := client.Remove(ctx, name)
			if err == nil || errors.Is(err, gear.ErrUnitNotFound) {
				logger.Debug("removed", lager.Data{"name": name})
				return
			}

			logger.Error("failed-to-remove", err, lager.Data{"name": name})
			errLock.Lock()
			result = multierror.Append(result, err)
			errLock.Unlock()
		})
	}

	throttler, err := workpool.NewThrottler(maxWorkers, works)
	if err != nil {
		return err
	}

	logger.Info("starting")
	throttler.Work()
	logger.Info("complete")

	return result.ErrorOrNil()
}

// RemoveMatching removes every listed unit whose name starts with prefix.
func RemoveMatching(ctx context.Context, logger lager.Logger, client gear.Client, prefix string, maxWorkers int) error {
	units, err := client.List(ctx)
	if err != nil {
		return err
	}

	names := []string{}
	for _, unit := range units {
		if strings.HasPrefix(unit.Name, prefix) {
			names = append(names, unit.Name)
		}
	}

	return RemoveAll(ctx, logger, client, names, maxWorkers)
}
