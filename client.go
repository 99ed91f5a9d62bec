package gear

import "context"

const DefaultPort = 43273

//go:generate counterfeiter -o gearfakes/fake_client.go . Client

// Client manages units on a single node's supervisor.
//
// Every method returns only once its effect is visible to later calls on the
// same client, so add followed by exists observes the add. Calls for
// different unit names may be issued concurrently.
type Client interface {
	// Add requests a unit called name running image. The unit is accepted
	// when Add returns; it becomes running asynchronously. Adding a name that
	// already exists fails with an *AddError matching ErrUnitAlreadyExists.
	Add(ctx context.Context, name, image string) error

	// Exists reports whether the supervisor knows the unit, in any state.
	Exists(ctx context.Context, name string) (bool, error)

	// Remove deletes the unit. Removing an unknown name fails with a
	// *RemoveError matching ErrUnitNotFound.
	Remove(ctx context.Context, name string) error

	List(ctx context.Context) ([]Unit, error)
}

// Go runs fn on its own goroutine and delivers its result exactly once on the
// returned channel, which is then closed.
func Go(fn func() error) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- fn()
	}()
	return result
}
