package unitnames

import (
	"fmt"

	"github.com/nu7hatch/gouuid"
)

const TestPrefix = "flocker-test"

var DefaultGenerator Generator = &generator{}

type Generator interface {
	Name(prefix string) (string, error)
}

type generator struct{}

// Name returns prefix joined to a fresh v4 UUID, so names never collide
// across test runs sharing one supervisor.
func (*generator) Name(prefix string) (string, error) {
	guid, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generate unit name: %w", err)
	}
	return prefix + "-" + guid.String(), nil
}

// Random is a test unit name. It panics if no UUID can be generated.
func Random() string {
	name, err := DefaultGenerator.Name(TestPrefix)
	if err != nil {
		panic(err)
	}
	return name
}
