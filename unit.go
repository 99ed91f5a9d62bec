package gear

import (
	"errors"
	"strings"
)

type State string

const (
	StateAdded   State = "added"
	StateRunning State = "running"
	StateRemoved State = "removed"
)

// Sub-states reported by the supervisor. Only SubStateRunning carries meaning
// for readiness; the rest are what systemd reports for a unit on its way up
// or after its process has gone.
const (
	SubStateStartPre = "start-pre"
	SubStateRunning  = "running"
	SubStateExited   = "exited"
	SubStateDead     = "dead"
	SubStateFailed   = "failed"
)

var (
	ErrInvalidName  = errors.New("unit name must be non-empty and contain no '/' or whitespace")
	ErrInvalidImage = errors.New("unit image must be non-empty")
)

type Unit struct {
	Name     string `json:"name"`
	Image    string `json:"image"`
	State    State  `json:"state"`
	SubState string `json:"sub_state"`
}

func NewUnit(name, image, subState string) Unit {
	return Unit{
		Name:     name,
		Image:    image,
		State:    StateFromSubState(subState),
		SubState: subState,
	}
}

func (u Unit) Running() bool {
	return u.SubState == SubStateRunning
}

// StateFromSubState derives the coarse lifecycle state from the raw sub-state
// reported by the supervisor.
func StateFromSubState(subState string) State {
	switch subState {
	case SubStateRunning:
		return StateRunning
	case SubStateExited, SubStateDead, SubStateFailed:
		return StateRemoved
	default:
		return StateAdded
	}
}

func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, "/ \t\r\n") {
		return ErrInvalidName
	}
	return nil
}

func ValidateImage(image string) error {
	if strings.TrimSpace(image) == "" {
		return ErrInvalidImage
	}
	return nil
}

// FindUnit returns the unit called name from units, if present.
func FindUnit(units []Unit, name string) (Unit, bool) {
	for _, unit := range units {
		if unit.Name == name {
			return unit, true
		}
	}
	return Unit{}, false
}
