package assoofs

import "fmt"

type State uint8

const (
	StateUnmounted State = iota
	StateValidating
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUnmounted:
		return "Unmounted"
	case StateValidating:
		return "Validating"
	case StateReady:
		return "Ready"
	default:
		panic(fmt.Sprintf("invalid state: `%d`", s))
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
