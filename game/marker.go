package game

import "fmt"

// Kind identifies one of the three marker lists.
type Kind int

const (
	KindEmitter Kind = iota
	KindTarget
	KindObserver
)

// Kinds lists every marker kind in search order.
var Kinds = [...]Kind{KindEmitter, KindTarget, KindObserver}

func (k Kind) String() string {
	switch k {
	case KindEmitter:
		return "emitter"
	case KindTarget:
		return "target"
	case KindObserver:
		return "observer"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts the names returned by String. The in-game names "gun"
// and "spotter" are accepted as well.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "emitter", "gun":
		return KindEmitter, nil
	case "target":
		return KindTarget, nil
	case "observer", "spotter":
		return KindObserver, nil
	}
	return 0, fmt.Errorf("unknown marker kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Ref points at one marker by kind and list index.
type Ref struct {
	Kind  Kind `json:"kind"`
	Index int  `json:"index"`
}

// AfterRemoval returns where r points once the marker (kind, index) has been
// removed. ok is false when r referred to the removed marker itself.
func (r Ref) AfterRemoval(kind Kind, index int) (Ref, bool) {
	if r.Kind != kind {
		return r, true
	}
	switch {
	case r.Index == index:
		return Ref{}, false
	case r.Index > index:
		r.Index--
	}
	return r, true
}
