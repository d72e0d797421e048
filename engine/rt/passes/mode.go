package passes

import (
	"fmt"
	"strings"
)

// Mode selects the pass sequence for a frame.
type Mode int

const (
	FlatTextured Mode = iota
	ForwardLit
	DeferredLit
)

var modeNames = [...]string{
	FlatTextured: "flat",
	ForwardLit:   "forward",
	DeferredLit:  "deferred",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown render mode %q (want flat, forward or deferred)", s)
}

// Next cycles through the modes, for the mode toggle key.
func (m Mode) Next() Mode {
	return (m + 1) % Mode(len(modeNames))
}
