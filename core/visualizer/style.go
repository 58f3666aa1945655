// Package visualizer renders the audio analysis frames onto a canvas with
// one of several interchangeable strategies and cross-fades between them.
package visualizer

import (
	"errors"
	"fmt"
)

var ErrUnknownStyle = errors.New("unknown visualizer style")

// Style selects a renderer. The set is closed.
type Style int

const (
	StyleBars Style = iota
	StyleStarfield
	StyleWave
)

// Styles lists every style in switching order.
var Styles = []Style{StyleBars, StyleStarfield, StyleWave}

func (s Style) String() string {
	switch s {
	case StyleBars:
		return "bars"
	case StyleStarfield:
		return "starfield"
	case StyleWave:
		return "wave"
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// ParseStyle maps a persisted preference string onto a Style.
func ParseStyle(s string) (Style, error) {
	switch s {
	case "bars":
		return StyleBars, nil
	case "starfield":
		return StyleStarfield, nil
	case "wave":
		return StyleWave, nil
	}
	return StyleBars, fmt.Errorf("%w: %q", ErrUnknownStyle, s)
}

// Next cycles through Styles.
func (s Style) Next() Style {
	return Styles[(int(s)+1)%len(Styles)]
}

func (s Style) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Style) UnmarshalText(b []byte) error {
	v, err := ParseStyle(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
