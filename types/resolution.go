package types

import (
	"fmt"
)

type Resolution struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r *Resolution) Parse(s string) error {
	_, err := fmt.Sscanf(s, "%dx%d", &r.Width, &r.Height)
	if err != nil {
		return fmt.Errorf("unable to parse resolution '%s': %w", s, err)
	}
	return nil
}

// MacroblockAlign rounds both dimensions up to the given alignment
// (e.g. 16 for H.264 macroblocks).
func (r Resolution) MacroblockAlign(align uint32) Resolution {
	if align == 0 {
		return r
	}
	roundUp := func(v uint32) uint32 {
		return (v + align - 1) / align * align
	}
	return Resolution{
		Width:  roundUp(r.Width),
		Height: roundUp(r.Height),
	}
}
