package control

import (
	"fmt"
)

// Declaration describes one control supported by a codec context: its
// identifier, whether scheduling a run is allowed while it has no value,
// and the value it starts with (nil means the control starts unset).
type Declaration struct {
	ID        ID
	Mandatory bool
	Default   Payload
}

type Declarations []Declaration

func (s Declarations) Find(id ID) *Declaration {
	for idx := range s {
		if s[idx].ID == id {
			return &s[idx]
		}
	}
	return nil
}

func (s Declarations) Contains(id ID) bool {
	return s.Find(id) != nil
}

func (s Declarations) MandatoryIDs() []ID {
	var result []ID
	for idx := range s {
		if s[idx].Mandatory {
			result = append(result, s[idx].ID)
		}
	}
	return result
}

func (s Declarations) Validate() error {
	seen := map[ID]struct{}{}
	for idx := range s {
		decl := &s[idx]
		if _, ok := seen[decl.ID]; ok {
			return ErrDuplicateControl{ID: decl.ID}
		}
		seen[decl.ID] = struct{}{}
		if decl.Default == nil {
			continue
		}
		if declaredID := decl.Default.ControlID(); declaredID != decl.ID {
			return fmt.Errorf("the default value of %s reports control ID %s", decl.ID, declaredID)
		}
		if err := decl.Default.Validate(); err != nil {
			return ErrInvalidPayload{ID: decl.ID, Err: err}
		}
	}
	return nil
}
