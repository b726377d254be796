package control

// Payload is a typed control value. Each payload type is bound to exactly
// one control ID, which makes a type mismatch detectable at Set time.
//
// Payloads stored in a Handler are treated as immutable: the handler and
// the run descriptors only ever keep references, never copies.
type Payload interface {
	ControlID() ID
	Validate() error
}

/* for easier copy&paste:

func (p *) ControlID() control.ID {

}

func (p *) Validate() error {

}

*/
