// Package codec defines the per-version packet codec contract: a pair of
// total functions, keyed by (version, state), translating
// between a version's wire packets and the canonical representation.
// Concrete dialects live in codec/v47 (1.8.9) and codec/v759 (1.19.2);
// codec itself holds only the shared contract and the field-level helpers
// both dialects reuse verbatim where the wire format never changed.
package codec

import (
	"errors"

	"github.com/bamboo-mc/bamboo/internal/canonical"
)

// ErrUnknownPacket marks a wire ID with no meaning in this version+state.
// It is non-fatal: the caller logs and drops the packet.
var ErrUnknownPacket = errors.New("codec: unknown packet id for version/state")

// Codec decodes one version's serverbound wire packets into canonical form
// and encodes canonical clientbound packets back into that version's wire
// form. A single Codec instance is immutable and safe for concurrent use
// once constructed (it closes over a *registry.Registry and nothing else).
type Codec interface {
	// DecodeServerbound turns a wire packet into its canonical
	// equivalent. Returns ErrUnknownPacket for an unused wire ID, or a
	// wrapped error satisfying errors.Is(err, frame.ErrMalformed) for a
	// structurally invalid body.
	DecodeServerbound(state canonical.State, wireID int32, body []byte) (canonical.Packet, error)

	// EncodeClientbound turns a canonical packet into its wire
	// representation for this version. It never fails on a valid
	// canonical packet: unrepresentable IDs fall back
	// rather than erroring.
	EncodeClientbound(state canonical.State, pkt canonical.Packet) (wireID int32, body []byte, err error)
}
