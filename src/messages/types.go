package messages

import "strconv"

// WindowID is an opaque identity for a live overlay window. It is only ever
// used as a map key; platform handles stay inside the surface implementations.
type WindowID uint64

// NoWindow is the zero identity, used for "not linked".
const NoWindow WindowID = 0

func (id WindowID) String() string {
	return "win-" + strconv.FormatUint(uint64(id), 10)
}

// Message is the base interface for everything delivered to a window inbox.
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeTextChunk  = "TextChunk"
	TypeRefineDone = "RefineDone"
	TypeDismiss    = "Dismiss"
)

// TextChunk carries the accumulated text produced so far by a backend stream.
// Text is a full snapshot, not a delta, so dropping an intermediate chunk never
// loses content.
type TextChunk struct {
	Window WindowID
	Text   string
	// Refinement is the submission this chunk answers; zero for capture output.
	Refinement uint64
}

func (m TextChunk) Type() string { return TypeTextChunk }

// RefineDone - sent by the refinement worker when the backend call resolves.
type RefineDone struct {
	Window     WindowID
	Text       string
	Err        error
	Refinement uint64
}

func (m RefineDone) Type() string { return TypeRefineDone }

// Dismiss - asks a window to run its dismissal animation.
type Dismiss struct {
	Window WindowID
}

func (m Dismiss) Type() string { return TypeDismiss }
