// Package proto serializes framebuffers into the chunked hardware command
// transactions understood by the LED controller.
package proto

// Command is the 2-byte class/id tag carried by every transaction.
type Command struct {
	Class byte
	ID    byte
}

var (
	// CmdFrameMatrix carries one row of a multi-row frame.
	CmdFrameMatrix = Command{Class: 0x03, ID: 0x0B}
	// CmdFrameSingle carries the sole row of a single-row frame.
	CmdFrameSingle = Command{Class: 0x03, ID: 0x0C}
	// CmdShowFrame flips the last prepared frame onto the display.
	CmdShowFrame = Command{Class: 0x03, ID: 0x0A}
)

// Quirk names a device-specific protocol deviation.
type Quirk int

const (
	// QuirkCustomFrame80 selects the 0x80 transaction tag for matrix
	// frame data, required by some hardware revisions.
	QuirkCustomFrame80 Quirk = iota
)

const (
	// MaxColumns is the per-transaction pixel cap, regardless of width.
	MaxColumns = 24
	// DefaultFrameID identifies frames when the caller does not care.
	DefaultFrameID = 0xFF
	// DefaultTransactionID tags transactions on stock hardware.
	DefaultTransactionID = 0xFF
	// QuirkTransactionID tags transactions on quirked hardware and in
	// single-row mode.
	QuirkTransactionID = 0x80
)

// Packet is one tagged, optionally chunked write to the hardware.
// Remaining counts the transactions still to come before the chunked
// frame write is complete; the transport may use it to treat the whole
// frame as one transaction and detect truncation.
type Packet struct {
	Command       Command
	Data          []byte
	TransactionID byte
	Remaining     int
}

// Transport is the device transport collaborator. Implementations issue
// the write and surface any rejection or truncation as an error; retries,
// if any, belong below this interface.
type Transport interface {
	RunCommand(pkt Packet) error
	HasQuirk(q Quirk) bool
}
