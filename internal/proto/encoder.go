package proto

import (
	"fmt"

	"github.com/coreman2200/funtimes-lumatrix/internal/frame"
)

// Encoder converts a Framebuffer into hardware write transactions.
//
// Two modes, selected by frame height: single-row frames go out as one
// transaction; taller frames produce one transaction per row, each tagged
// with the count of rows still to come so the transport can chunk them as
// a unit. Transport errors are surfaced unchanged.
type Encoder struct {
	tr Transport
}

// NewEncoder returns an Encoder writing through the given transport.
func NewEncoder(tr Transport) *Encoder {
	return &Encoder{tr: tr}
}

// Prepare serializes and transmits the frame's pixel data without
// displaying it. The frame is sealed for the duration of serialization so
// concurrent drawing is caught as a programming error; the seal is
// released on every exit path.
func (e *Encoder) Prepare(f *frame.Frame, frameID byte) error {
	release := f.Borrow()
	defer release()
	return e.send(f, frameID)
}

// Commit displays the last frame sent with Prepare.
func (e *Encoder) Commit() error {
	return e.tr.RunCommand(Packet{
		Command:       CmdShowFrame,
		TransactionID: DefaultTransactionID,
	})
}

// Update serializes, transmits, and displays the frame. This is the
// normal per-cycle path.
func (e *Encoder) Update(f *frame.Frame, frameID byte) error {
	release := f.Borrow()
	defer release()
	if err := e.send(f, frameID); err != nil {
		return err
	}
	return e.Commit()
}

func (e *Encoder) send(f *frame.Frame, frameID byte) error {
	if f.Height() == 1 {
		return e.sendSingle(f)
	}
	return e.sendMatrix(f, frameID)
}

func (e *Encoder) sendSingle(f *frame.Frame) error {
	cols := min(f.Width(), MaxColumns)
	img := f.Flatten()

	data := make([]byte, 0, 2+cols*4)
	data = append(data, 0, byte(cols))
	data = append(data, img[:cols*4]...)

	return e.tr.RunCommand(Packet{
		Command:       CmdFrameSingle,
		Data:          data,
		TransactionID: QuirkTransactionID,
	})
}

func (e *Encoder) sendMatrix(f *frame.Frame, frameID byte) error {
	cols := min(f.Width(), MaxColumns)
	img := f.Flatten()
	stride := f.Width() * 4

	tid := byte(DefaultTransactionID)
	if e.tr.HasQuirk(QuirkCustomFrame80) {
		tid = QuirkTransactionID
	}

	for row := 0; row < f.Height(); row++ {
		pixels := img[row*stride : row*stride+cols*4]

		data := make([]byte, 0, 4+len(pixels))
		data = append(data, frameID, byte(row), 0, byte(cols))
		data = append(data, pixels...)

		if err := e.tr.RunCommand(Packet{
			Command:       CmdFrameMatrix,
			Data:          data,
			TransactionID: tid,
			Remaining:     f.Height() - row - 1,
		}); err != nil {
			return fmt.Errorf("frame data row %d: %w", row, err)
		}
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
