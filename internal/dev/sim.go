package dev

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/coreman2200/funtimes-lumatrix/internal/proto"
)

// SimTransport accepts every command and keeps simple counters, useful
// for headless runs and tests.
type SimTransport struct {
	log zerolog.Logger

	mu      sync.Mutex
	writes  uint64
	commits uint64
	quirks  map[proto.Quirk]bool
}

// NewSim returns a SimTransport logging at debug level.
func NewSim(logger zerolog.Logger) *SimTransport {
	return &SimTransport{
		log:    logger.With().Str("transport", "sim").Logger(),
		quirks: map[proto.Quirk]bool{},
	}
}

// SetQuirk toggles a simulated protocol quirk.
func (s *SimTransport) SetQuirk(q proto.Quirk, on bool) {
	s.mu.Lock()
	s.quirks[q] = on
	s.mu.Unlock()
}

func (s *SimTransport) RunCommand(pkt proto.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pkt.Command == proto.CmdShowFrame {
		s.commits++
	} else {
		s.writes++
	}
	s.log.Debug().
		Uint8("class", pkt.Command.Class).
		Uint8("id", pkt.Command.ID).
		Int("len", len(pkt.Data)).
		Int("remaining", pkt.Remaining).
		Msg("run command")
	return nil
}

func (s *SimTransport) HasQuirk(q proto.Quirk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quirks[q]
}

// Stats returns the number of data writes and display commits seen.
func (s *SimTransport) Stats() (writes, commits uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes, s.commits
}
