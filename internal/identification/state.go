package identification

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State is the single-slot memory of recently handled orders. It is owned by
// one worker and passed into every Identify call; it is not safe for
// concurrent use.
type State struct {
	// LastSkippedHash is the most recently rejected order.
	LastSkippedHash common.Hash
	// LastFilledHash is the most recently submitted order.
	LastFilledHash common.Hash

	lastEmptyLog time.Time
}

// NewState returns an empty state.
func NewState() *State {
	return &State{}
}

// MarkSkipped records hash as rejected.
func (s *State) MarkSkipped(hash common.Hash) {
	s.LastSkippedHash = hash
}

// MarkFilled records hash as submitted. It must be called before the next cycle starts.
func (s *State) MarkFilled(hash common.Hash) {
	s.LastFilledHash = hash
}

// shouldLogEmpty reports whether an empty poll at now falls in a new wall-clock minute.
func (s *State) shouldLogEmpty(now time.Time) bool {
	minute := now.Truncate(time.Minute)
	if minute.Equal(s.lastEmptyLog) {
		return false
	}
	s.lastEmptyLog = minute
	return true
}
