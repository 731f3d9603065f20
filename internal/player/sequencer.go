package player

import "sync/atomic"

// Sequencer tags requests so that only the newest response is applied.
type Sequencer struct {
	latest atomic.Uint64
}

// Next issues a tag newer than every tag issued before it.
func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// Accept reports whether a response tagged seq is still current.
func (s *Sequencer) Accept(seq uint64) bool {
	return seq == s.latest.Load()
}
