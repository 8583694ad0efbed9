// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package co

import "sync"

// Serial runs queued funcs one at a time on a single go routine, in the order they were queued.
// Queue never blocks, so it can be called while holding locks.
type Serial struct {
	lock   sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	goes   Goes
}

// NewSerial creates a Serial and starts its go routine.
func NewSerial() *Serial {
	s := &Serial{wake: make(chan struct{}, 1)}
	s.goes.Go(s.loop)
	return s
}

// Queue appends f to the queue. Funcs queued after Close are dropped.
func (s *Serial) Queue(f func()) {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.queue = append(s.queue, f)
	s.lock.Unlock()
	s.signal()
}

// Close runs the funcs already queued and stops the go routine.
func (s *Serial) Close() {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	s.signal()
	s.goes.Wait()
}

func (s *Serial) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Serial) loop() {
	for {
		s.lock.Lock()
		fns, closed := s.queue, s.closed
		s.queue = nil
		s.lock.Unlock()

		for _, f := range fns {
			f()
		}
		if len(fns) > 0 {
			continue
		}
		if closed {
			return
		}
		<-s.wake
	}
}
