package noc

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/ardnew/softnoc/hal"
	"github.com/ardnew/softnoc/pkg"
)

// Read copies received words of endpoint ep into p, four bytes per word in
// little-endian order.
//
// Read blocks until at least one word is queued, then drains what is
// available up to len(p) bytes. If len(p) is not a multiple of four the last
// word is truncated and its remaining bytes are discarded. Read returns
// ctx.Err() if ctx is done before any data arrives and pkg.ErrClosed if the
// endpoint is released while waiting.
func (a *Adapter) Read(ctx context.Context, ep int, p []byte) (int, error) {
	return a.read(ctx, ep, len(p), false, func(b []byte, off int) (int, error) {
		return copy(p[off:], b), nil
	})
}

// ReadFull is like Read but keeps waiting until len(p) bytes are delivered.
// If ctx is done or the endpoint is released after some bytes were
// delivered, it returns that count and a nil error.
func (a *Adapter) ReadFull(ctx context.Context, ep int, p []byte) (int, error) {
	return a.read(ctx, ep, len(p), true, func(b []byte, off int) (int, error) {
		return copy(p[off:], b), nil
	})
}

// ReadTo writes up to n received bytes of endpoint ep to w, waiting for data
// like ReadFull. A write error stops the transfer; the bytes accepted by w
// so far are returned with the error.
func (a *Adapter) ReadTo(ctx context.Context, ep int, w io.Writer, n int) (int, error) {
	return a.read(ctx, ep, n, true, func(b []byte, _ int) (int, error) {
		return w.Write(b)
	})
}

// read pops words from the ring of ep and hands each one, truncated to the
// remaining request, to emit.
func (a *Adapter) read(ctx context.Context, ep, n int, full bool,
	emit func(b []byte, off int) (int, error)) (int, error) {
	e, err := a.endpoint(ep)
	if err != nil {
		return 0, err
	}

	s := e.session.Load()
	if s == nil {
		return 0, pkg.ErrNotOpen
	}
	if err := e.acquireRead(ctx, s); err != nil {
		return 0, err
	}
	defer e.releaseRead()

	var word [hal.WordSize]byte
	done := 0
	for done < n {
		w, ok := s.ring.Pop()
		if !ok {
			if done > 0 && !full {
				break
			}
			if err := s.wait(ctx); err != nil {
				if done > 0 {
					return done, nil
				}
				return 0, err
			}
			continue
		}

		binary.LittleEndian.PutUint32(word[:], w)
		k := min(hal.WordSize, n-done)
		m, err := emit(word[:k], done)
		done += m
		if err != nil {
			return done, err
		}
	}
	return done, nil
}

// Write sends p to endpoint ep as one packet: a length word holding the
// number of payload words, then p packed little-endian into words with the
// final word zero-padded. It never waits for the receiver. An empty p sends
// nothing.
func (a *Adapter) Write(ep int, p []byte) (int, error) {
	e, err := a.endpoint(ep)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, nil
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	port := hal.PortAddr(ep)
	words := wordCount(len(p))
	a.win.WriteWord(port, uint32(words))
	for off := 0; off < len(p); off += hal.WordSize {
		var word [hal.WordSize]byte
		copy(word[:], p[off:])
		a.win.WriteWord(port, binary.LittleEndian.Uint32(word[:]))
	}

	e.stats.txPackets.Add(1)
	e.stats.txWords.Add(uint64(words))
	return len(p), nil
}

// WriteFrom sends n bytes read from r to endpoint ep as one packet, framed
// like Write. The length word is sent before any payload is read, so a read
// error leaves a short packet on the wire; the bytes sent so far are returned
// with the error.
func (a *Adapter) WriteFrom(ep int, r io.Reader, n int) (int, error) {
	e, err := a.endpoint(ep)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	port := hal.PortAddr(ep)
	words := wordCount(n)
	a.win.WriteWord(port, uint32(words))
	e.stats.txPackets.Add(1)

	sent := 0
	for sent < n {
		var word [hal.WordSize]byte
		k := min(hal.WordSize, n-sent)
		if _, err := io.ReadFull(r, word[:k]); err != nil {
			return sent, err
		}
		a.win.WriteWord(port, binary.LittleEndian.Uint32(word[:]))
		e.stats.txWords.Add(1)
		sent += k
	}
	return sent, nil
}

// WritePacket sends words to endpoint ep, preceded by their count.
func (a *Adapter) WritePacket(ep int, words []uint32) error {
	e, err := a.endpoint(ep)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	port := hal.PortAddr(ep)
	a.win.WriteWord(port, uint32(len(words)))
	for _, w := range words {
		a.win.WriteWord(port, w)
	}

	e.stats.txPackets.Add(1)
	e.stats.txWords.Add(uint64(len(words)))
	return nil
}

// AnnounceReady sends a single-word control packet on endpoint ep telling
// tile dest that endpoint remote of tile src changed readiness.
func (a *Adapter) AnnounceReady(ep int, dest, src, remote uint8, ready bool) error {
	return a.WritePacket(ep, []uint32{ControlHeader(dest, src, remote, ready).Word()})
}

func wordCount(n int) int {
	return (n + hal.WordSize - 1) / hal.WordSize
}
