// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/rehab_computer/internal/orientation"
)

// MockOpener returns an opener whose port emits the lines of src every
// interval, for running without sensor hardware.
func MockOpener(src *orientation.MockSource, interval time.Duration) PortOpener {
	return func(PortOptions) (io.ReadWriteCloser, error) {
		return newMockPort(src, interval), nil
	}
}

type mockPort struct {
	r    *io.PipeReader
	w    *io.PipeWriter
	stop chan struct{}
	once sync.Once
}

func newMockPort(src *orientation.MockSource, interval time.Duration) *mockPort {
	r, w := io.Pipe()
	p := &mockPort{r: r, w: w, stop: make(chan struct{})}

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case now := <-ticker.C:
				payload := strings.Join(src.Lines(now), "\n") + "\n"
				if _, err := w.Write([]byte(payload)); err != nil {
					return
				}
			}
		}
	}()
	return p
}

func (p *mockPort) Read(b []byte) (int, error) { return p.r.Read(b) }

// Write discards commands; the mock hub takes none.
func (p *mockPort) Write(b []byte) (int, error) { return len(b), nil }

func (p *mockPort) Close() error {
	p.once.Do(func() {
		close(p.stop)
		p.r.Close()
	})
	return nil
}
