// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors owns the serial link to the sensor hub: opening the port,
// reading newline-terminated frames and handing them to the pipeline.
package sensors

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/rehab_computer/internal/frame"
)

var ErrAlreadyRunning = errors.New("serial reader already running")

const (
	// JoinTimeout bounds how long Stop waits for the read goroutine.
	JoinTimeout = time.Second
	// maxLineLen bounds one line; longer input is dropped up to the next newline.
	maxLineLen = 4096
)

// Handler receives every frame that parses. It runs on the read goroutine.
type Handler func(frame.SensorFrame)

// Reader runs one read goroutine per Start/Stop cycle.
type Reader struct {
	log  *zap.Logger
	open PortOpener
	opts PortOptions

	mu     sync.Mutex
	port   io.Closer
	cancel context.CancelFunc
	done   chan struct{}

	lines   atomic.Uint64
	dropped atomic.Uint64
}

func NewReader(log *zap.Logger, open PortOpener, opts PortOptions) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{log: log, open: open, opts: opts}
}

// Start opens the port and begins delivering frames to handle. It fails if
// the port cannot be opened or a previous Start has not been stopped.
func (r *Reader) Start(ctx context.Context, handle Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done != nil {
		select {
		case <-r.done:
			// previous loop ended on its own; allow a restart
		default:
			return ErrAlreadyRunning
		}
	}

	port, err := r.open(r.opts)
	if err != nil {
		return err
	}
	pc := &onceCloser{ReadWriteCloser: port}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.port, r.cancel, r.done = pc, cancel, done

	r.log.Info("serial reader started",
		zap.String("port", r.opts.PortName),
		zap.Int("baud", r.opts.BaudRate))
	go r.loop(ctx, pc, handle, done)
	return nil
}

// Stop cancels the read goroutine, closes the port and waits up to
// JoinTimeout for the goroutine to exit. Stopping an idle reader is a no-op.
func (r *Reader) Stop() error {
	r.mu.Lock()
	port, cancel, done := r.port, r.cancel, r.done
	r.port, r.cancel, r.done = nil, nil, nil
	r.mu.Unlock()

	if done == nil {
		return nil
	}
	cancel()
	err := port.Close()

	select {
	case <-done:
		r.log.Info("serial reader stopped",
			zap.Uint64("lines", r.lines.Load()),
			zap.Uint64("dropped", r.dropped.Load()))
	case <-time.After(JoinTimeout):
		r.log.Warn("serial reader did not exit in time", zap.Duration("timeout", JoinTimeout))
	}
	return err
}

// Running reports whether the read goroutine is alive.
func (r *Reader) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Lines is the number of frames delivered so far.
func (r *Reader) Lines() uint64 { return r.lines.Load() }

// Dropped is the number of lines that failed to parse.
func (r *Reader) Dropped() uint64 { return r.dropped.Load() }

func (r *Reader) loop(ctx context.Context, port io.ReadCloser, handle Handler, done chan struct{}) {
	defer close(done)
	defer port.Close()

	br := bufio.NewReaderSize(port, maxLineLen)
	var pending []byte
	// discarding is set while skipping the tail of an oversized line
	discarding := false
	for {
		if ctx.Err() != nil {
			return
		}
		chunk, err := br.ReadSlice('\n')
		if !discarding {
			pending = append(pending, chunk...)
			if len(pending) > maxLineLen {
				r.dropped.Add(1)
				r.log.Debug("dropping oversized line", zap.Int("len", len(pending)))
				pending = pending[:0]
				discarding = true
			}
		}

		switch {
		case err == nil:
			if discarding {
				discarding = false
				continue
			}
			line := string(pending)
			pending = pending[:0]
			r.handleLine(line, handle)
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case ctx.Err() != nil:
			return
		case errors.Is(err, io.EOF) && r.opts.ReadTimeout > 0:
			// read timeout with no data; keep the partial line
			continue
		case errors.Is(err, io.EOF):
			r.log.Info("serial stream ended", zap.String("port", r.opts.PortName))
			return
		default:
			r.log.Error("serial read failed", zap.String("port", r.opts.PortName), zap.Error(err))
			return
		}
	}
}

func (r *Reader) handleLine(line string, handle Handler) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	f, err := frame.Parse(line)
	if err != nil {
		r.dropped.Add(1)
		r.log.Debug("dropping malformed line", zap.String("line", line), zap.Error(err))
		return
	}
	r.lines.Add(1)
	handle(f)
}

// onceCloser lets Stop and the read goroutine both close the port.
type onceCloser struct {
	io.ReadWriteCloser
	once sync.Once
	err  error
}

func (c *onceCloser) Close() error {
	c.once.Do(func() { c.err = c.ReadWriteCloser.Close() })
	return c.err
}
