// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/rehab_computer/internal/config"
	"github.com/relabs-tech/rehab_computer/internal/emg"
	"github.com/relabs-tech/rehab_computer/internal/frame"
	"github.com/relabs-tech/rehab_computer/internal/kinematics"
	"github.com/relabs-tech/rehab_computer/internal/orientation"
	"github.com/relabs-tech/rehab_computer/internal/pipeline"
	"github.com/relabs-tech/rehab_computer/internal/scoring"
	"github.com/relabs-tech/rehab_computer/internal/sensors"
	"github.com/relabs-tech/rehab_computer/internal/session"
)

// mockInterval is the line rate of the mock port, close to the real hub.
const mockInterval = 20 * time.Millisecond

// Runtime owns the processing chain shared by the web and console modes:
// serial reader -> pipeline -> session buffer.
type Runtime struct {
	cfg *config.Config
	log *zap.Logger

	emg      *emg.Processor
	pipeline *pipeline.Pipeline
	buffer   *session.Buffer
	reader   *sensors.Reader
	scorer   *scoring.Scorer
	vas      *scoring.VasLog

	samples chan session.DerivedSample
	mode    string

	mu   sync.Mutex
	ctx  context.Context // set by Start, the lifetime of the reader goroutine
	done chan struct{}
}

var errNotRunning = errors.New("runtime is not running")

// NewRuntime builds every component from cfg. With the serial port disabled
// the reader consumes a mock port instead.
func NewRuntime(cfg *config.Config, log *zap.Logger) *Runtime {
	if cfg.SerialEnabled {
		opts := sensors.PortOptions{
			PortName:    cfg.SerialPort,
			BaudRate:    cfg.SerialBaudRate,
			ReadTimeout: time.Duration(cfg.SerialReadTimeoutMS) * time.Millisecond,
		}
		return newRuntime(cfg, log, sensors.OpenSerialPort, opts, "serial")
	}

	layout := frame.LayoutLegacy
	if cfg.MockLayout == "tagged" {
		layout = frame.LayoutTagged
	}
	src := orientation.NewMockSource(layout, cfg.EMGSensorID)
	return newRuntime(cfg, log, sensors.MockOpener(src, mockInterval), sensors.PortOptions{PortName: "mock"}, "mock")
}

func newRuntime(cfg *config.Config, log *zap.Logger, open sensors.PortOpener, opts sensors.PortOptions, mode string) *Runtime {
	if log == nil {
		log = zap.NewNop()
	}

	hip := &kinematics.HipResolver{
		Crossover:  cfg.HipCrossoverDeg,
		Midpoint:   cfg.HipMidpointDeg,
		Hysteresis: cfg.HipHysteresisDeg,
		Deadzone:   cfg.HipDeadzoneDeg,
	}
	channels := kinematics.DefaultChannels()
	channels[kinematics.Hip].Alpha = cfg.SmoothAlphaHip
	channels[kinematics.Knee].Alpha = cfg.SmoothAlphaKnee
	channels[kinematics.Ankle].Alpha = cfg.SmoothAlphaAnkle

	emgProc := emg.NewProcessor(emg.Config{
		SensorID:     cfg.EMGSensorID,
		WindowSize:   cfg.EMGWindowSize,
		EnvelopeBeta: cfg.EMGEnvelopeBeta,
		SyncWindowMs: cfg.EMGSyncWindowMS,
	})

	return &Runtime{
		cfg:      cfg,
		log:      log,
		emg:      emgProc,
		pipeline: pipeline.New(log.Named("pipeline"), hip, kinematics.NewSmoother(channels), emgProc),
		buffer:   session.NewBuffer(log.Named("session")),
		reader:   sensors.NewReader(log.Named("serial"), open, opts),
		scorer:   scoring.NewScorer(log.Named("scoring")),
		vas:      scoring.NewVasLog(),
		samples:  make(chan session.DerivedSample, cfg.BroadcastBuffer),
		mode:     mode,
	}
}

// Buffer exposes the session buffer for the live sinks.
func (rt *Runtime) Buffer() *session.Buffer { return rt.buffer }

// Mode is "serial" or "mock".
func (rt *Runtime) Mode() string { return rt.mode }

// Start drains derived samples into the session buffer until ctx is done,
// then stops the reader and closes every subscription. Sessions can be
// started once Start returns.
func (rt *Runtime) Start(ctx context.Context) {
	done := make(chan struct{})
	rt.mu.Lock()
	rt.ctx, rt.done = ctx, done
	rt.mu.Unlock()

	go func() {
		defer close(done)
		err := rt.buffer.Run(ctx, rt.samples)
		if stopErr := rt.reader.Stop(); stopErr != nil {
			rt.log.Warn("closing serial port", zap.Error(stopErr))
		}
		rt.buffer.Close()
		if err != nil && !errors.Is(err, context.Canceled) {
			rt.log.Error("session buffer stopped", zap.Error(err))
		}
	}()
}

// Wait blocks until the goroutine launched by Start has released everything.
func (rt *Runtime) Wait() {
	rt.mu.Lock()
	done := rt.done
	rt.mu.Unlock()
	if done != nil {
		<-done
	}
}

// StartSession starts the reader if needed, then opens a new recording.
// If the port cannot be opened no session is started.
func (rt *Runtime) StartSession() (session.Session, error) {
	if err := rt.startReader(); err != nil {
		return session.Session{}, err
	}
	if rt.cfg.ResetFiltersOnStart {
		rt.pipeline.RequestReset()
	}
	return rt.buffer.Start(), nil
}

// StopSession freezes the recording and releases the port.
func (rt *Runtime) StopSession() (session.Session, error) {
	s, err := rt.buffer.Stop()
	if err != nil {
		return session.Session{}, err
	}
	if err := rt.reader.Stop(); err != nil {
		rt.log.Warn("closing serial port", zap.Error(err))
	}
	return s, nil
}

func (rt *Runtime) startReader() error {
	rt.mu.Lock()
	ctx := rt.ctx
	rt.mu.Unlock()
	if ctx == nil {
		return errNotRunning
	}

	err := rt.reader.Start(ctx, rt.handleFrame(ctx))
	if errors.Is(err, sensors.ErrAlreadyRunning) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("start serial reader: %w", err)
	}
	return nil
}

// handleFrame runs on the reader goroutine.
func (rt *Runtime) handleFrame(ctx context.Context) sensors.Handler {
	return func(f frame.SensorFrame) {
		s, ok := rt.pipeline.Process(f)
		if !ok {
			return
		}
		select {
		case rt.samples <- s:
		case <-ctx.Done():
		}
	}
}

// Status is a point-in-time view of the runtime for the control surface.
type Status struct {
	Mode          string      `json:"mode"`
	State         string      `json:"state"`
	ReaderRunning bool        `json:"reader_running"`
	Lines         uint64      `json:"lines"`
	Malformed     uint64      `json:"malformed"`
	DroppedEvents uint64      `json:"dropped_events"`
	LastEMG       *emg.Sample `json:"last_emg,omitempty"`
	EMGRMS        float64     `json:"emg_rms"`
}

func (rt *Runtime) Status() Status {
	st := Status{
		Mode:          rt.mode,
		State:         rt.buffer.State().String(),
		ReaderRunning: rt.reader.Running(),
		Lines:         rt.reader.Lines(),
		Malformed:     rt.reader.Dropped(),
		DroppedEvents: rt.buffer.Dropped(),
		EMGRMS:        rt.emg.RMS(),
	}
	if last, ok := rt.emg.Last(); ok {
		st.LastEMG = &last
	}
	return st
}
