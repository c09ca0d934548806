// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/relabs-tech/rehab_computer/internal/config"
	"github.com/relabs-tech/rehab_computer/internal/logging"
	"github.com/relabs-tech/rehab_computer/internal/session"
)

// RunConsole records one session from the configured source, printing every
// event, and prints its score on Ctrl+C.
func RunConsole() error {
	cfg := config.Get()
	if cfg == nil {
		return errors.New("config not initialized")
	}
	log, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat, "rehab-console")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt := NewRuntime(cfg, log)
	return runConsole(ctx, rt, os.Stdout)
}

func runConsole(ctx context.Context, rt *Runtime, out io.Writer) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer rt.Wait()
	defer cancel()
	rt.Start(runCtx)

	id, events := rt.Buffer().Subscribe(0)
	defer rt.Buffer().Unsubscribe(id)

	s, err := rt.StartSession()
	if err != nil {
		return err
	}
	rt.log.Info("console session started", zap.String("session_id", s.ID), zap.String("mode", rt.Mode()))

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case ev, ok := <-events:
			if !ok {
				break loop
			}
			fmt.Fprintln(out, formatEvent(ev))
		}
	}

	frozen, err := rt.StopSession()
	if err != nil {
		return err
	}
	res := rt.scorer.ScoreSession(frozen, "console")
	fmt.Fprintf(out, "[SCORE] samples=%d  ROM hip=%.1f knee=%.1f ankle=%.1f  score=%d\n",
		len(frozen.Samples), res.ROMHip, res.ROMKnee, res.ROMAnkle, res.Score)
	return nil
}

func formatEvent(ev session.Event) string {
	if ev.Reset {
		return "[RESET] maxima cleared"
	}
	line := fmt.Sprintf("[JOINT] t=%8.0f  HIP=%6.2f  KNEE=%6.2f  ANKLE=%6.2f  max(%5.1f %5.1f %5.1f)",
		ev.T, ev.Hip, ev.Knee, ev.Ankle, ev.MaxHip, ev.MaxKnee, ev.MaxAnkle)
	if ev.EMG != nil {
		line += fmt.Sprintf("  EMG[%d]=%7.4f rms=%6.4f env=%6.4f", *ev.EMGID, *ev.EMG, *ev.EMGRMS, *ev.EMGEnv)
	}
	return line
}
