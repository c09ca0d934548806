// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package frame parses the line protocol spoken by the sensor hub.
//
// Three line shapes are accepted, fields separated by commas and/or spaces:
//
//	id,timestampMs,yaw,roll,pitch            legacy IMU (3-sensor rig)
//	IMU,id,timestampMs,yaw,roll,pitch        tagged IMU (4-sensor rig)
//	EMG,id,timestampUs,value                 tagged EMG
package frame

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrEmptyLine    = errors.New("empty line")
	ErrTooFewFields = errors.New("too few fields")
	ErrBadNumber    = errors.New("bad numeric field")
	ErrUnknownTag   = errors.New("unknown frame tag")
)

// Layout tells the aggregator which sensor rig produced an IMU frame.
type Layout int

const (
	// LayoutLegacy is the untagged 5-field form sent by the 3-sensor rig.
	LayoutLegacy Layout = iota
	// LayoutTagged is the IMU-tagged form sent by the 4-sensor rig.
	LayoutTagged
)

func (l Layout) String() string {
	if l == LayoutTagged {
		return "tagged"
	}
	return "legacy"
}

// SensorFrame is either an IMU or an EMG frame.
type SensorFrame interface {
	Sensor() int
	isFrame()
}

// IMU is one orientation estimate from a body-worn sensor, in degrees.
type IMU struct {
	SensorID    int     `json:"id"`
	TimestampMs float64 `json:"t_ms"`
	Yaw         float64 `json:"yaw"`
	Roll        float64 `json:"roll"`
	Pitch       float64 `json:"pitch"`
	Layout      Layout  `json:"layout"`
}

// EMG is one raw electromyography reading.
type EMG struct {
	SensorID    int     `json:"id"`
	TimestampUs float64 `json:"t_us"`
	Value       float64 `json:"value"`
}

func (f IMU) Sensor() int { return f.SensorID }
func (f EMG) Sensor() int { return f.SensorID }

func (IMU) isFrame() {}
func (EMG) isFrame() {}

// TimestampMs converts the EMG microsecond clock to milliseconds.
func (f EMG) TimestampMs() float64 { return f.TimestampUs / 1000.0 }

// ParseError reports a line that could not be turned into a frame.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse turns one protocol line into a frame. It has no side effects.
func Parse(line string) (SensorFrame, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil, &ParseError{Line: line, Err: ErrEmptyLine}
	}

	var (
		f   SensorFrame
		err error
	)
	switch tag := strings.ToUpper(fields[0]); {
	case tag == "IMU":
		f, err = parseIMU(fields[1:], LayoutTagged)
	case tag == "EMG":
		f, err = parseEMG(fields[1:])
	case startsWithLetter(tag):
		err = fmt.Errorf("%w: %s", ErrUnknownTag, fields[0])
	default:
		f, err = parseIMU(fields, LayoutLegacy)
	}
	if err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}
	return f, nil
}

func parseIMU(fields []string, layout Layout) (IMU, error) {
	if len(fields) < 5 {
		return IMU{}, fmt.Errorf("%w: imu needs 5, got %d", ErrTooFewFields, len(fields))
	}
	id, err := parseID(fields[0])
	if err != nil {
		return IMU{}, err
	}
	nums, err := parseFloats(fields[1:5])
	if err != nil {
		return IMU{}, err
	}
	return IMU{
		SensorID:    id,
		TimestampMs: nums[0],
		Yaw:         nums[1],
		Roll:        nums[2],
		Pitch:       nums[3],
		Layout:      layout,
	}, nil
}

func parseEMG(fields []string) (EMG, error) {
	if len(fields) < 3 {
		return EMG{}, fmt.Errorf("%w: emg needs 3, got %d", ErrTooFewFields, len(fields))
	}
	id, err := parseID(fields[0])
	if err != nil {
		return EMG{}, err
	}
	nums, err := parseFloats(fields[1:3])
	if err != nil {
		return EMG{}, err
	}
	return EMG{SensorID: id, TimestampUs: nums[0], Value: nums[1]}, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: sensor id %q", ErrBadNumber, s)
	}
	return id, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %q", ErrBadNumber, s)
		}
		out[i] = v
	}
	return out, nil
}

func startsWithLetter(s string) bool {
	for _, r := range s {
		return unicode.IsLetter(r)
	}
	return false
}
