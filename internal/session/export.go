// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"t_ms", "hip", "knee", "ankle", "emg", "emg_rms", "emg_env", "emg_id"}

// WriteCSV writes one row per sample in arrival order. Samples without EMG
// leave the EMG columns empty.
func WriteCSV(w io.Writer, s Session) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, smp := range s.Samples {
		row := []string{
			formatFloat(smp.TimestampMs),
			formatFloat(smp.Hip),
			formatFloat(smp.Knee),
			formatFloat(smp.Ankle),
			"", "", "", "",
		}
		if smp.EMG != nil {
			row[4] = formatFloat(smp.EMG.Value)
			row[5] = formatFloat(smp.EMG.RMS)
			row[6] = formatFloat(smp.EMG.Envelope)
			row[7] = strconv.Itoa(smp.EMG.SensorID)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
