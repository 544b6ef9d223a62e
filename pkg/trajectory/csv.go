// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Scaraworks

package trajectory

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// CSV column names produced by the toolpath pipeline. Position and
// velocity columns exist per joint ("J1_Pos", "J1_Hz", ...); the Pen
// column is optional for legacy files that never lift the pen.
const (
	colTime = "Time"
	colPen  = "Pen"
)

// CSVSource streams motion records from a trajectory CSV file. The
// file is re-read on Reset, satisfying the restartable source
// contract without keeping the whole trajectory in memory.
type CSVSource struct {
	path string
	axes int

	file    *os.File
	reader  *csv.Reader
	columns map[string]int
	penCol  int // -1 when the file has no Pen column
	seq     int
}

// OpenCSV opens a trajectory CSV and validates its header. The axis
// count is inferred from the J<n>_Pos/J<n>_Hz column pairs present.
func OpenCSV(path string) (*CSVSource, error) {
	s := &CSVSource{path: path}
	if err := s.open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVSource) open() error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open trajectory: %w", err)
	}

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		file.Close()
		return fmt.Errorf("read trajectory header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}

	axes := 0
	for {
		joint := fmt.Sprintf("J%d", axes+1)
		_, hasPos := columns[joint+"_Pos"]
		_, hasHz := columns[joint+"_Hz"]
		if !hasPos || !hasHz {
			if hasPos || hasHz {
				file.Close()
				return fmt.Errorf("trajectory %s: %s has position or velocity column but not both", s.path, joint)
			}
			break
		}
		axes++
	}
	if axes == 0 {
		file.Close()
		return fmt.Errorf("trajectory %s: no J<n>_Pos/J<n>_Hz column pairs", s.path)
	}

	penCol := -1
	if i, ok := columns[colPen]; ok {
		penCol = i
	}

	s.file = file
	s.reader = reader
	s.columns = columns
	s.penCol = penCol
	s.axes = axes
	s.seq = 0
	return nil
}

// Next returns the next record, or io.EOF after the last row.
func (s *CSVSource) Next() (MotionRecord, error) {
	if s.file == nil {
		return MotionRecord{}, fmt.Errorf("trajectory source is closed")
	}

	row, err := s.reader.Read()
	if err == io.EOF {
		return MotionRecord{}, io.EOF
	}
	if err != nil {
		return MotionRecord{}, fmt.Errorf("trajectory row %d: %w", s.seq, err)
	}

	rec := MotionRecord{
		Seq: s.seq,
		Pos: make([]int32, s.axes),
		Vel: make([]int32, s.axes),
	}

	for axis := 0; axis < s.axes; axis++ {
		joint := fmt.Sprintf("J%d", axis+1)
		pos, err := s.cell(row, joint+"_Pos")
		if err != nil {
			return MotionRecord{}, err
		}
		vel, err := s.cell(row, joint+"_Hz")
		if err != nil {
			return MotionRecord{}, err
		}
		rec.Pos[axis] = pos
		rec.Vel[axis] = vel
	}

	if s.penCol >= 0 {
		pen, err := parseCell(row, s.penCol, s.seq)
		if err != nil {
			return MotionRecord{}, err
		}
		if pen != 0 {
			rec.Pen = PenDown
		}
	}

	s.seq++
	return rec, nil
}

func (s *CSVSource) cell(row []string, column string) (int32, error) {
	i, ok := s.columns[column]
	if !ok {
		return 0, fmt.Errorf("trajectory row %d: missing column %s", s.seq, column)
	}
	return parseCell(row, i, s.seq)
}

// parseCell accepts both integer and float-formatted values; exports
// commonly write velocities as "250.0".
func parseCell(row []string, col, seq int) (int32, error) {
	if col >= len(row) {
		return 0, fmt.Errorf("trajectory row %d: short row", seq)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("trajectory row %d: %v", seq, err)
	}
	return int32(v), nil
}

// Reset re-reads the file from the first data row.
func (s *CSVSource) Reset() error {
	if err := s.Close(); err != nil {
		return err
	}
	return s.open()
}

func (s *CSVSource) Axes() int { return s.axes }

// Close releases the underlying file. Safe to call twice.
func (s *CSVSource) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
