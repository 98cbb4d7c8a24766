package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// evalLog records one CSV row per evaluation. Columns follow the
// ParamVector, so the header is built at runtime.
type evalLog struct {
	f *os.File
	w *csv.Writer
}

func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	header := []string{"eval", "fitness"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	l := &evalLog{f: f, w: csv.NewWriter(f)}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

// Write appends and flushes one evaluation.
func (l *evalLog) Write(eval int, fitness float64, values []float64) error {
	row := []string{strconv.Itoa(eval), fmt.Sprintf("%.6f", fitness)}
	for _, v := range values {
		row = append(row, fmt.Sprintf("%.6f", v))
	}
	if err := l.w.Write(row); err != nil {
		return err
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *evalLog) Close() error {
	l.w.Flush()
	return l.f.Close()
}
