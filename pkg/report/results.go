// Package report writes run results: the append-only results CSV, the skip
// log, participant walk dumps, the run manifest and result summaries.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/gilchrisn/recall-network-sim/pkg/score"
)

// Header is the column layout of the results CSV
var Header = []string{"method", "simnum", "ssnum", "hit", "miss", "falsealarms", "correctrejections", "cost", "startseed"}

// Sink receives score records in emission order
type Sink interface {
	Write(rec score.Record) error
}

// CSVReporter appends one row per record and flushes it before returning,
// so an interrupted run leaves only complete rows behind
type CSVReporter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	rows   int
}

// OpenCSV opens path for appending, writing the header if the file is empty.
// A non-empty file must already start with the same header.
func OpenCSV(path string) (*CSVReporter, error) {
	return openAppend(path, Header, func(file *os.File, w *csv.Writer) *CSVReporter {
		return &CSVReporter{file: file, writer: w}
	})
}

// openAppend is shared by the results and skip files
func openAppend[T any](path string, header []string, wrap func(*os.File, *csv.Writer) T) (T, error) {
	var zero T
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return zero, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := writer.Write(header); err != nil {
			file.Close()
			return zero, fmt.Errorf("failed to write header: %w", err)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			file.Close()
			return zero, fmt.Errorf("failed to write header: %w", err)
		}
	} else if err := checkHeader(path, header); err != nil {
		file.Close()
		return zero, err
	}
	return wrap(file, writer), nil
}

func checkHeader(path string, header []string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	got, err := csv.NewReader(file).Read()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	if strings.Join(got, ",") != strings.Join(header, ",") {
		return fmt.Errorf("%s has header %q, expected %q", path, strings.Join(got, ","), strings.Join(header, ","))
	}
	return nil
}

func (r *CSVReporter) Write(rec score.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := []string{
		rec.Method,
		strconv.Itoa(rec.SimNum),
		strconv.Itoa(rec.SSNum),
		strconv.Itoa(rec.SDT.Hit),
		strconv.Itoa(rec.SDT.Miss),
		strconv.Itoa(rec.SDT.FalseAlarm),
		strconv.Itoa(rec.SDT.CorrectRejection),
		strconv.FormatFloat(rec.Cost, 'f', -1, 64),
		strconv.FormatInt(rec.StartSeed, 10),
	}
	if err := r.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	r.writer.Flush()
	if err := r.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush row: %w", err)
	}
	r.rows++
	return nil
}

// Rows is the number of rows written through this reporter
func (r *CSVReporter) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

func (r *CSVReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer.Flush()
	return errors.Join(r.writer.Error(), r.file.Close())
}

// ReadResults parses a results CSV written by CSVReporter
func ReadResults(path string) ([]score.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	return parseResults(file)
}

func parseResults(r io.Reader) ([]score.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	var records []score.Record
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && row[0] == Header[0] {
			continue
		}

		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []string) (score.Record, error) {
	ints := make([]int, 6)
	for i := range ints {
		v, err := strconv.Atoi(row[i+1])
		if err != nil {
			return score.Record{}, fmt.Errorf("column %s: %w", Header[i+1], err)
		}
		ints[i] = v
	}
	cost, err := strconv.ParseFloat(row[7], 64)
	if err != nil {
		return score.Record{}, fmt.Errorf("column cost: %w", err)
	}
	seed, err := strconv.ParseInt(row[8], 10, 64)
	if err != nil {
		return score.Record{}, fmt.Errorf("column startseed: %w", err)
	}
	return score.Record{
		Method: row[0],
		SimNum: ints[0],
		SSNum:  ints[1],
		SDT: score.SDT{
			Hit:              ints[2],
			Miss:             ints[3],
			FalseAlarm:       ints[4],
			CorrectRejection: ints[5],
		},
		Cost:      cost,
		StartSeed: seed,
	}, nil
}
