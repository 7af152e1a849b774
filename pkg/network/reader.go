package network

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/gilchrisn/recall-network-sim/pkg/simerr"
)

// MatrixFile is the JSON layout of a ground-truth graph given as a weight matrix
type MatrixFile struct {
	Labels  []string    `json:"labels"`
	Weights [][]float64 `json:"weights"`
}

// Reader loads a ground-truth graph and its item dictionary
type Reader interface {
	Read(path string, directed bool) (*Graph, *Items, error)
}

// FileReader is the Reader for local graph files
type FileReader struct{}

func (FileReader) Read(path string, directed bool) (*Graph, *Items, error) {
	return ReadGraph(path, directed)
}

// ReadGraph loads a ground-truth graph and its item dictionary.
// Format is determined by file extension: .json is a labelled weight matrix,
// anything else (.snet, .csv, .edgelist, .txt) is an edge list.
func ReadGraph(path string, directed bool) (*Graph, *Items, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readMatrixJSON(path, directed)
	default:
		return readEdgeList(path, directed)
	}
}

// readEdgeList parses lines of "item1,item2[,weight]". Commas, tabs or spaces
// separate fields; blank lines and lines starting with # are skipped; a first
// row starting with "item1" is treated as a header.
func readEdgeList(path string, directed bool) (*Graph, *Items, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: "cannot open", Err: err}
	}
	defer file.Close()

	items, _ := NewItems(nil)
	var edges []Edge

	lineNum := 0
	seenData := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := splitFields(line)
		if !seenData && strings.EqualFold(fields[0], "item1") {
			seenData = true
			continue
		}
		seenData = true

		if len(fields) < 2 || len(fields) > 3 {
			return nil, nil, &simerr.FileFormatError{Path: path, Line: lineNum, Reason: fmt.Sprintf("expected 2 or 3 fields, got %d", len(fields))}
		}
		if fields[0] == "" || fields[1] == "" {
			return nil, nil, &simerr.FileFormatError{Path: path, Line: lineNum, Reason: "empty item label"}
		}

		weight := 1.0
		if len(fields) == 3 {
			weight, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, nil, &simerr.FileFormatError{Path: path, Line: lineNum, Reason: "invalid weight", Err: err}
			}
			if weight < 0 {
				return nil, nil, &simerr.FileFormatError{Path: path, Line: lineNum, Reason: fmt.Sprintf("negative weight %v", weight)}
			}
		}

		from := labelIndex(items, fields[0])
		to := labelIndex(items, fields[1])
		edges = append(edges, Edge{From: from, To: to, Weight: weight})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: "read failed", Err: err}
	}
	if items.Len() == 0 {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: "no edges found"}
	}

	g := NewGraph(items.Len(), directed)
	for _, e := range edges {
		if err := g.SetEdge(e.From, e.To, e.Weight); err != nil {
			return nil, nil, &simerr.FileFormatError{Path: path, Reason: "invalid edge", Err: err}
		}
	}
	return g, items, nil
}

func readMatrixJSON(path string, directed bool) (*Graph, *Items, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: "cannot read", Err: err}
	}

	var mf MatrixFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: "invalid JSON", Err: err}
	}

	n := len(mf.Labels)
	if n == 0 {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: "no labels"}
	}
	if len(mf.Weights) != n {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: fmt.Sprintf("matrix has %d rows but %d labels", len(mf.Weights), n)}
	}

	flat := make([]float64, 0, n*n)
	for i, row := range mf.Weights {
		if len(row) != n {
			return nil, nil, &simerr.FileFormatError{Path: path, Reason: fmt.Sprintf("row %d has %d columns, expected %d", i, len(row), n)}
		}
		flat = append(flat, row...)
	}

	items, err := NewItems(mf.Labels)
	if err != nil {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: "invalid labels", Err: err}
	}

	g, err := NewGraphFromMatrix(mat.NewDense(n, n, flat), directed)
	if err != nil {
		return nil, nil, &simerr.FileFormatError{Path: path, Reason: "invalid weight matrix", Err: err}
	}
	return g, items, nil
}

func splitFields(line string) []string {
	if strings.Contains(line, ",") {
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return strings.Fields(line)
}

func labelIndex(items *Items, label string) int {
	if idx, ok := items.Index(label); ok {
		return idx
	}
	idx, _ := items.Add(label)
	return idx
}
