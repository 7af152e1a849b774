package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gilchrisn/recall-network-sim/pkg/network"
	"github.com/gilchrisn/recall-network-sim/pkg/participant"
	"github.com/gilchrisn/recall-network-sim/pkg/walk"
)

// ParticipantEvent is one JSONL line describing a simulated participant
type ParticipantEvent struct {
	RunID       string        `json:"run_id,omitempty"`
	SimNum      int           `json:"simnum"`
	Participant int           `json:"participant"`
	StartSeed   int64         `json:"start_seed"`
	EndSeed     int64         `json:"end_seed"`
	UniqueNodes int           `json:"unique_nodes"`
	GlobalWalks walk.WalkList `json:"global_walks"`
	LocalWalks  walk.WalkList `json:"local_walks"`
	Labels      []string      `json:"labels"`
	Items       [][]string    `json:"items,omitempty"`
	Timestamp   int64         `json:"timestamp"`
}

// WalkTracker streams participant events to a JSONL file
type WalkTracker struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	runID   string
	global  *network.Items
}

// NewWalkTracker creates path. When global is set each event also carries
// the walks as item labels.
func NewWalkTracker(path, runID string, global *network.Items) (*WalkTracker, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create walk file: %w", err)
	}
	return &WalkTracker{
		file:    file,
		encoder: json.NewEncoder(file),
		runID:   runID,
		global:  global,
	}, nil
}

// LogParticipant writes one record. A nil tracker does nothing.
func (wt *WalkTracker) LogParticipant(simnum, index int, rec *participant.Record) error {
	if wt == nil {
		return nil
	}

	start, end := rec.SeedRange()
	event := ParticipantEvent{
		RunID:       wt.runID,
		SimNum:      simnum,
		Participant: index,
		StartSeed:   start,
		EndSeed:     end,
		UniqueNodes: rec.UniqueNodes(),
		GlobalWalks: rec.GlobalWalks(),
		LocalWalks:  rec.LocalWalks(),
		Labels:      rec.Items().Labels(),
		Timestamp:   time.Now().Unix(),
	}
	if wt.global != nil {
		event.Items = labelWalks(event.GlobalWalks, wt.global)
	}

	wt.mu.Lock()
	defer wt.mu.Unlock()
	return wt.encoder.Encode(event)
}

func labelWalks(walks walk.WalkList, items *network.Items) [][]string {
	out := make([][]string, len(walks))
	for i, list := range walks {
		out[i] = make([]string, len(list))
		for j, node := range list {
			out[i][j], _ = items.Label(node)
		}
	}
	return out
}

func (wt *WalkTracker) Close() error {
	if wt == nil || wt.file == nil {
		return nil
	}
	wt.mu.Lock()
	defer wt.mu.Unlock()
	return wt.file.Close()
}

// ReadParticipants loads every event of a walk file
func ReadParticipants(path string) ([]ParticipantEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var events []ParticipantEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var ev ParticipantEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}
