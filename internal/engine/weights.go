package engine

import (
	"bufio"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/auriora/fsdrive/internal/errors"
)

// weightInflation is the deliberate 1% headroom from the design notes: it
// keeps the cumulative table strictly below 1.0 except for the last entry,
// so the sampler's fallback-to-last path gets exercised occasionally
// instead of being unreachable dead code.
const weightInflation = 1.01

// cumulativeEntry pairs an opcode with the running probability mass at or
// below it once entries are sorted by weight descending.
type cumulativeEntry struct {
	op         OpCode
	cumulative float64
}

// EventGenerator samples an OpCode per call according to a normalized
// weight table. It holds no per-worker state itself; callers each keep
// their own *rand.Rand so sampling never contends across workers.
type EventGenerator struct {
	entries []cumulativeEntry
}

// ParseWeightTable reads a CSV of "opname,weight" records from path. Blank
// lines and lines starting with '#' are skipped. An unknown opname, an
// unparseable weight, or an empty table is a configuration fault: none of
// these can be recovered from inside a running worker.
func ParseWeightTable(path string) (map[OpCode]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewConfigFault("opening workload table "+path, err)
	}
	defer f.Close()

	weights := make(map[OpCode]float64)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			return nil, errors.NewConfigFault(
				"workload table line has a record format other than \"opname,weight\"", nil)
		}
		name := strings.TrimSpace(fields[0])
		op, ok := ParseOpCode(name)
		if !ok {
			return nil, errors.NewConfigFault("unknown operation name "+name+" in workload table", nil)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil || w < 0 {
			return nil, errors.NewConfigFault("invalid weight for "+name+" in workload table", err)
		}
		weights[op] = w
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, errors.NewConfigFault("reading workload table "+path, err)
	}
	if len(weights) == 0 {
		return nil, errors.NewConfigFault("workload table "+path+" is empty", nil)
	}
	return weights, nil
}

// NewEventGenerator normalizes weights into a cumulative-probability table,
// sorted by weight descending so the sampler's expected walk length is
// bounded (design note).
func NewEventGenerator(weights map[OpCode]float64) (*EventGenerator, error) {
	if len(weights) == 0 {
		return nil, errors.NewConfigFault("cannot build an event generator from an empty weight table", nil)
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	total *= weightInflation

	entries := make([]cumulativeEntry, 0, len(weights))
	for op, w := range weights {
		entries = append(entries, cumulativeEntry{op: op, cumulative: w})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].cumulative > entries[j].cumulative
	})

	running := 0.0
	for i := range entries {
		running += entries[i].cumulative
		cp := running / total
		if cp > 1.0 && cp < 1.000001 {
			cp = 1.0
		}
		entries[i].cumulative = cp
	}

	return &EventGenerator{entries: entries}, nil
}

// Sample draws a uniform r in [0,1) from rng and returns the first opcode
// whose cumulative probability exceeds r. Because total was inflated by
// 1%, r can legitimately exceed every cumulative value; in that case the
// last (smallest-weight) opcode in the sorted sequence is returned.
func (g *EventGenerator) Sample(rng *rand.Rand) OpCode {
	r := rng.Float64()
	for _, e := range g.entries {
		if e.cumulative > r {
			return e.op
		}
	}
	return g.entries[len(g.entries)-1].op
}
