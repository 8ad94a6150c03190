package main

import (
	"bufio"
	"bytes"
	"os"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ScriptOp is one bridge call from an ops file
// Step 0 runs on every step; value refs returned by an op are valid until the step's frame ends
type ScriptOp struct {
	Step int             `json:"step"`
	Op   string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

// OpResult records one executed op
type OpResult struct {
	Step   int             `json:"step"`
	Op     string          `json:"op"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// LoadScript reads a JSON-lines ops file; blank lines and lines starting with # are skipped
func LoadScript(path string) ([]ScriptOp, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read ops")
	}
	return ParseScript(data)
}

func ParseScript(data []byte) ([]ScriptOp, error) {
	var ops []ScriptOp
	sc := bufio.NewScanner(bytes.NewReader(data))
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		var op ScriptOp
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, errors.Wrapf(err, "ops line %d", n)
		}
		if op.Op == "" {
			return nil, errors.Errorf("ops line %d: missing op", n)
		}
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "scan ops")
	}
	return ops, nil
}
