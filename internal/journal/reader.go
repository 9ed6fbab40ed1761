package journal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"lppool/internal/model"
)

// ReadOperationsFile loads a JSONL journal from path.
func ReadOperationsFile(path string) ([]model.Operation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()
	return ReadOperations(file)
}

// ReadOperations decodes one operation per non-blank line. Operations
// without a sequence number take the previous one plus one; sequence numbers
// must be strictly increasing.
func ReadOperations(r io.Reader) ([]model.Operation, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var ops []model.Operation
	var lineNo, lastSeq uint64
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var op model.Operation
		if err := json.Unmarshal(line, &op); err != nil {
			return nil, fmt.Errorf("parse journal line %d: %w", lineNo, err)
		}
		if op.Seq == 0 {
			op.Seq = lastSeq + 1
		}
		if op.Seq <= lastSeq {
			return nil, fmt.Errorf("journal line %d: seq %d not after %d", lineNo, op.Seq, lastSeq)
		}
		account, err := ParseAccount(op.Account)
		if err != nil {
			return nil, fmt.Errorf("journal line %d: %w", lineNo, err)
		}
		op.Account = account
		lastSeq = op.Seq
		ops = append(ops, op)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return ops, nil
}
