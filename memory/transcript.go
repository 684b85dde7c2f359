package memory

import (
	"encoding/json"
	"errors"
	"os"
)

// LoadTranscript reads turn records written by SaveTranscript. A missing file
// yields a nil slice and no error.
func LoadTranscript(path string) ([]TurnRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var recs []TurnRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// SaveTranscript writes records as indented JSON.
func SaveTranscript(path string, recs []TurnRecord) error {
	b, err := json.MarshalIndent(recs, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
