package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	if snap.SchemaVersion != CurrentSchemaVersion || snap.CodecVersion != CurrentCodecVersion {
		return Snapshot{}, fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, snap.SchemaVersion, snap.CodecVersion)
	}
	return snap, nil
}
