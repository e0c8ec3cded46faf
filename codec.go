package fscache

import (
	"bytes"
	"encoding/gob"
)

// encodeValue serializes a result with gob.
func encodeValue[R any](v R) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeValue deserializes a result produced by encodeValue.
func decodeValue[R any](data []byte) (R, error) {
	var v R
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&v)
	return v, err
}
