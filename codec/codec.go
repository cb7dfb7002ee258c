// Package codec defines the store's wire form: a JSON array of
// insertion-ordered records. The encryption boundary seals exactly these
// bytes, so the format carries no envelope of its own.
package codec

import (
	"encoding/json"

	"github.com/pkg/errors"

	"flatdb/record"
)

// Encode renders records as a JSON array. A nil list encodes as "[]" so
// the wire form never distinguishes nil from empty.
func Encode(records []*record.Record) ([]byte, error) {
	if records == nil {
		records = []*record.Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, errors.Wrap(err, "encoding record list")
	}
	return data, nil
}

// Decode parses a JSON array back into records, preserving field order
// within each record. The result is never nil.
func Decode(data []byte) ([]*record.Record, error) {
	var records []*record.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "decoding record list")
	}
	if records == nil {
		records = []*record.Record{}
	}
	return records, nil
}
