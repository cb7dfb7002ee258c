package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"flatdb/record"
)

func TestRoundTripPreservesFieldOrder(t *testing.T) {
	// arrange
	records := []*record.Record{
		record.FromPairs(
			record.F("id", record.Int(1)),
			record.F("name", record.String("Alice")),
			record.F("tags", record.List{record.String("admin")}),
		),
		record.FromPairs(
			record.F("name", record.String("Bob")),
			record.F("id", record.Int(2)),
		),
	}

	// act
	data, err := Encode(records)
	assert.NoError(t, err)
	decoded, err := Decode(data)
	assert.NoError(t, err)

	// assert
	assert.Len(t, decoded, 2)
	assert.Equal(t, []string{"id", "name", "tags"}, decoded[0].Keys())
	assert.Equal(t, []string{"name", "id"}, decoded[1].Keys())
	assert.True(t, decoded[0].Equal(records[0]))
}

func TestNilEncodesAsEmptyArray(t *testing.T) {
	data, err := Encode(nil)
	assert.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestDecodeNeverReturnsNil(t *testing.T) {
	for _, wire := range []string{"[]", "null"} {
		records, err := Decode([]byte(wire))
		assert.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	}
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte("{not an array"))
	assert.Error(t, err)
}
