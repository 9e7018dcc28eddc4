package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordFlatten(t *testing.T) {
	rec := Record{ID: 7, Document: Document{"subject": "hi", IDKey: "shadowed"}}
	flat := rec.Flatten()

	assert.Equal(t, int64(7), flat[IDKey])
	assert.Equal(t, "hi", flat["subject"])
	assert.Equal(t, "shadowed", rec.Document[IDKey], "the record is not modified")
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []int64{}, IDs(nil))
	assert.Equal(t, []int64{3, 1, 2}, IDs([]Record{{ID: 3}, {ID: 1}, {ID: 2}}))
}
