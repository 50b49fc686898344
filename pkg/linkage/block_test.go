package linkage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestPartitioner_Materialize(t *testing.T) {
	primary := restaurant(2, "Joe's Grill", "10 Main St", "IA", "50701")
	primary.Clean = true
	evaluated := restaurant(6, "Ann's Cafe", "22 Elm Ave", "IA", "50701")
	evaluated.Clean = true
	blank := restaurant(7, " ", "1 Oak St", "IA", "50702")

	store := newMemStore(
		restaurant(5, "Joes Grill", "10 Main St", "IA", "50701"),
		primary,
		restaurant(3, "Ann's Cafe", "22 Elm Ave", "IA", "50702"),
		restaurant(4, "Ann's Cafe", "22 Elm Ave", "NE", "68102"),
		evaluated,
		blank,
	)
	store.links[models.Link{PrimaryID: 2, OriginalID: 1}] = true

	p := NewPartitioner(NewRecordValidator(), testLogger())
	partition, err := p.Materialize(context.Background(), store, "IA")
	require.NoError(t, err)

	assert.Equal(t, "IA", partition.State)
	assert.Equal(t, []string{"50701", "50702"}, partition.Zips())

	first := partition.Block("50701")
	require.NotNil(t, first)
	assert.Equal(t, []int64{2, 5}, ids(first.Candidates()), "dirty rows plus primaries, ascending")

	second := partition.Block("50702")
	require.NotNil(t, second)
	assert.Equal(t, []int64{3}, ids(second.Candidates()))

	require.Len(t, partition.Rejected, 1)
	assert.Equal(t, int64(7), partition.Rejected[0].RecordID)
	assert.Nil(t, partition.Block("68102"))
	assert.Len(t, partition.Blocks(), 2)
}

func TestPartitioner_StorageError(t *testing.T) {
	store := newMemStore(scenarioRows()...)
	store.fail = failOn("block_rows", errBoom)

	p := NewPartitioner(NewRecordValidator(), testLogger())
	_, err := p.Materialize(context.Background(), store, "IA")

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "materialize block", se.Op)
	assert.ErrorIs(t, err, errBoom)
}

func TestPartitioner_States(t *testing.T) {
	store := newMemStore(
		restaurant(1, "A", "1 A St", "NE", "1"),
		restaurant(2, "B", "2 B St", "IA", "2"),
		restaurant(3, "C", "3 C St", "IA", "3"),
	)

	p := NewPartitioner(NewRecordValidator(), testLogger())
	states, err := p.States(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, []string{"IA", "NE"}, states)
}

func TestBlock_Resolve(t *testing.T) {
	b := newBlock("IA", "50701")
	b.rows = scenarioRows()

	b.Resolve(1, 3)
	assert.Equal(t, []int64{2}, ids(b.Candidates()))
	assert.Equal(t, 3, b.Len())

	b.Resolve(2)
	assert.Empty(t, b.Candidates())
}

func ids(rows []models.Restaurant) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
