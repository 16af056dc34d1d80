package metricsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRowPutter struct {
	puts int
	err  error
}

func (f *fakeRowPutter) Put(_ context.Context, _ interface{}) error {
	f.puts++
	return f.err
}

func TestBigQueryInserter_InsertBatch(t *testing.T) {
	putter := &fakeRowPutter{}
	inserter := &BigQueryInserter[MetricRow]{inserter: putter, logger: zerolog.Nop()}

	require.NoError(t, inserter.InsertBatch(context.Background(), nil))
	assert.Equal(t, 0, putter.puts, "an empty batch is not sent")

	require.NoError(t, inserter.InsertBatch(context.Background(), []*MetricRow{{MetricName: "Clicked"}}))
	assert.Equal(t, 1, putter.puts)
	require.NoError(t, inserter.Close())
}

func TestBigQueryInserter_LogsEachFailedRow(t *testing.T) {
	var buf bytes.Buffer
	putter := &fakeRowPutter{err: bigquery.PutMultiError{
		{RowIndex: 0, Errors: bigquery.MultiError{errors.New("no such field: extra")}},
		{RowIndex: 2, Errors: bigquery.MultiError{errors.New("invalid timestamp")}},
	}}
	inserter := &BigQueryInserter[MetricRow]{inserter: putter, logger: zerolog.New(&buf)}

	err := inserter.InsertBatch(context.Background(), []*MetricRow{{}, {}, {}})
	require.Error(t, err)
	var multiErr bigquery.PutMultiError
	assert.True(t, errors.As(err, &multiErr))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var rowIndexes []int
	for _, line := range lines {
		var entry struct {
			Level    string `json:"level"`
			RowIndex int    `json:"row_index"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		assert.Equal(t, "error", entry.Level)
		rowIndexes = append(rowIndexes, entry.RowIndex)
	}
	assert.Equal(t, []int{0, 2}, rowIndexes)
}
