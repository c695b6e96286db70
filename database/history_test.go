package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"multihorizon/models"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgproto3/v2"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saleRow struct {
	day time.Time
	qty int64
}

type fakeRows struct {
	rows   []saleRow
	pos    int
	err    error
	closed bool
}

func (r *fakeRows) Close()                                         { r.closed = true }
func (r *fakeRows) Err() error                                     { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                  { return pgconn.CommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgproto3.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                            { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...interface{}) error {
	row := r.rows[r.pos-1]
	*dest[0].(*time.Time) = row.day
	*dest[1].(*int64) = row.qty
	return nil
}

func (r *fakeRows) Values() ([]interface{}, error) {
	row := r.rows[r.pos-1]
	return []interface{}{row.day, row.qty}, nil
}

type fakeQuerier struct {
	rows *fakeRows
	err  error
	args []interface{}
}

func (q *fakeQuerier) Query(_ context.Context, _ string, args ...interface{}) (pgx.Rows, error) {
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSalesHistoryZeroFillsWindow(t *testing.T) {
	rows := &fakeRows{rows: []saleRow{
		{day("2024-03-06"), 4},
		{day("2024-03-08"), 9},
		{day("2024-03-10"), 2},
	}}
	q := &fakeQuerier{rows: rows}
	h := NewSalesHistory(q, 5)
	h.now = func() time.Time { return time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC) }

	series, err := h.History(context.Background(), models.Identity{StoreName: "Downtown", ItemName: "Milk"})
	require.NoError(t, err)

	assert.Equal(t, []float64{4, 0, 9, 0, 2}, series)
	assert.Equal(t, []interface{}{"Downtown", "Milk", day("2024-03-06")}, q.args)
	assert.True(t, rows.closed)
}

func TestSalesHistorySkipsRowsOutsideWindow(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{rows: []saleRow{
		{day("2024-02-01"), 100},
		{day("2024-03-10"), 3},
	}}}
	h := NewSalesHistory(q, 3)
	h.now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }

	series, err := h.History(context.Background(), models.Identity{StoreName: "Downtown", ItemName: "Milk"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 3}, series)
}

func TestSalesHistoryNoRows(t *testing.T) {
	h := NewSalesHistory(&fakeQuerier{rows: &fakeRows{}}, 30)

	_, err := h.History(context.Background(), models.Identity{StoreName: "Downtown", ItemName: "Milk"})
	assert.ErrorIs(t, err, models.ErrNoDataAvailable)
}

func TestSalesHistoryErrors(t *testing.T) {
	boom := errors.New("connection reset")

	_, err := NewSalesHistory(&fakeQuerier{err: boom}, 30).History(context.Background(), models.Identity{})
	assert.ErrorIs(t, err, boom)

	rows := &fakeRows{rows: []saleRow{{day("2024-03-10"), 1}}, err: boom}
	h := NewSalesHistory(&fakeQuerier{rows: rows}, 30)
	h.now = func() time.Time { return day("2024-03-10") }
	_, err = h.History(context.Background(), models.Identity{})
	assert.ErrorIs(t, err, boom)
}
