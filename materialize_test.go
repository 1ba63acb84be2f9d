package pgexec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"null", nil, Text("")},
		{"int16", int16(3), Int(3)},
		{"int32", int32(-1), Int(-1)},
		{"int64", int64(1 << 40), Int(1 << 40)},
		{"uint32", uint32(7), Int(7)},
		{"float32", float32(0.5), Float(0.5)},
		{"float64", 2.5, Float(2.5)},
		{"text", "Ensimmäinen", Text("Ensimmäinen")},
		{"bool", true, Bool(true)},
		{"bytes", []byte{1, 2}, Bytes([]byte{1, 2})},
		{"time", ts, Time(ts)},
		{"stringer", id, Text("6ba7b810-9dad-11d1-80b4-00c04fd430c8")},
		{"json object", map[string]any{"a": 1.0}, Text(`{"a":1}`)},
		{"json array", []any{"x", 2.0}, Text(`["x",2]`)},
		{"fallback", struct{ A int }{1}, Text("{1}")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cellValue(tt.in)
			assert.True(t, tt.want.Equal(got), "got %s (%s)", got, got.Kind())
		})
	}
}

func TestReadRows(t *testing.T) {
	rows := listaRows()

	set, err := readRows(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, set, 4)

	for i, row := range set {
		assert.Equal(t, []string{"id", "selite"}, row.Names())
		id, _ := row.Get("id")
		assert.True(t, id.Equal(Int(int64(i+1))))
	}
}

func TestReadRows_ShortRow(t *testing.T) {
	rows := newRows([]string{"a", "b"}, []any{int64(1)})

	set, err := readRows(context.Background(), rows)
	require.NoError(t, err)

	b, ok := set[0].Get("b")
	require.True(t, ok)
	assert.True(t, b.Equal(Text("")))
}

func TestReadRows_Empty(t *testing.T) {
	set, err := readRows(context.Background(), newRows([]string{"id"}))
	require.NoError(t, err)
	assert.NotNil(t, set)
	assert.Empty(t, set)
}

func TestReadRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rows := listaRows()
	_, err := readRows(ctx, rows)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, rows.pos)
}

func TestReadScalar(t *testing.T) {
	v, err := readScalar(context.Background(), listaRows())
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, v.Equal(Int(1)))

	v, err = readScalar(context.Background(), newRows([]string{"id"}))
	require.NoError(t, err)
	assert.Nil(t, v)

	rows := newRows([]string{"id"})
	rows.iterErr = errors.New("broken pipe")
	_, err = readScalar(context.Background(), rows)
	assert.ErrorContains(t, err, "broken pipe")
}
