package chart

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	store := NewStore()
	require.Empty(t, store.List())

	trend := TrendLine{StartX: 1, StartY: 2, EndX: 3, EndY: 4}
	hline := HorizontalLine{Y: 50, Price: 101.5}
	flag := Flag{X: 10, Y: 20, Price: 99, Text: "entry"}

	id1 := store.Append(trend)
	id2 := store.Append(hline)
	id3 := store.Append(flag)
	store.Append(hline)

	require.Equal(t, 4, store.Len())
	assert.Equal(t, []Annotation{trend, hline, flag, hline}, store.List())
	assert.NotEqual(t, id1, id2)

	got, ok := store.Get(id3)
	require.True(t, ok)
	assert.Equal(t, flag, got)

	t.Run("remove", func(t *testing.T) {
		require.True(t, store.Remove(id2))
		require.False(t, store.Remove(id2))

		entries := store.Entries()
		require.Len(t, entries, 3)
		assert.Equal(t, id1, entries[0].ID)
		assert.Equal(t, id3, entries[1].ID)
	})

	t.Run("recreate appends on top", func(t *testing.T) {
		require.True(t, store.Remove(id1))
		id := store.Append(TrendLine{StartX: 5, StartY: 5, EndX: 6, EndY: 6})

		entries := store.Entries()
		assert.Equal(t, id, entries[len(entries)-1].ID)
	})

	t.Run("clear", func(t *testing.T) {
		store.Clear()
		assert.Zero(t, store.Len())
		assert.Empty(t, store.List())

		id := store.Append(flag)
		assert.Greater(t, id, id3)
	})
}

func TestEntryJSON(t *testing.T) {
	entry := Entry{ID: 7, Annotation: HorizontalLine{Y: 120, Price: 101.25}}

	body, err := json.Marshal(entry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"type":"horizontal","y":120,"price":101.25}`, string(body))
}

func TestParseTool(t *testing.T) {
	cases := map[string]Tool{
		"trend":      ToolTrendLine,
		"TrendLine":  ToolTrendLine,
		"hline":      ToolHorizontalLine,
		"horizontal": ToolHorizontalLine,
		"flag":       ToolFlag,
		"none":       ToolNone,
		"":           ToolNone,
	}
	for in, want := range cases {
		got, err := ParseTool(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTool("fib")
	require.ErrorIs(t, err, ErrUnknownTool)

	var tool Tool
	require.NoError(t, json.Unmarshal([]byte(`"flag"`), &tool))
	assert.Equal(t, ToolFlag, tool)
}
