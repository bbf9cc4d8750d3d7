package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt(t *testing.T) {
	assert.Equal(t, 1000, ToInt("1,000", 0))
	assert.Equal(t, 45000, ToInt("  45,000 ", 0))
	assert.Equal(t, 65, ToInt(float64(65), 0))
	assert.Equal(t, 7, ToInt(7, 0))
	assert.Equal(t, -1, ToInt("abc", -1))
	assert.Equal(t, -1, ToInt(nil, -1))
	assert.Equal(t, -1, ToInt([]any{}, -1))
	assert.Equal(t, -1, ToInt("", -1))
}

func TestToFloat(t *testing.T) {
	f := ToFloat("29.75")
	require.NotNil(t, f)
	assert.InDelta(t, 29.75, *f, 0.001)

	f = ToFloat(84.89)
	require.NotNil(t, f)
	assert.InDelta(t, 84.89, *f, 0.001)

	assert.Nil(t, ToFloat(nil))
	assert.Nil(t, ToFloat("not a number"))
	assert.Nil(t, ToFloat(""))
}

func TestToIntPtr(t *testing.T) {
	n := ToIntPtr(float64(5))
	require.NotNil(t, n)
	assert.Equal(t, 5, *n)

	assert.Nil(t, ToIntPtr(nil))
	assert.Nil(t, ToIntPtr("고층"))
}

func TestFirstString(t *testing.T) {
	item := map[string]any{
		"articleNo": "123",
		"empty":     "",
		"numeric":   float64(77001),
		"spaces":    "  trimmed  ",
	}

	assert.Equal(t, "123", FirstString(item, "missing", "articleNo"))
	assert.Equal(t, "123", FirstString(item, "empty", "articleNo"))
	assert.Equal(t, "77001", FirstString(item, "numeric"))
	assert.Equal(t, "trimmed", FirstString(item, "spaces"))
	assert.Equal(t, "", FirstString(item, "missing"))
}

func TestFirstValue(t *testing.T) {
	item := map[string]any{"a": nil, "b": 2}
	assert.Equal(t, 2, FirstValue(item, "a", "b"))
	assert.Nil(t, FirstValue(item, "a", "missing"))
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]any{"b": 1, "a": 2, "c": 3})
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestNarrowing(t *testing.T) {
	assert.NotNil(t, AsObject(map[string]any{}))
	assert.Nil(t, AsObject("string"))
	assert.Nil(t, AsObject(nil))

	assert.NotNil(t, AsList([]any{}))
	assert.Nil(t, AsList("string"))
	assert.Nil(t, AsList(nil))
}
