package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"three fields", "120;450;10", []string{"120", "450", "10"}},
		{"crlf", "120;450;10\r\n", []string{"120", "450", "10"}},
		{"surrounding space", "  1;2;3 \n", []string{"1", "2", "3"}},
		{"two fields", "120;450", []string{"120", "450"}},
		{"trailing separator", "1;2;3;", []string{"1", "2", "3", ""}},
		{"empty", "", []string{""}},
		{"garbage kept verbatim", "a;b;c", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.line))
		})
	}
}

func TestComplete(t *testing.T) {
	assert.True(t, Complete(Split("120;450;10"), 3))
	assert.False(t, Complete(Split("120;450"), 3))
	assert.False(t, Complete(Split("1;2;3;4"), 3))
	assert.True(t, Complete(Split("1;2;3;4"), 4))
}

func TestValues(t *testing.T) {
	got, err := Values([]string{"120", "450", "10"})
	require.NoError(t, err)
	assert.Equal(t, []int{120, 450, 10}, got)

	got, err = Values([]string{" 0", "1023 "})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1023}, got)
}

func TestValues_FormatError(t *testing.T) {
	tests := []struct {
		name  string
		in    []string
		index int
	}{
		{"letters", []string{"1", "x", "3"}, 1},
		{"empty field", []string{"1", "2", ""}, 2},
		{"float", []string{"1.5", "2", "3"}, 0},
		{"negative", []string{"1", "2", "-3"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Values(tt.in)
			require.Error(t, err)
			assert.Nil(t, got)

			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.index, fe.Index)
			assert.Equal(t, tt.in[tt.index], fe.Field)
		})
	}

	_, err := Values([]string{"-1"})
	assert.True(t, errors.Is(err, ErrNegative))
}

func TestParse(t *testing.T) {
	fields, values, err := Parse("120;450;10", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"120", "450", "10"}, fields)
	assert.Equal(t, []int{120, 450, 10}, values)

	fields, values, err = Parse("120;450", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"120", "450"}, fields)
	assert.Nil(t, values, "incomplete frames are never converted")

	_, values, err = Parse("1;two;3", 3)
	assert.Error(t, err)
	assert.Nil(t, values)
}
