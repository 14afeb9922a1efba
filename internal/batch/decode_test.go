package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePlainJSON(t *testing.T) {
	t.Parallel()

	res := Decode(`{"summary_fulltext": "four sentences"}`)
	require.True(t, res.Decoded)
	require.Equal(t, "four sentences", res.Object["summary_fulltext"])
}

func TestDecodeStripsFences(t *testing.T) {
	t.Parallel()

	res := Decode("```json\n{\"relevant\": true}\n```")
	require.True(t, res.Decoded)
	require.Equal(t, true, res.Object["relevant"])
	require.Equal(t, `{"relevant": true}`, res.Cleaned)
}

func TestDecodeFallback(t *testing.T) {
	t.Parallel()

	res := Decode("the model ignored the format instruction")
	require.False(t, res.Decoded)
	require.Equal(t, "the model ignored the format instruction", res.Cleaned)
	require.Nil(t, res.Object)
}

func TestDecodeFencedNonJSON(t *testing.T) {
	t.Parallel()

	res := Decode("```\nnot json\n```")
	require.False(t, res.Decoded)
	require.Equal(t, "not json", res.Cleaned)
}
