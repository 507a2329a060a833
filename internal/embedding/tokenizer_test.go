package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("Hello world", 10)
	assert.Len(t, ids, 10)
	assert.Len(t, types, 10)
	assert.Equal(t, int64(clsTokenID), ids[0])
	assert.Equal(t, int64(sepTokenID), ids[3])
	assert.Equal(t, []int64{1, 1, 1, 1, 0, 0, 0, 0, 0, 0}, attn)

	lower, _, _ := tok.Tokenize("hello WORLD", 10)
	assert.Equal(t, ids, lower, "tokenization is case-insensitive")
}

func TestSimpleTokenizer_TruncatesLongInput(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("a b c d e f g h i j k l", 5)
	assert.Len(t, ids, 5)
	assert.Equal(t, int64(sepTokenID), ids[4])
	for _, m := range attn {
		assert.Equal(t, int64(1), m)
	}
}

func TestSplitWords(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitWords("  a \t b\n c  "))
	assert.Nil(t, SplitWords(""))
	assert.Nil(t, SplitWords("   "))
}

func TestHashString(t *testing.T) {
	assert.NotZero(t, HashString("abc"))
	assert.Equal(t, HashString("abc"), HashString("abc"))
	assert.GreaterOrEqual(t, HashString("a very long string that overflows the accumulator many times over"), 0)
}
