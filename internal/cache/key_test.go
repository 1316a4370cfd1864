package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyDeterministic(t *testing.T) {
	a := Key("extract_keywords", "resume content", nil)
	b := Key("extract_keywords", "resume content", nil)
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestKeyWhitespaceInsensitive(t *testing.T) {
	base := Key("op", "some resume content", nil)
	assert.Equal(t, base, Key("op", "  some \t resume\n\ncontent  ", nil))
	assert.NotEqual(t, base, Key("op", "some resumecontent", nil))
}

func TestKeyParamOrderInsensitive(t *testing.T) {
	a := Key("op", "content", map[string]string{"location": "Austin", "position": "SRE"})
	b := Key("op", "content", map[string]string{"position": "SRE", "location": "Austin"})
	assert.Equal(t, a, b)
}

func TestKeyDiscriminates(t *testing.T) {
	base := Key("op", "content", map[string]string{"k": "v"})

	assert.NotEqual(t, base, Key("other_op", "content", map[string]string{"k": "v"}))
	assert.NotEqual(t, base, Key("op", "different content", map[string]string{"k": "v"}))
	assert.NotEqual(t, base, Key("op", "content", map[string]string{"k": "w"}))
	assert.NotEqual(t, base, Key("op", "content", nil))
}
