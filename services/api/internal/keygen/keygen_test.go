package keygen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPattern_GenerateMatchesFormat(t *testing.T) {
	p := NewPattern("")

	for i := 0; i < 50; i++ {
		key, err := p.Generate()
		require.NoError(t, err)
		assert.Len(t, key, len(DefaultPattern))
		assert.True(t, p.Validate(key), "generated key %q should validate", key)
		assert.Equal(t, "-", key[4:5])
	}
}

func TestPattern_Validate(t *testing.T) {
	p := NewPattern(DefaultPattern)

	assert.True(t, p.Validate("AAAA-BBBB-CCCC-DDDD"))
	assert.True(t, p.Validate("A1B2-C3D4-E5F6-G7H8"))
	assert.False(t, p.Validate("AAAA-BBBB-CCCC"), "too short")
	assert.False(t, p.Validate("aaaa-bbbb-cccc-dddd"), "lower case")
	assert.False(t, p.Validate("AAAA_BBBB_CCCC_DDDD"), "wrong separator")
}

func TestReadable_Generate(t *testing.T) {
	r := NewReadable()

	key, err := r.Generate()
	require.NoError(t, err)

	groups := strings.Split(key, "-")
	require.Len(t, groups, 4)
	for _, g := range groups {
		assert.Len(t, g, 4)
		for _, c := range g {
			assert.Contains(t, ReadableCharset, string(c))
		}
	}
}

func TestUUID_Generate(t *testing.T) {
	long, err := UUID{}.Generate()
	require.NoError(t, err)
	assert.Len(t, long, 36)
	assert.Equal(t, strings.ToUpper(long), long)

	short, err := UUID{Short: true}.Generate()
	require.NoError(t, err)
	assert.Len(t, short, 16)
	assert.NotContains(t, short, "-")
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"", "pattern", "readable", "uuid", "uuid-short", "UUID"} {
		g, err := Lookup(name)
		require.NoError(t, err, name)
		assert.NotNil(t, g)
	}

	_, err := Lookup("base64")
	assert.Error(t, err)
}

type repeatingGenerator struct{}

func (repeatingGenerator) Generate() (string, error) { return "SAME", nil }

func TestBatch(t *testing.T) {
	keys, err := Batch(NewPattern(DefaultPattern), 25)
	require.NoError(t, err)
	assert.Len(t, keys, 25)

	seen := make(map[string]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %q", k)
		seen[k] = true
	}

	_, err = Batch(repeatingGenerator{}, 2)
	assert.ErrorIs(t, err, ErrBatchExhausted)
}
