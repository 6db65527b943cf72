package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var longNeutralText = strings.Repeat("the weather was lovely today and nothing else happened at all ", 3)

func TestRoute_ShortTextStaysLocal(t *testing.T) {
	assert.Equal(t, TierLocal, Route("too short to matter", 0, 10))
	assert.Equal(t, TierLocal, Route("the battery is bad", 1, 10))
}

func TestRoute_SamplingSendsEveryThirdRemote(t *testing.T) {
	assert.Equal(t, TierRemote, Route(longNeutralText, 0, 9))
	assert.Equal(t, TierLocal, Route(longNeutralText, 1, 9))
	assert.Equal(t, TierLocal, Route(longNeutralText, 2, 9))
	assert.Equal(t, TierRemote, Route(longNeutralText, 3, 9))
	assert.Equal(t, TierRemote, Route(longNeutralText, 6, 9))
}

func TestRoute_LengthCountsCharactersNotBytes(t *testing.T) {
	// 60 characters but 120 bytes; stays under the length threshold.
	short := strings.Repeat("é", 60)
	assert.Equal(t, TierLocal, Route(short, 0, 9))

	long := strings.Repeat("é", 100)
	assert.Equal(t, TierRemote, Route(long, 0, 9))
}

func TestRoute_AspectKeywordGoesRemote(t *testing.T) {
	text := longNeutralText + " but the Battery drains overnight"
	assert.Equal(t, TierRemote, Route(text, 1, 9))
}

func TestRoute_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		assert.Equal(t, Route(longNeutralText, 4, 9), Route(longNeutralText, 4, 9))
	}
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "local", TierLocal.String())
	assert.Equal(t, "remote", TierRemote.String())
}
