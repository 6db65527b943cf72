package analysis

import (
	"strings"
	"unicode/utf8"
)

type Tier int

const (
	TierLocal Tier = iota
	TierRemote
)

func (t Tier) String() string {
	if t == TierRemote {
		return "remote"
	}
	return "local"
}

const (
	// Texts below this length rarely carry extractable aspects and are
	// never worth a remote call.
	minRemoteTextLength = 100

	// Every Nth eligible item goes remote to keep a representative
	// sample regardless of keyword content.
	remoteSamplingInterval = 3
)

var aspectKeywords = []string{
	"battery", "screen", "performance", "design", "price", "quality",
	"durability", "camera", "software", "features", "support",
}

// Route decides which analysis tier an item gets. Pure and
// deterministic: same inputs, same tier. Rules apply in order - short
// texts stay local, every Nth long item is sampled remotely, keyword
// hits go remote, everything else stays local.
func Route(text string, index, total int) Tier {
	// Character count, not bytes; multibyte text must not cross the
	// threshold early.
	if utf8.RuneCountInString(text) < minRemoteTextLength {
		return TierLocal
	}

	if index%remoteSamplingInterval == 0 {
		return TierRemote
	}

	lower := strings.ToLower(text)
	for _, keyword := range aspectKeywords {
		if strings.Contains(lower, keyword) {
			return TierRemote
		}
	}

	return TierLocal
}
