package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedQuota(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		want int
	}{
		{"free tier cannot book", TierFree, 0},
		{"premium tier", TierPremium, 10},
		{"vip tier", TierVIP, 10},
		{"unknown tier is most restrictive", Tier("platinum"), 0},
		{"empty tier is most restrictive", Tier(""), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AllowedQuota(tt.tier))
		})
	}
}

func TestHasCapacity(t *testing.T) {
	assert.False(t, HasCapacity(0, TierFree))
	assert.True(t, HasCapacity(0, TierPremium))
	assert.True(t, HasCapacity(9, TierPremium))
	assert.False(t, HasCapacity(10, TierPremium))
	assert.False(t, HasCapacity(11, TierVIP))
	assert.False(t, HasCapacity(0, Tier("unknown")))
}
