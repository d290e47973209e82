package abtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftloop/mailcore/internal/domain"
)

func subs(n int) []*domain.Subscriber {
	out := make([]*domain.Subscriber, n)
	for i := range out {
		out[i] = &domain.Subscriber{ID: string(rune('a' + i))}
	}
	return out
}

func TestTestRatioLadder(t *testing.T) {
	assert.Equal(t, 0.5, testRatio(10))
	assert.Equal(t, 0.5, testRatio(20))
	assert.Equal(t, 0.3, testRatio(21))
	assert.Equal(t, 0.3, testRatio(200))
	assert.Equal(t, 0.2, testRatio(201))
	assert.Equal(t, 0.2, testRatio(2000))
	assert.Equal(t, 0.1, testRatio(2001))
}

func TestPartitionNeverEmptiesRemainder(t *testing.T) {
	population := subs(10)
	groupA, groupB, remainder := partition(population, testRatio(len(population)))
	assert.NotEmpty(t, remainder)
	assert.Equal(t, len(population), len(groupA)+len(groupB)+len(remainder))
}

func TestPartitionClampsTestSizeToAtLeastTwo(t *testing.T) {
	population := subs(5)
	groupA, groupB, remainder := partition(population, 0.1)
	assert.Equal(t, 2, len(groupA)+len(groupB))
	assert.Equal(t, 3, len(remainder))
}

func TestPartitionSinglePopulationHasNoTestGroup(t *testing.T) {
	population := subs(1)
	groupA, groupB, remainder := partition(population, 0.5)
	assert.Empty(t, groupA)
	assert.Empty(t, groupB)
	assert.Len(t, remainder, 1)
}

func TestPickWinnerPrefersHigherScore(t *testing.T) {
	a := &domain.CampaignStats{Sent: 100, Opened: 10, Clicked: 1}
	b := &domain.CampaignStats{Sent: 100, Opened: 30, Clicked: 5}
	assert.Equal(t, domain.ABVariantB, pickWinner(a, b))
}

func TestPickWinnerTiesFavorA(t *testing.T) {
	a := &domain.CampaignStats{Sent: 100, Opened: 10}
	b := &domain.CampaignStats{Sent: 100, Opened: 10}
	assert.Equal(t, domain.ABVariantA, pickWinner(a, b))
}
