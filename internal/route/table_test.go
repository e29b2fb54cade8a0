package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateAcceptsFirstInstall(t *testing.T) {
	tbl := New(0, nil, 0)
	ok := tbl.Update(2, 1, 3, 5, 1000)
	assert.True(t, ok)
	assert.True(t, tbl.Has(2, 1000))
}

func TestReplacementRuleNewerSeqWins(t *testing.T) {
	tbl := New(0, nil, 0)
	tbl.Update(2, 1, 3, 5, 1000)
	ok := tbl.Update(2, 1, 5, 6, 1001) // newer seq, even with worse hop count
	assert.True(t, ok)
	e, _ := tbl.Lookup(2)
	assert.Equal(t, uint32(6), e.Seq)
	assert.Equal(t, uint8(5), e.HopCount)
}

func TestReplacementRuleEqualSeqShorterHopWins(t *testing.T) {
	tbl := New(0, nil, 0)
	tbl.Update(2, 1, 3, 5, 1000)
	ok := tbl.Update(2, 9, 2, 5, 1001)
	assert.True(t, ok)
	e, _ := tbl.Lookup(2)
	assert.Equal(t, uint8(2), e.HopCount)
}

func TestReplacementRuleStaleSeqLoses(t *testing.T) {
	tbl := New(0, nil, 0)
	tbl.Update(2, 1, 3, 5, 1000)
	ok := tbl.Update(2, 9, 1, 4, 1001) // older seq
	assert.False(t, ok)
	e, _ := tbl.Lookup(2)
	assert.Equal(t, uint32(5), e.Seq)
}

func TestReplacementRuleEqualSeqEqualOrLongerHopLoses(t *testing.T) {
	tbl := New(0, nil, 0)
	tbl.Update(2, 1, 3, 5, 1000)
	ok := tbl.Update(2, 9, 4, 5, 1001)
	assert.False(t, ok)
}

func TestCleanupInvalidatesAfterTimeout(t *testing.T) {
	tbl := New(0, nil, 0)
	tbl.Update(2, 1, 1, 5, 0)
	assert.True(t, tbl.Has(2, 0))
	tbl.Cleanup(DefaultRouteTimeoutMS + 1)
	assert.False(t, tbl.Has(2, DefaultRouteTimeoutMS+1))
}

func TestInvalidateOnRERR(t *testing.T) {
	tbl := New(0, nil, 0)
	tbl.Update(3, 2, 1, 5, 0)
	tbl.Invalidate(3, 10)
	assert.False(t, tbl.Has(3, 10))
}

func TestCleanupIdempotent(t *testing.T) {
	tbl := New(0, nil, 0)
	tbl.Update(2, 1, 1, 5, 0)
	tbl.Cleanup(DefaultRouteTimeoutMS + 1)
	tbl.Cleanup(DefaultRouteTimeoutMS + 2)
	assert.False(t, tbl.Has(2, DefaultRouteTimeoutMS+2))
}

func TestCustomTimeoutOverridesDefault(t *testing.T) {
	tbl := New(0, nil, 500)
	tbl.Update(2, 1, 1, 5, 0)
	assert.True(t, tbl.Has(2, 500))
	assert.False(t, tbl.Has(2, 501))
}
