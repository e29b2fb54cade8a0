package addr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func mustAddr(t *testing.T, s string) HWAddr {
	t.Helper()
	a, err := ParseHWAddr(s)
	assert.NoError(t, err)
	return a
}

func TestTableBijection(t *testing.T) {
	a0 := mustAddr(t, "AA:AA:AA:AA:AA:00")
	a1 := mustAddr(t, "AA:AA:AA:AA:AA:01")
	tbl, err := NewTable([]HWAddr{a0, a1}, 4)
	assert.NoError(t, err)
	assert.Equal(t, 2, tbl.N())

	id, ok := tbl.IDOf(a1)
	assert.True(t, ok)
	assert.Equal(t, NodeID(1), id)

	got, ok := tbl.HWAddrOf(id)
	assert.True(t, ok)
	assert.Equal(t, a1, got)
}

func TestTableRejectsDuplicateAddress(t *testing.T) {
	a0 := mustAddr(t, "AA:AA:AA:AA:AA:00")
	_, err := NewTable([]HWAddr{a0, a0}, 4)
	assert.Error(t, err)
}

func TestSelfIDConfigError(t *testing.T) {
	a0 := mustAddr(t, "AA:AA:AA:AA:AA:00")
	tbl, _ := NewTable([]HWAddr{a0}, 4)
	_, err := tbl.SelfID(mustAddr(t, "FF:FF:FF:FF:FF:01"))
	assert.True(t, errors.Is(err, ErrConfigError))
}

func TestHWAddrOfUnknownID(t *testing.T) {
	a0 := mustAddr(t, "AA:AA:AA:AA:AA:00")
	tbl, _ := NewTable([]HWAddr{a0}, 4)
	_, ok := tbl.HWAddrOf(7)
	assert.False(t, ok)
}
