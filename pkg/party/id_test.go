package party

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLessIsByteLexicographic(t *testing.T) {
	assert.True(t, ID("alice").Less("bob"))
	assert.False(t, ID("bob").Less("alice"))
	assert.False(t, ID("alice").Less("alice"))
}

func TestSortIsStableAndCopies(t *testing.T) {
	s := IDSlice{"charlie", "alice", "bob"}
	sorted := s.Sort()

	assert.Equal(t, IDSlice{"alice", "bob", "charlie"}, sorted)
	assert.Equal(t, IDSlice{"charlie", "alice", "bob"}, s, "Sort must not mutate its receiver")
}

func TestContains(t *testing.T) {
	s := IDSlice{"alice", "bob"}
	assert.True(t, s.Contains("alice"))
	assert.False(t, s.Contains("carol"))
}

func TestNewIDSliceSortsASet(t *testing.T) {
	set := map[ID]struct{}{"bob": {}, "alice": {}, "carol": {}}
	got := NewIDSlice(set)
	assert.Equal(t, IDSlice{"alice", "bob", "carol"}, got)
}
