package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringIntern(t *testing.T) {
	si := NewStringIntern()

	s1 := si.Intern("north")
	s2 := si.Intern("north")
	assert.Equal(t, s1, s2)

	si.Intern("south")
	assert.Equal(t, 2, si.Len())
}

func BenchmarkStringIntern(b *testing.B) {
	si := NewStringIntern()
	values := []string{"north", "south", "east", "west", "unknown"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		si.Intern(values[i%len(values)])
	}
}
