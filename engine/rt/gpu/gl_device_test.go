package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundProgram(t *testing.T) {
	var b boundProgram

	assert.True(t, b.bind(3))
	assert.False(t, b.bind(3), "same program is not rebound")
	assert.True(t, b.bind(4))

	b.forget(3)
	assert.False(t, b.bind(4), "deleting another program keeps the binding")

	b.forget(4)
	assert.True(t, b.bind(4), "a reused name is bound again after delete")
}

func TestNameBufferSize(t *testing.T) {
	long := "aVeryLongAttributeNameThatDoesNotFitInSixtyFourBytesOfNameBuffer"
	assert.Greater(t, len(long), 64)

	assert.Equal(t, len(long)+1, nameBufferSize(int32(len(long)+1)))
	assert.Equal(t, 1, nameBufferSize(0))
	assert.Equal(t, 1, nameBufferSize(-1))
}
