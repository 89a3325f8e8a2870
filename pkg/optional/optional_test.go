package optional

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOption(t *testing.T) {
	v, ok := Some(3).Get()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	assert.True(t, None[int]().IsNone())
	assert.Equal(t, 7, None[int]().OrElse(7))

	s := "tok"
	assert.Equal(t, "tok", FromPtr(&s).OrElse(""))
	assert.True(t, FromPtr[string](nil).IsNone())

	assert.True(t, NonEmpty("").IsNone())
	assert.True(t, NonEmpty("x").IsSome())
}
