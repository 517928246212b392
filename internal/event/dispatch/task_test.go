package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunTask(t *testing.T) {
	ran := false
	r := runTask(func() {
		ran = true
		time.Sleep(time.Millisecond)
	}, nil)

	assert.True(t, ran)
	assert.False(t, r.Panicked)
	assert.GreaterOrEqual(t, r.Duration, time.Millisecond)
}

func TestRunTask_Panic(t *testing.T) {
	var got any
	r := runTask(func() { panic("boom") }, func(v any, stack []byte) {
		got = v
	})

	assert.True(t, r.Panicked)
	assert.Equal(t, "boom", r.PanicValue)
	assert.NotEmpty(t, r.PanicStack)
	assert.Equal(t, "boom", got)
}

func TestRunTask_HandlerPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		r := runTask(func() { panic("boom") }, func(any, []byte) { panic("handler") })
		assert.True(t, r.Panicked)
	})
}
