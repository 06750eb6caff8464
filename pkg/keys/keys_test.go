package keys

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		symbol string
		want   Code
		ok     bool
	}{
		{"A", KeyA, true},
		{"a", KeyA, true},
		{"D", KeyD, true},
		{"D1", Key1, true},
		{"NumPad6", Numpad6, true},
		{"numpad6", Numpad6, true},
		{"F12", F12, true},
		{" Enter ", Enter, true},
		{"Space", Space, true},
		{"", None, false},
		{"Hyper", None, false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, ok := Lookup(tt.symbol)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsAllowed(t *testing.T) {
	assert.True(t, IsAllowed("A"))
	assert.True(t, IsAllowed("NumPad6"))
	assert.True(t, IsAllowed("D1"))

	for _, sym := range []string{"Space", "Shift", "LeftShift", "RightCtrl", "LeftAlt", "LeftWin", "CapsLock"} {
		assert.False(t, IsAllowed(sym), sym)
	}
	assert.False(t, IsAllowed("NotAKey"))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "A", KeyA.String())
	assert.Equal(t, "NumPad6", Numpad6.String())
	assert.Equal(t, "D1", Key1.String())
	assert.Equal(t, "0xFF", Code(0xFF).String())
}

func TestWindowsVirtualKeyValues(t *testing.T) {
	assert.Equal(t, Code(0x41), KeyA)
	assert.Equal(t, Code(0x44), KeyD)
	assert.Equal(t, Code(0x31), Key1)
	assert.Equal(t, Code(0x66), Numpad6)
	assert.Equal(t, Code(0x70), F1)
	assert.Equal(t, Code(0x7B), F12)
}

func TestEmitter(t *testing.T) {
	rec := NewRecorder()
	em := NewEmitter(rec)

	require.NoError(t, em.Press(KeyD))
	require.NoError(t, em.Release(KeyD))
	require.NoError(t, em.Release(KeyD))

	assert.Equal(t, []Event{
		{Down: true, Code: KeyD},
		{Down: false, Code: KeyD},
		{Down: false, Code: KeyD},
	}, rec.Events())
}

func TestEmitter_InjectionFailure(t *testing.T) {
	rec := NewRecorder()
	em := NewEmitter(rec)
	boom := errors.New("boom")
	rec.Fail(boom)

	err := em.Press(KeyA)
	require.Error(t, err)

	var injErr *InjectionError
	require.True(t, errors.As(err, &injErr))
	assert.Equal(t, "down", injErr.Op)
	assert.Equal(t, KeyA, injErr.Code)
	assert.True(t, errors.Is(err, boom))

	rec.Fail(nil)
	assert.NoError(t, em.Release(KeyA))
	assert.Equal(t, []Event{{Down: false, Code: KeyA}}, rec.Events())
}

func TestKeysym(t *testing.T) {
	sym, ok := keysym(KeyA)
	assert.True(t, ok)
	assert.Equal(t, "a", sym)

	sym, ok = keysym(Numpad6)
	assert.True(t, ok)
	assert.Equal(t, "KP_6", sym)

	_, ok = keysym(Code(0xFF))
	assert.False(t, ok)
}
