package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/nativekit/pkg/errors"
)

// base and sub stand in for two wrapper classes, sub embedding base.
type base struct {
	setups []string
	hooks  int
}

type sub struct {
	*base
	setups []string
}

func newBase(opts ...Option) (*base, *Object) {
	b := &base{}
	obj := Compose(Bind(b, Layer[*base]{
		Class: "Base",
		Table: Table[*base]{
			"X": func(b *base) error { b.setups = append(b.setups, "X"); return nil },
			"Z": func(b *base) error { b.setups = append(b.setups, "Z"); return nil },
		},
		OnRegister: func(b *base) error { b.hooks++; return nil },
	}), opts...)
	return b, obj
}

func newSub(opts ...Option) (*sub, *Object) {
	b, parent := newBase(opts...)
	s := &sub{base: b}
	obj := Extend(parent, Bind(s, Layer[*sub]{
		Class: "Sub",
		Table: Table[*sub]{
			"Y": func(s *sub) error { s.setups = append(s.setups, "Y"); return nil },
			"Z": func(s *sub) error { s.setups = append(s.setups, "Z"); return nil },
		},
	}))
	return s, obj
}

func TestObject_SetupRunsOncePerEvent(t *testing.T) {
	b, obj := newBase()
	count := 0

	for i := 0; i < 3; i++ {
		_, err := obj.On("X", func(...any) { count++ })
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"X"}, b.setups)
	assert.Equal(t, 3, b.hooks, "register hook runs on every registration")

	obj.Emit("X")
	assert.Equal(t, 3, count)
}

func TestObject_SetupRunsBeforeListenerIsAdded(t *testing.T) {
	var countAtSetup int
	var obj *Object
	target := &struct{}{}
	obj = Compose(Bind(target, Layer[*struct{}]{
		Class: "Probe",
		Table: Table[*struct{}]{
			"ready": func(*struct{}) error {
				countAtSetup = obj.Emitter().ListenerCount("ready")
				return nil
			},
		},
	}))

	_, err := obj.On("ready", func(...any) {})
	require.NoError(t, err)
	assert.Zero(t, countAtSetup)
	assert.Equal(t, 1, obj.Emitter().ListenerCount("ready"))
}

func TestObject_UnrecognizedEventIsSilentNoop(t *testing.T) {
	_, obj := newBase()
	fired := false

	unsub, err := obj.On("nope", func(...any) { fired = true })
	require.NoError(t, err)
	require.NotNil(t, unsub)
	assert.NotPanics(t, func() { unsub(); unsub() })

	obj.Emit("nope")
	assert.False(t, fired)
}

func TestObject_StrictModeRejectsUnrecognizedEvent(t *testing.T) {
	_, obj := newSub(WithStrictEvents())

	unsub, err := obj.On("nope", func(...any) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedEvent))
	assert.NotPanics(t, func() { unsub() })

	_, err = obj.On("X", func(...any) {})
	assert.NoError(t, err, "parent events still resolve in strict mode")
}

func TestObject_NilListenerRejected(t *testing.T) {
	b, obj := newBase()

	_, err := obj.On("X", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	assert.Empty(t, b.setups, "setup must not run for a rejected listener")
}

func TestObject_SubclassTableWinsOnSharedName(t *testing.T) {
	s, obj := newSub()

	_, err := obj.On("Z", func(...any) {})
	require.NoError(t, err)

	assert.Equal(t, []string{"Z"}, s.setups)
	assert.Empty(t, s.base.setups)
}

func TestObject_ParentSetupRunsWhenParentUsedDirectly(t *testing.T) {
	b, parent := newBase()
	s := &sub{base: b}
	child := Extend(parent, Bind(s, Layer[*sub]{
		Class: "Sub",
		Table: Table[*sub]{
			"Z": func(s *sub) error { s.setups = append(s.setups, "Z"); return nil },
		},
	}))

	_, err := child.On("Z", func(...any) {})
	require.NoError(t, err)
	_, err = parent.On("Z", func(...any) {})
	require.NoError(t, err)
	_, err = child.On("Z", func(...any) {})
	require.NoError(t, err)

	assert.Equal(t, []string{"Z"}, s.setups)
	assert.Equal(t, []string{"Z"}, b.setups)
	assert.Equal(t, 3, parent.Emitter().ListenerCount("Z"))
}

func TestObject_ParentEventDelegatesToParentSetup(t *testing.T) {
	// Base recognizes X, Sub recognizes Y only: Sub.On("X") must run Base's
	// setup and fire when X is emitted.
	s, obj := newSub()
	var got []any

	_, err := obj.On("X", func(args ...any) { got = args })
	require.NoError(t, err)

	assert.Equal(t, []string{"X"}, s.base.setups)
	assert.Empty(t, s.setups)
	assert.Equal(t, 1, s.base.hooks, "parent layer's register hook runs")

	obj.Emit("X", "payload")
	assert.Equal(t, []any{"payload"}, got)
}

func TestObject_SubclassSharesParentEmitter(t *testing.T) {
	b, parent := newBase()
	s := &sub{base: b}
	child := Extend(parent, Bind(s, Layer[*sub]{Class: "Sub", Table: Table[*sub]{"Y": nil}}))

	fired := 0
	_, err := child.On("X", func(...any) { fired++ })
	require.NoError(t, err)

	// The parent's own emit reaches listeners registered through the child.
	parent.Emit("X")
	assert.Equal(t, 1, fired)

	// Setup state is per instance: the parent does not set X up again.
	_, err = parent.On("X", func(...any) {})
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, b.setups)

	// The parent does not see the child's events.
	assert.False(t, parent.Recognizes("Y"))
	assert.True(t, child.Recognizes("Y"))
}

func TestObject_UnknownOnBothLayers(t *testing.T) {
	s, obj := newSub()

	unsub, err := obj.On("W", func(...any) {})
	require.NoError(t, err)
	assert.NotPanics(t, func() { unsub() })
	assert.Empty(t, s.setups)
	assert.Empty(t, s.base.setups)
}

func TestObject_SetupErrorAbortsAndRetries(t *testing.T) {
	attempts := 0
	native := fmt.Errorf("delegate unavailable")
	target := &struct{}{}
	obj := Compose(Bind(target, Layer[*struct{}]{
		Class: "Sound",
		Table: Table[*struct{}]{
			"ready": func(*struct{}) error {
				attempts++
				if attempts == 1 {
					return native
				}
				return nil
			},
		},
	}))

	_, err := obj.On("ready", func(...any) {})
	require.Error(t, err)
	assert.True(t, errors.Is(err, native), "native error must not be masked")
	var kitErr *errors.KitError
	require.True(t, errors.As(err, &kitErr))
	assert.Equal(t, errors.KindNative, kitErr.Kind)
	assert.Zero(t, obj.Emitter().ListenerCount("ready"))

	_, err = obj.On("ready", func(...any) {})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, obj.Emitter().ListenerCount("ready"))
}

func TestObject_RegisterHookError(t *testing.T) {
	target := &struct{}{}
	hookErr := fmt.Errorf("hook failed")
	obj := Compose(Bind(target, Layer[*struct{}]{
		Class:      "View",
		Table:      Table[*struct{}]{"tap": nil},
		OnRegister: func(*struct{}) error { return hookErr },
	}))

	_, err := obj.On("tap", func(...any) {})
	assert.True(t, errors.Is(err, hookErr))
	assert.Zero(t, obj.Emitter().ListenerCount("tap"))
}

func TestObject_OffAndUnsubscribePassThrough(t *testing.T) {
	_, obj := newSub()
	rec := &recorder{}
	a := rec.listener("a")

	unsub, err := obj.On("X", a)
	require.NoError(t, err)
	_, err = obj.On("X", a)
	require.NoError(t, err)

	unsub()
	obj.Emit("X")
	assert.Equal(t, []string{"a"}, rec.calls)

	obj.Off("X", a)
	obj.Emit("X")
	assert.Equal(t, []string{"a"}, rec.calls)
}

func TestObject_Once(t *testing.T) {
	b, obj := newBase()
	count := 0
	_, err := obj.Once("X", func(...any) { count++ })
	require.NoError(t, err)

	obj.Emit("X")
	obj.Emit("X")
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"X"}, b.setups)
}

func TestObject_EventsAndClass(t *testing.T) {
	_, obj := newSub()

	assert.Equal(t, "Sub", obj.Class())
	assert.Equal(t, []string{"Y", "Z", "X"}, obj.Events())
}

func TestObject_ExplicitEventNames(t *testing.T) {
	target := &struct{}{}
	obj := Compose(Bind(target, Layer[*struct{}]{
		Class:  "Sound",
		Table:  Table[*struct{}]{"ready": nil, "finish": nil},
		Events: []string{"ready", "finish", "onReady", "onFinish"},
	}))
	assert.Equal(t, []string{"ready", "finish", "onReady", "onFinish"}, obj.Events())
}

func TestObject_ObserverSeesUnsupported(t *testing.T) {
	obs := &countingObserver{}
	_, obj := newBase(WithObserver(obs))

	_, _ = obj.On("nope", func(...any) {})
	_, _ = obj.On("X", func(...any) {})

	assert.Equal(t, 1, obs.unsupported["Base/nope"])
	assert.Equal(t, 1, obs.registered["Base/X"])
}
