package props

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/nativekit/pkg/errors"
)

type soundProps struct {
	URL     string        `prop:"url"`
	Volume  float64       `prop:"volume"`
	Looping bool          `prop:"looping"`
	Retries int           `prop:"retries"`
	Fade    time.Duration `prop:"fade"`
}

func TestApply(t *testing.T) {
	var p soundProps
	err := Apply(Bag{
		"url":     "https://example.com/a.mp3",
		"volume":  0.5,
		"looping": true,
		"retries": float64(3),
		"fade":    "250ms",
	}, &p)
	require.NoError(t, err)

	assert.Equal(t, soundProps{
		URL:     "https://example.com/a.mp3",
		Volume:  0.5,
		Looping: true,
		Retries: 3,
		Fade:    250 * time.Millisecond,
	}, p)
}

func TestApply_NumericDurationsAreMilliseconds(t *testing.T) {
	for _, v := range []any{int64(5000), 5000, float64(5000), uint(5000)} {
		var p soundProps
		require.NoError(t, Apply(Bag{"fade": v}, &p))
		assert.Equal(t, 5*time.Second, p.Fade, "%T", v)
	}

	var p soundProps
	require.NoError(t, Apply(Bag{"fade": 1.5}, &p))
	assert.Equal(t, 1500*time.Microsecond, p.Fade)

	require.NoError(t, Apply(Bag{"fade": 2 * time.Second}, &p))
	assert.Equal(t, 2*time.Second, p.Fade)
}

func TestApply_EmptyBagLeavesDefaults(t *testing.T) {
	p := soundProps{Volume: 1}
	require.NoError(t, Apply(nil, &p))
	assert.Equal(t, 1.0, p.Volume)
}

func TestApply_UnknownKeyRejected(t *testing.T) {
	var p soundProps
	err := Apply(Bag{"colour": "red"}, &p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestApply_WrongTypeRejected(t *testing.T) {
	var p soundProps
	err := Apply(Bag{"volume": "loud"}, &p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))

	var kitErr *errors.KitError
	require.True(t, errors.As(err, &kitErr))
	assert.Equal(t, errors.KindInvalidArgument, kitErr.Kind)
}

func TestApply_NonPointerTarget(t *testing.T) {
	err := Apply(Bag{"url": "x"}, soundProps{})
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestBagKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Bag{"c": 1, "a": 2, "b": 3}.Keys())
}
