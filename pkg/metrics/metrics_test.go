package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/events"
)

type widget struct{}

func newObject(c *Collector, opts ...events.Option) *events.Object {
	opts = append(opts, events.WithObserver(c))
	return events.Compose(events.Bind(&widget{}, events.Layer[*widget]{
		Class: "Widget",
		Table: events.Table[*widget]{"tap": nil},
	}), opts...)
}

func TestCollector_CountsEmitterActivity(t *testing.T) {
	c := NewCollector("test", nil)
	obj := newObject(c)

	_, err := obj.On("tap", func(...any) {})
	require.NoError(t, err)
	_, err = obj.On("tap", func(...any) {})
	require.NoError(t, err)
	_, err = obj.On("swipe", func(...any) {})
	require.NoError(t, err)

	obj.Emit("tap")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.registered.WithLabelValues("Widget", "tap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.emitted.WithLabelValues("Widget", "tap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unsupported.WithLabelValues("Widget", "swipe")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.panicked.WithLabelValues("Widget", "tap")))
}

func TestCollector_CountsPanics(t *testing.T) {
	old := errors.DefaultHandler
	errors.SetHandler(errors.NewLogHandler(zap.NewNop()))
	t.Cleanup(func() { errors.SetHandler(old) })

	c := NewCollector("test", nil)
	obj := newObject(c)
	_, err := obj.On("tap", func(...any) { panic("boom") })
	require.NoError(t, err)

	obj.Emit("tap")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.panicked.WithLabelValues("Widget", "tap")))
}

func TestCollector_RegistryLint(t *testing.T) {
	c := NewCollector("", nil)
	c.Emitted("Sound", "ready", 3)

	problems, err := testutil.CollectAndLint(c.fanout)
	require.NoError(t, err)
	assert.Empty(t, problems)

	count, err := testutil.GatherAndCount(c.Registry(), "nativekit_events_emitted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandler(t *testing.T) {
	c := NewCollector("test", nil)
	c.Registered("Sound", "ready")
	h := Handler(c, "/metrics")

	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/metrics")
	h(ctx)
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.True(t, strings.Contains(string(ctx.Response.Body()),
		`test_events_listeners_registered_total{class="Sound",event="ready"} 1`))

	ctx = &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/other")
	h(ctx)
	assert.Equal(t, fasthttp.StatusNotFound, ctx.Response.StatusCode())
}
