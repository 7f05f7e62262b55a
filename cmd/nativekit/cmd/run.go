package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/go-drift/nativekit/internal/config"
	"github.com/go-drift/nativekit/internal/desktop"
	"github.com/go-drift/nativekit/internal/logger"
	"github.com/go-drift/nativekit/pkg/errors"
	"github.com/go-drift/nativekit/pkg/events"
	"github.com/go-drift/nativekit/pkg/metrics"
	"github.com/go-drift/nativekit/pkg/notifications"
	"github.com/go-drift/nativekit/pkg/platform"
	"github.com/go-drift/nativekit/pkg/props"
	"github.com/go-drift/nativekit/pkg/request"
	"github.com/go-drift/nativekit/pkg/script"
	"github.com/go-drift/nativekit/pkg/sound"
	"github.com/go-drift/nativekit/pkg/task"
	"github.com/go-drift/nativekit/pkg/view"
)

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Run a script on the desktop host",
		Long: `Run a JavaScript file against a desktop host. The host uses a loopback
native bridge that logs every native call and simulates device behavior:
sounds load and play to completion, scheduled notifications arrive, and
pages are shown after creation.

Globals available to the script:
  sound          Sound wrapper (load, play, pause, stop, seekTo, setVolume)
  page           Page wrapper (setTitle, setBackgroundColor, setVisible)
  notifications  Notification service (schedule, cancel, setBadge)
  http.request   Create an HTTP request: http.request({url, method, headers, body})
  delay(ms)      Background task that completes after ms milliseconds
  setTimeout     Run a function after a delay
  console        Logs through the configured logger

require("nativekit:events").EventEmitter creates plain emitters.

The command exits once the script and every event it started have finished
and the host has been idle for the --wait period. An exception thrown by
the script or by a setTimeout callback fails the run.

Flags:
  --wait DURATION   Idle period before exiting (default: 200ms)
  --strict          Reject listeners for events a wrapper does not emit
  --debug           Log at debug level, including every native call`,
		Usage: "nativekit run <script.js> [--wait DURATION] [--strict] [--debug]",
		Run:   runScript,
	})
}

type runOptions struct {
	path   string
	wait   time.Duration
	strict bool
	debug  bool
}

func parseRunArgs(args []string) (runOptions, error) {
	opts := runOptions{wait: 200 * time.Millisecond}
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; arg {
		case "--strict":
			opts.strict = true
		case "--debug":
			opts.debug = true
		case "--wait":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("--wait requires a duration")
			}
			d, err := time.ParseDuration(args[i+1])
			if err != nil {
				return opts, fmt.Errorf("invalid --wait: %w", err)
			}
			opts.wait = d
			i++
		default:
			if opts.path != "" {
				return opts, fmt.Errorf("unexpected argument %q", arg)
			}
			opts.path = arg
		}
	}
	if opts.path == "" {
		return opts, fmt.Errorf("script path is required\n\nUsage: nativekit run <script.js>")
	}
	return opts, nil
}

func runScript(env *Env, args []string) error {
	opts, err := parseRunArgs(args)
	if err != nil {
		return err
	}
	cfg, err := env.LoadConfig()
	if err != nil {
		return err
	}
	if opts.strict {
		cfg.Events.Strict = true
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	if opts.debug {
		log.SetLevel(zap.DebugLevel)
	}
	errors.SetHandler(errors.NewLogHandler(log.Logger))
	defer errors.SetHandler(nil)

	var eventOpts []events.Option
	if cfg.Events.Strict {
		eventOpts = append(eventOpts, events.WithStrictEvents())
	}
	if cfg.Metrics.Enabled {
		collector := metrics.NewCollector(cfg.Metrics.Namespace, log.Logger)
		server := metrics.Serve(collector, cfg.Metrics.Listen, cfg.Metrics.Path, log.Logger)
		defer func() { _ = server.Shutdown() }()
		eventOpts = append(eventOpts, events.WithObserver(collector))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop := desktop.NewLoop()
	host, bridge := desktop.NewHost(loop, log.Logger)
	bridge.Simulate()

	// runErr is only touched on the loop goroutine.
	var runErr error
	fail := func(err error) {
		if runErr == nil {
			runErr = err
		}
		stop()
	}

	rt := script.NewRuntime(log.Logger, eventOpts...)
	s, err := newSession(ctx, host, loop, rt, cfg, eventOpts, log.Logger)
	if err != nil {
		return err
	}
	s.fail = fail
	defer s.close()

	loop.Post(func() {
		if _, err := rt.RunFile(opts.path); err != nil {
			fail(err)
		}
	})
	if err := loop.RunUntilIdle(ctx, opts.wait); err != nil && runErr == nil {
		log.Info("interrupted")
	}
	return runErr
}

// session owns the wrappers exposed to one script run.
type session struct {
	ctx       context.Context
	host      *platform.Host
	loop      *desktop.Loop
	rt        *script.Runtime
	opts      []events.Option
	transport request.Transport
	logger    *zap.Logger
	fail      func(error)

	sound *sound.Sound
	page  *view.Page
	notes *notifications.Service
	tasks []*task.AsyncTask
}

func newSession(ctx context.Context, host *platform.Host, loop *desktop.Loop, rt *script.Runtime, cfg *config.Config, opts []events.Option, log *zap.Logger) (*session, error) {
	s := &session{
		ctx:  ctx,
		host: host,
		loop: loop,
		rt:   rt,
		opts: opts,
		transport: request.NewFastHTTPTransport(request.TransportConfig{
			Timeout:         cfg.HTTP.Timeout,
			MaxConnsPerHost: cfg.HTTP.MaxConnsPerHost,
			UserAgent:       cfg.HTTP.UserAgent,
		}, log),
		logger: log,
	}
	if err := s.exposeSound(); err != nil {
		return nil, err
	}
	if err := s.exposePage(); err != nil {
		return nil, err
	}
	if err := s.exposeNotifications(); err != nil {
		return nil, err
	}
	vm := rt.VM()
	for name, value := range map[string]any{
		"http":       map[string]any{"request": s.newRequest},
		"delay":      s.delay,
		"setTimeout": s.setTimeout,
	} {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *session) exposeSound() error {
	snd, err := sound.New(s.host, nil, s.opts...)
	if err != nil {
		return err
	}
	s.sound = snd
	obj, err := s.rt.Expose("sound", snd)
	if err != nil {
		return err
	}
	return setAll(obj, map[string]any{
		"load":       snd.Load,
		"play":       snd.Play,
		"pause":      snd.Pause,
		"stop":       snd.Stop,
		"setVolume":  snd.SetVolume,
		"setLooping": snd.SetLooping,
		"seekTo": func(ms int64) error {
			return snd.SeekTo(time.Duration(ms) * time.Millisecond)
		},
		"state": func() string { return snd.State().String() },
	})
}

func (s *session) exposePage() error {
	page, err := view.NewPage(s.host, props.Bag{"title": "Main"}, s.opts...)
	if err != nil {
		return err
	}
	s.page = page
	obj, err := s.rt.Expose("page", page)
	if err != nil {
		return err
	}
	return setAll(obj, map[string]any{
		"setTitle":           page.SetTitle,
		"setBackgroundColor": page.SetBackgroundColor,
		"setVisible":         page.SetVisible,
		"setOpacity":         page.SetOpacity,
	})
}

// scheduleProps is the object scripts pass to notifications.schedule.
type scheduleProps struct {
	ID    string         `prop:"id"`
	Title string         `prop:"title"`
	Body  string         `prop:"body"`
	Data  map[string]any `prop:"data"`
	Delay int64          `prop:"delaySeconds"`
}

// request converts p, delivering delaySeconds after now.
func (p scheduleProps) request(now time.Time) notifications.Request {
	req := notifications.Request{
		ID:    p.ID,
		Title: p.Title,
		Body:  p.Body,
		Data:  p.Data,
	}
	if p.Delay > 0 {
		req.At = now.Add(time.Duration(p.Delay) * time.Second)
	}
	return req
}

func (s *session) exposeNotifications() error {
	s.notes = notifications.New(s.host, s.opts...)
	obj, err := s.rt.Expose("notifications", s.notes)
	if err != nil {
		return err
	}
	return setAll(obj, map[string]any{
		"schedule": func(bag map[string]any) (string, error) {
			var p scheduleProps
			if err := props.Apply(bag, &p); err != nil {
				return "", err
			}
			return s.notes.Schedule(s.ctx, p.request(time.Now()))
		},
		"cancel":   func(id string) error { return s.notes.Cancel(s.ctx, id) },
		"setBadge": func(n int) error { return s.notes.SetBadge(s.ctx, n) },
	})
}

func (s *session) newRequest(bag map[string]any) (*goja.Object, error) {
	req, err := request.New(s.host, s.transport, bag, s.opts...)
	if err != nil {
		return nil, err
	}
	obj := script.Bind(s.rt.VM(), req)
	err = setAll(obj, map[string]any{
		"send":  func() error { return s.track(req.Send(s.ctx), req.Done()) },
		"abort": req.Abort,
	})
	return obj, err
}

func (s *session) delay(ms int64) (*goja.Object, error) {
	d := time.Duration(ms) * time.Millisecond
	t := task.New(s.host, func(ctx context.Context, _ func(any)) (any, error) {
		select {
		case <-time.After(d):
			return ms, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, s.opts...)
	s.tasks = append(s.tasks, t)
	obj := script.Bind(s.rt.VM(), t)
	err := setAll(obj, map[string]any{"cancel": t.Cancel})
	if err != nil {
		return nil, err
	}
	return obj, s.track(t.Start(s.ctx), t.Done())
}

// track keeps the loop busy until done is closed.
func (s *session) track(err error, done <-chan struct{}) error {
	if err != nil {
		return err
	}
	stop := s.loop.AfterFunc(24*time.Hour, func() {})
	go func() {
		<-done
		s.loop.Post(func() { stop() })
	}()
	return nil
}

func (s *session) setTimeout(callback goja.Value, ms int64) {
	fn, ok := goja.AssertFunction(callback)
	if !ok {
		panic(s.rt.VM().NewTypeError("setTimeout callback must be a function"))
	}
	s.loop.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		if _, err := fn(goja.Undefined()); err != nil {
			s.logger.Error("setTimeout callback failed", zap.Error(err))
			s.fail(err)
		}
	})
}

func (s *session) close() {
	for _, t := range s.tasks {
		t.Cancel()
	}
	if s.notes != nil {
		s.notes.Close()
	}
	if s.page != nil {
		_ = s.page.Dispose()
	}
	if s.sound != nil {
		_ = s.sound.Dispose()
	}
}

func setAll(obj *goja.Object, values map[string]any) error {
	for name, value := range values {
		if err := obj.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// noTransport refuses every request. It backs wrappers built only for
// introspection.
type noTransport struct{}

func (noTransport) Do(context.Context, request.Options) (*request.Response, error) {
	return nil, platform.ErrPlatformUnavailable
}
