package cmd

import (
	"fmt"
	"strings"

	"github.com/go-drift/nativekit/internal/desktop"
	"github.com/go-drift/nativekit/pkg/notifications"
	"github.com/go-drift/nativekit/pkg/platform"
	"github.com/go-drift/nativekit/pkg/request"
	"github.com/go-drift/nativekit/pkg/sound"
	"github.com/go-drift/nativekit/pkg/task"
	"github.com/go-drift/nativekit/pkg/view"
)

func init() {
	RegisterCommand(&Command{
		Name:  "events",
		Short: "List the events each wrapper emits",
		Long: `List the event names each wrapper class recognizes, outermost layer
first. Page lists its own events before those it inherits from View.

Script-created EventEmitter objects accept any event name.`,
		Usage: "nativekit events",
		Run:   runEvents,
	})
}

// eventLister is implemented by every wrapper through its embedded object.
type eventLister interface {
	Class() string
	Events() []string
}

func runEvents(env *Env, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("events takes no arguments")
	}
	host, _ := desktop.NewHost(desktop.NewLoop(), nil)
	wrappers, cleanup, err := describeWrappers(host)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, w := range wrappers {
		fmt.Fprintf(env.Stdout, "%-14s %s\n", w.Class(), strings.Join(w.Events(), " "))
	}
	fmt.Fprintf(env.Stdout, "%-14s %s\n", "EventEmitter", "(any)")
	return nil
}

func describeWrappers(host *platform.Host) ([]eventLister, func(), error) {
	s, err := sound.New(host, nil)
	if err != nil {
		return nil, nil, err
	}
	v, err := view.New(host, nil)
	if err != nil {
		return nil, nil, err
	}
	page, err := view.NewPage(host, nil)
	if err != nil {
		return nil, nil, err
	}
	svc := notifications.New(host)
	req, err := request.New(host, noTransport{}, map[string]any{"url": "about:blank"})
	if err != nil {
		return nil, nil, err
	}
	t := task.New(host, nil)

	cleanup := func() {
		_ = s.Dispose()
		_ = v.Dispose()
		_ = page.Dispose()
		svc.Close()
	}
	return []eventLister{s, v, page, svc, req, t}, cleanup, nil
}
