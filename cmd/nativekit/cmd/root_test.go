package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/nativekit/pkg/props"
)

func newTestEnv() (*Env, *bytes.Buffer) {
	var out bytes.Buffer
	return &Env{Stdout: &out, Stderr: &out}, &out
}

func TestExecute_HelpAndVersion(t *testing.T) {
	env, out := newTestEnv()
	require.NoError(t, execute(env, nil))
	assert.Contains(t, out.String(), "Commands:")
	assert.Contains(t, out.String(), "run")
	assert.Contains(t, out.String(), "events")

	env, out = newTestEnv()
	require.NoError(t, execute(env, []string{"--version"}))
	assert.Equal(t, "nativekit version 0.1.0-dev (built unknown)\n", out.String())

	env, out = newTestEnv()
	require.NoError(t, execute(env, []string{"run", "--help"}))
	assert.Contains(t, out.String(), "nativekit run <script.js>")
}

func TestExecute_UnknownCommand(t *testing.T) {
	env, _ := newTestEnv()
	err := execute(env, []string{"deploy"})
	assert.EqualError(t, err, "unknown command: deploy")
}

func TestExecute_ConfigFlag(t *testing.T) {
	env, _ := newTestEnv()
	err := execute(env, []string{"--config"})
	assert.Error(t, err)

	env, _ = newTestEnv()
	require.NoError(t, execute(env, []string{"--config=custom.yaml", "events"}))
	assert.Equal(t, "custom.yaml", env.ConfigPath)
}

func TestEventsCommand(t *testing.T) {
	env, out := newTestEnv()
	require.NoError(t, execute(env, []string{"events"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "Sound error finish position ready statechange", strings.Join(strings.Fields(lines[0]), " "))
	assert.Equal(t, "Page hide show tap layout longpress", strings.Join(strings.Fields(lines[2]), " "))
	assert.Equal(t, "EventEmitter (any)", strings.Join(strings.Fields(lines[6]), " "))
}

func TestParseRunArgs(t *testing.T) {
	opts, err := parseRunArgs([]string{"demo.js", "--wait", "1s", "--strict", "--debug"})
	require.NoError(t, err)
	assert.Equal(t, runOptions{path: "demo.js", wait: time.Second, strict: true, debug: true}, opts)

	_, err = parseRunArgs(nil)
	assert.ErrorContains(t, err, "script path is required")
	_, err = parseRunArgs([]string{"a.js", "b.js"})
	assert.ErrorContains(t, err, "unexpected argument")
	_, err = parseRunArgs([]string{"a.js", "--wait", "soon"})
	assert.ErrorContains(t, err, "invalid --wait")
}

func TestScheduleProps_DelayBecomesDeliveryTime(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	var p scheduleProps
	require.NoError(t, props.Apply(props.Bag{"title": "later", "delaySeconds": int64(30)}, &p))

	req := p.request(now)
	assert.Equal(t, "later", req.Title)
	assert.Equal(t, now.Add(30*time.Second), req.At)
	assert.Zero(t, req.IntervalSeconds)

	assert.True(t, scheduleProps{Title: "now"}.request(now).At.IsZero())
}

func writeScript(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "demo.js")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunCommand_DrivesSimulatedHost(t *testing.T) {
	path := writeScript(t, `
		const { EventEmitter } = require("nativekit:events");
		const bus = new EventEmitter();
		const seen = [];
		bus.on("step", (name) => seen.push(name));

		sound.on("ready", () => { bus.emit("step", "ready"); sound.play(); });
		sound.on("finish", () => bus.emit("step", "finish"));
		page.on("show", () => bus.emit("step", "show"));
		notifications.on("received", (n) => bus.emit("step", "received " + n.title));
		delay(10).on("complete", () => bus.emit("step", "delay"));

		sound.load("file:///demo.mp3");
		notifications.schedule({ title: "hello" });

		setTimeout(() => {
			const want = ["delay", "finish", "ready", "received hello", "show"];
			const got = seen.slice().sort();
			if (JSON.stringify(got) !== JSON.stringify(want)) {
				throw new Error("unexpected events: " + JSON.stringify(seen));
			}
		}, 1000);
	`)
	env, _ := newTestEnv()
	require.NoError(t, execute(env, []string{"run", path, "--wait", "50ms"}))
}

func TestRunCommand_ScriptErrorFails(t *testing.T) {
	path := writeScript(t, `throw new Error("broken script")`)
	env, _ := newTestEnv()
	err := execute(env, []string{"run", path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken script")
}

func TestRunCommand_StrictRejectsUnknownEvent(t *testing.T) {
	path := writeScript(t, `sound.on("explode", () => {})`)
	env, _ := newTestEnv()
	err := execute(env, []string{"run", path, "--strict"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported event")
}
