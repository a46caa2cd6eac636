package relaysvc

import (
	"context"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hidrelay/hidrelay/pkg/bus"
	"github.com/hidrelay/hidrelay/pkg/hidrep"
)

func startEngine(t *testing.T, e *Engine) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Start(ctx)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("engine did not stop")
		}
	}
}

func testEngine(t *testing.T, provider SourceProvider, sinks SinkRegistry, hotplug *HotplugBus) *Engine {
	t.Helper()
	return NewEngine(zaptest.NewLogger(t), provider, sinks, hotplug, nil,
		WithSweepInterval(5*time.Millisecond),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
		WithGraceTimeout(time.Second),
	)
}

func linkState(e *Engine, identifier string) string {
	for _, st := range e.Links() {
		if st.Identifier == identifier {
			return st.State
		}
	}
	return ""
}

func TestEngineCreatesLinksForIdentifiers(t *testing.T) {
	kbd := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK Keyboard"})
	mouse := newFakeSource(SourceInfo{Path: "/dev/input/event2", Name: "AceRK Mouse"})
	provider := newFakeProvider(kbd, mouse)
	sinks := newFakeSinks()

	e := testEngine(t, provider, sinks, nil)
	e.SetCriteria(Criteria{Identifiers: []string{"Keyboard", "Mouse", "trackball"}})
	stop := startEngine(t, e)
	defer stop()

	require.Eventually(t, func() bool {
		return linkState(e, "Keyboard") == "relaying" && linkState(e, "Mouse") == "relaying"
	}, 5*time.Second, time.Millisecond)

	// The unmatched identifier keeps a link waiting for the device.
	assert.NotEmpty(t, linkState(e, "trackball"))
	assert.NotEqual(t, "relaying", linkState(e, "trackball"))
}

func TestEngineFaultIsolation(t *testing.T) {
	kbd := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK Keyboard"})
	mouse := newFakeSource(SourceInfo{Path: "/dev/input/event2", Name: "AceRK Mouse"})
	provider := newFakeProvider(kbd, mouse)
	sinks := newFakeSinks()

	e := testEngine(t, provider, sinks, nil)
	e.SetCriteria(Criteria{Identifiers: []string{"Keyboard", "Mouse"}})
	stop := startEngine(t, e)
	defer stop()

	require.Eventually(t, func() bool {
		return linkState(e, "Keyboard") == "relaying" && linkState(e, "Mouse") == "relaying"
	}, 5*time.Second, time.Millisecond)

	// One device dies mid-relay; the other keeps working.
	provider.remove(kbd.info.Path)
	kbd.gone()

	mouse.keyEvent(evdev.BTN_LEFT, 1)
	mouse.sync()
	require.Eventually(t, func() bool {
		for _, rep := range sinks.written() {
			if rep.Kind == hidrep.SinkMouse {
				return true
			}
		}
		return false
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, "relaying", linkState(e, "Mouse"))
}

func TestEngineAutoDiscover(t *testing.T) {
	kbd := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK Keyboard"})
	virtual := newFakeSource(SourceInfo{Path: "/dev/input/event9", Name: "hidrelay-keyboard"})
	provider := newFakeProvider(kbd, virtual)
	sinks := newFakeSinks()
	sinks.virtuals = []string{"hidrelay-keyboard"}

	e := testEngine(t, provider, sinks, nil)
	e.SetCriteria(Criteria{AutoDiscover: true})
	stop := startEngine(t, e)
	defer stop()

	require.Eventually(t, func() bool {
		return linkState(e, "/dev/input/event1") == "relaying"
	}, 5*time.Second, time.Millisecond)

	// Our own virtual output device is never relayed back.
	links := e.Links()
	require.Len(t, links, 1)
	assert.Equal(t, "/dev/input/event1", links[0].Identifier)
}

func TestEngineAutoDiscoverPicksUpNewDevice(t *testing.T) {
	provider := newFakeProvider()
	sinks := newFakeSinks()

	e := testEngine(t, provider, sinks, nil)
	e.SetCriteria(Criteria{AutoDiscover: true})
	stop := startEngine(t, e)
	defer stop()

	time.Sleep(10 * time.Millisecond)
	assert.Empty(t, e.Links())

	src := newFakeSource(SourceInfo{Path: "/dev/input/event5", Name: "Late Keyboard"})
	provider.add(src)
	require.Eventually(t, func() bool {
		return linkState(e, "/dev/input/event5") == "relaying"
	}, 5*time.Second, time.Millisecond)
}

func TestEngineHotplugTriggersSweep(t *testing.T) {
	provider := newFakeProvider()
	sinks := newFakeSinks()
	hotplug := bus.NewBus[string, HotplugEvent](zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hotplug.Start(ctx))

	// A long sweep interval: only the hot-plug nudge can pick the device up
	// quickly.
	e := NewEngine(zaptest.NewLogger(t), provider, sinks, hotplug, nil,
		WithSweepInterval(time.Hour),
		WithBackoff(time.Millisecond, 5*time.Millisecond),
	)
	e.SetCriteria(Criteria{AutoDiscover: true})
	stop := startEngine(t, e)
	defer stop()

	time.Sleep(10 * time.Millisecond)
	src := newFakeSource(SourceInfo{Path: "/dev/input/event3", Name: "Plugged Keyboard"})
	provider.add(src)
	hotplug.Publish(ctx, "input", HotplugEvent{Action: HotplugAdd, Path: src.info.Path})

	require.Eventually(t, func() bool {
		return linkState(e, "/dev/input/event3") == "relaying"
	}, 5*time.Second, time.Millisecond)
}

func TestEngineCriteriaChangeClosesRemovedLinks(t *testing.T) {
	kbd := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK Keyboard"})
	mouse := newFakeSource(SourceInfo{Path: "/dev/input/event2", Name: "AceRK Mouse"})
	provider := newFakeProvider(kbd, mouse)
	sinks := newFakeSinks()

	e := testEngine(t, provider, sinks, nil)
	e.SetCriteria(Criteria{Identifiers: []string{"Keyboard", "Mouse"}})
	stop := startEngine(t, e)
	defer stop()

	require.Eventually(t, func() bool {
		return linkState(e, "Keyboard") == "relaying" && linkState(e, "Mouse") == "relaying"
	}, 5*time.Second, time.Millisecond)

	e.SetCriteria(Criteria{Identifiers: []string{"Keyboard"}})
	require.Eventually(t, func() bool {
		return linkState(e, "Mouse") == ""
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, "relaying", linkState(e, "Keyboard"))

	// The freed device can be claimed again by a new identifier.
	e.SetCriteria(Criteria{Identifiers: []string{"Keyboard", "AceRK Mouse"}})
	require.Eventually(t, func() bool {
		return linkState(e, "AceRK Mouse") == "relaying"
	}, 5*time.Second, time.Millisecond)
}

func TestEngineShutdownReleasesHeldKeys(t *testing.T) {
	kbd := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK Keyboard"})
	provider := newFakeProvider(kbd)
	sinks := newFakeSinks()

	e := testEngine(t, provider, sinks, nil)
	e.SetCriteria(Criteria{Identifiers: []string{"Keyboard"}})
	stop := startEngine(t, e)

	require.Eventually(t, func() bool {
		return linkState(e, "Keyboard") == "relaying"
	}, 5*time.Second, time.Millisecond)
	kbd.keyEvent(evdev.KEY_A, 1)
	kbd.sync()
	require.Eventually(t, func() bool { return sinks.count() == 1 }, 5*time.Second, time.Millisecond)

	stop()

	reports := sinks.written()
	require.Len(t, reports, 2)
	assert.Equal(t, make([]byte, hidrep.KeyboardReportSize), reports[1].Data)
	assert.Equal(t, "terminated", linkState(e, "Keyboard"))
}
