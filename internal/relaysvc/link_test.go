package relaysvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hidrelay/hidrelay/internal/gadget"
	"github.com/hidrelay/hidrelay/pkg/hidrep"
)

type sourceItem struct {
	ev  Event
	err error
}

type fakeSource struct {
	info SourceInfo
	ch   chan sourceItem

	mu     sync.Mutex
	closed bool
}

func newFakeSource(info SourceInfo) *fakeSource {
	return &fakeSource{info: info, ch: make(chan sourceItem, 64)}
}

func (s *fakeSource) Info() SourceInfo { return s.info }

func (s *fakeSource) ReadEvent(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case it, ok := <-s.ch:
		if !ok {
			return Event{}, ErrDeviceGone
		}
		return it.ev, it.err
	}
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSource) keyEvent(code evdev.EvCode, value int32) {
	s.ch <- sourceItem{ev: Event{Kind: EventKey, Code: uint16(code), Value: value}}
}

func (s *fakeSource) relEvent(code evdev.EvCode, value int32) {
	s.ch <- sourceItem{ev: Event{Kind: EventRel, Code: uint16(code), Value: value}}
}

func (s *fakeSource) sync() {
	s.ch <- sourceItem{ev: Event{Kind: EventSync, Code: uint16(evdev.SYN_REPORT)}}
}

func (s *fakeSource) gone() {
	close(s.ch)
}

type fakeProvider struct {
	mu      sync.Mutex
	sources map[string]*fakeSource
}

func newFakeProvider(sources ...*fakeSource) *fakeProvider {
	p := &fakeProvider{sources: make(map[string]*fakeSource)}
	for _, s := range sources {
		p.sources[s.info.Path] = s
	}
	return p
}

func (p *fakeProvider) add(s *fakeSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources[s.info.Path] = s
}

func (p *fakeProvider) remove(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sources, path)
}

func (p *fakeProvider) List() ([]SourceInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var infos []SourceInfo
	for _, s := range p.sources {
		infos = append(infos, s.info)
	}
	return infos, nil
}

func (p *fakeProvider) Open(path string, grab bool) (Source, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sources[path]
	if !ok {
		return nil, fmt.Errorf("no such device: %s", path)
	}
	return s, nil
}

type fakeSinks struct {
	mu       sync.Mutex
	reports  []hidrep.Report
	failing  bool
	missing  map[hidrep.SinkKind]bool
	virtuals []string
}

func newFakeSinks() *fakeSinks {
	return &fakeSinks{missing: make(map[hidrep.SinkKind]bool)}
}

func (f *fakeSinks) Write(kind hidrep.SinkKind, report []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[kind] {
		return fmt.Errorf("%w: %s", gadget.ErrNoSink, kind)
	}
	if f.failing {
		return fmt.Errorf("%w: %s: %w", gadget.ErrSinkUnavailable, kind, errors.New("broken pipe"))
	}
	data := make([]byte, len(report))
	copy(data, report)
	f.reports = append(f.reports, hidrep.Report{Kind: kind, Data: data})
	return nil
}

func (f *fakeSinks) VirtualDeviceNames() []string { return f.virtuals }

func (f *fakeSinks) setFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

func (f *fakeSinks) written() []hidrep.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]hidrep.Report, len(f.reports))
	copy(out, f.reports)
	return out
}

func (f *fakeSinks) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func testLinkConfig(raw string) linkConfig {
	return linkConfig{
		identifier: ParseIdentifier(raw),
		backoffMin: time.Millisecond,
		backoffMax: 5 * time.Millisecond,
	}
}

func startLink(t *testing.T, l *Link) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Run(ctx)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("link did not stop")
		}
	}
}

func waitState(t *testing.T, l *Link, state LinkState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return l.State() == state
	}, 5*time.Second, time.Millisecond, "link never reached %s, currently %s", state, l.State())
}

func TestLinkRelaysEvents(t *testing.T) {
	src := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK Keyboard"})
	provider := newFakeProvider(src)
	sinks := newFakeSinks()
	claims := newClaimTable()
	l := newLink(zaptest.NewLogger(t), provider, sinks, claims, testLinkConfig("acerk"))
	stop := startLink(t, l)
	defer stop()

	waitState(t, l, StateRelaying)
	src.keyEvent(evdev.KEY_A, 1)
	src.sync()

	require.Eventually(t, func() bool { return sinks.count() == 1 }, 5*time.Second, time.Millisecond)
	rep := sinks.written()[0]
	assert.Equal(t, hidrep.SinkKeyboard, rep.Kind)
	assert.Equal(t, []byte{0, 0, 0x04, 0, 0, 0, 0, 0}, rep.Data)

	status := l.Status()
	assert.Equal(t, "/dev/input/event1", status.Path)
	assert.Equal(t, "AceRK Keyboard", status.Name)
}

func TestLinkRelaysMouse(t *testing.T) {
	src := newFakeSource(SourceInfo{Path: "/dev/input/event2", Name: "AceRK Mouse"})
	provider := newFakeProvider(src)
	sinks := newFakeSinks()
	l := newLink(zaptest.NewLogger(t), provider, sinks, newClaimTable(), testLinkConfig("mouse"))
	stop := startLink(t, l)
	defer stop()

	waitState(t, l, StateRelaying)
	src.keyEvent(evdev.BTN_LEFT, 1)
	src.relEvent(evdev.REL_X, 10)
	src.relEvent(evdev.REL_Y, -5)
	src.sync()

	require.Eventually(t, func() bool { return sinks.count() == 1 }, 5*time.Second, time.Millisecond)
	rep := sinks.written()[0]
	assert.Equal(t, hidrep.SinkMouse, rep.Kind)
	dy := int8(-5)
	assert.Equal(t, []byte{0x01, 10, byte(dy), 0}, rep.Data)
}

func TestLinkAutorepeatIsDropped(t *testing.T) {
	src := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK"})
	sinks := newFakeSinks()
	l := newLink(zaptest.NewLogger(t), newFakeProvider(src), sinks, newClaimTable(), testLinkConfig("acerk"))
	stop := startLink(t, l)
	defer stop()

	waitState(t, l, StateRelaying)
	src.keyEvent(evdev.KEY_A, 1)
	src.sync()
	src.keyEvent(evdev.KEY_A, 2)
	src.sync()
	src.keyEvent(evdev.KEY_A, 0)
	src.sync()

	require.Eventually(t, func() bool { return sinks.count() == 2 }, 5*time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 2, sinks.count(), "autorepeat frame must not produce a report")
}

func TestLinkReleasesOnDeviceGone(t *testing.T) {
	src := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK", Uniq: "aa:bb:cc:dd:ee:ff"})
	provider := newFakeProvider(src)
	sinks := newFakeSinks()
	l := newLink(zaptest.NewLogger(t), provider, sinks, newClaimTable(), testLinkConfig("aa:bb:cc:dd:ee:ff"))
	stop := startLink(t, l)
	defer stop()

	waitState(t, l, StateRelaying)
	src.keyEvent(evdev.KEY_A, 1)
	src.sync()
	require.Eventually(t, func() bool { return sinks.count() == 1 }, 5*time.Second, time.Millisecond)

	provider.remove(src.info.Path)
	src.gone()

	// The held key is released so the host never sees it stuck down.
	require.Eventually(t, func() bool { return sinks.count() == 2 }, 5*time.Second, time.Millisecond)
	rep := sinks.written()[1]
	assert.Equal(t, hidrep.SinkKeyboard, rep.Kind)
	assert.Equal(t, make([]byte, hidrep.KeyboardReportSize), rep.Data)
	assert.True(t, src.isClosed())

	// The device comes back under a different node path; the identifier
	// still matches and the link reconnects.
	again := newFakeSource(SourceInfo{Path: "/dev/input/event7", Name: "AceRK", Uniq: "AA:BB:CC:DD:EE:FF"})
	provider.add(again)
	waitState(t, l, StateRelaying)

	again.keyEvent(evdev.KEY_B, 1)
	again.sync()
	require.Eventually(t, func() bool { return sinks.count() == 3 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, []byte{0, 0, 0x05, 0, 0, 0, 0, 0}, sinks.written()[2].Data)
	assert.Equal(t, "/dev/input/event7", l.Status().Path)
}

func TestLinkSurvivesTransientReadErrors(t *testing.T) {
	src := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK"})
	sinks := newFakeSinks()
	l := newLink(zaptest.NewLogger(t), newFakeProvider(src), sinks, newClaimTable(), testLinkConfig("acerk"))
	stop := startLink(t, l)
	defer stop()

	waitState(t, l, StateRelaying)
	src.ch <- sourceItem{err: errors.New("input/output error")}
	src.keyEvent(evdev.KEY_A, 1)
	src.sync()

	require.Eventually(t, func() bool { return sinks.count() == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, StateRelaying, l.State())
}

func TestLinkTerminatesOnSinkFailure(t *testing.T) {
	src := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK"})
	sinks := newFakeSinks()
	sinks.setFailing(true)
	l := newLink(zaptest.NewLogger(t), newFakeProvider(src), sinks, newClaimTable(), testLinkConfig("acerk"))
	stop := startLink(t, l)
	defer stop()

	waitState(t, l, StateRelaying)
	src.keyEvent(evdev.KEY_A, 1)
	src.sync()

	waitState(t, l, StateTerminated)
}

func TestLinkIgnoresMissingSinkKind(t *testing.T) {
	src := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK"})
	sinks := newFakeSinks()
	sinks.missing[hidrep.SinkConsumer] = true
	l := newLink(zaptest.NewLogger(t), newFakeProvider(src), sinks, newClaimTable(), testLinkConfig("acerk"))
	stop := startLink(t, l)
	defer stop()

	waitState(t, l, StateRelaying)
	src.keyEvent(evdev.KEY_VOLUMEUP, 1)
	src.sync()
	src.keyEvent(evdev.KEY_A, 1)
	src.sync()

	// The consumer report is dropped, the keyboard report still flows.
	require.Eventually(t, func() bool { return sinks.count() == 1 }, 5*time.Second, time.Millisecond)
	assert.Equal(t, hidrep.SinkKeyboard, sinks.written()[0].Kind)
	assert.Equal(t, StateRelaying, l.State())
}

func TestLinkSkipsClaimedSource(t *testing.T) {
	src := newFakeSource(SourceInfo{Path: "/dev/input/event1", Name: "AceRK"})
	provider := newFakeProvider(src)
	sinks := newFakeSinks()
	claims := newClaimTable()

	first := newLink(zaptest.NewLogger(t), provider, sinks, claims, testLinkConfig("acerk"))
	stopFirst := startLink(t, first)
	defer stopFirst()
	waitState(t, first, StateRelaying)

	second := newLink(zaptest.NewLogger(t), provider, sinks, claims, testLinkConfig("ace"))
	stopSecond := startLink(t, second)
	defer stopSecond()

	time.Sleep(20 * time.Millisecond)
	assert.NotEqual(t, StateRelaying, second.State(), "second link must not bind a claimed source")
}
