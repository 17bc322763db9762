package recovery

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/winhost/internal/dialog"
	"github.com/1broseidon/winhost/internal/surface"
)

// journal records calls from every fake in order.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(call string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

func (j *journal) count(prefix string) int {
	n := 0
	for _, c := range j.all() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

type fakeTarget struct {
	j         *journal
	mu        sync.Mutex
	valid     bool
	workspace bool
}

func (t *fakeTarget) Valid() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.valid
}

func (t *fakeTarget) HasWorkspace() bool { return t.workspace }

func (t *fakeTarget) Destroy(_ context.Context, reopen, discard bool) {
	t.mu.Lock()
	t.valid = false
	t.mu.Unlock()
	switch {
	case reopen && discard:
		t.j.add("destroy(reopen,discard)")
	case reopen:
		t.j.add("destroy(reopen)")
	case discard:
		t.j.add("destroy(close,discard)")
	default:
		t.j.add("destroy(close)")
	}
}

func (t *fakeTarget) invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.valid = false
}

type fakeSampler struct{ j *journal }

func (s fakeSampler) Trigger() { s.j.add("sampler.trigger") }
func (s fakeSampler) Stop()    { s.j.add("sampler.stop") }

type fakeLifecycle struct{ j *journal }

func (l fakeLifecycle) Kill(code int) { l.j.add("kill") }
func (l fakeLifecycle) Quit()         { l.j.add("quit") }

type fakeRecorder struct {
	mu      sync.Mutex
	errors  []string
	actions []string
}

func (r *fakeRecorder) WindowError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, kind)
}

func (r *fakeRecorder) RecoveryAction(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

type fixture struct {
	j        *journal
	target   *fakeTarget
	recorder *fakeRecorder
	prompts  []dialog.Options
	c        *Coordinator
}

func newFixture(t *testing.T, modes Modes, answer func(dialog.Options) (dialog.Result, error)) *fixture {
	t.Helper()
	f := &fixture{j: &journal{}, recorder: &fakeRecorder{}}
	f.target = &fakeTarget{j: f.j, valid: true, workspace: true}
	var mu sync.Mutex
	svc := dialog.Func(func(ctx context.Context, opts dialog.Options) (dialog.Result, error) {
		mu.Lock()
		f.prompts = append(f.prompts, opts)
		mu.Unlock()
		f.j.add("prompt")
		return answer(opts)
	})
	c, err := New(Options{
		WindowID:  "w1",
		Target:    f.target,
		Sampler:   fakeSampler{j: f.j},
		Dialog:    svc,
		Lifecycle: fakeLifecycle{j: f.j},
		Recorder:  f.recorder,
		Modes:     modes,
		Logger:    slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	f.c = c
	return f
}

func answer(response int, checkbox bool) func(dialog.Options) (dialog.Result, error) {
	return func(dialog.Options) (dialog.Result, error) {
		return dialog.Result{Response: response, CheckboxChecked: checkbox}, nil
	}
}

func TestUnresponsive_CloseWithCheckbox(t *testing.T) {
	f := newFixture(t, Modes{}, answer(1, true))

	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive})

	assert.Equal(t, []string{"sampler.trigger", "prompt", "sampler.stop", "destroy(close,discard)"}, f.j.all())
	require.Len(t, f.prompts, 1)
	assert.Equal(t, []string{"Reopen", "Close", "Keep Waiting"}, f.prompts[0].Buttons)
	assert.Equal(t, "Don't restore editors", f.prompts[0].CheckboxLabel)
	assert.Equal(t, "w1", f.prompts[0].WindowID)
	assert.Equal(t, []string{"unresponsive"}, f.recorder.errors)
	assert.Equal(t, []string{"close"}, f.recorder.actions)
}

func TestUnresponsive_Reopen(t *testing.T) {
	f := newFixture(t, Modes{}, answer(0, false))
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive})
	assert.Equal(t, []string{"sampler.trigger", "prompt", "sampler.stop", "destroy(reopen)"}, f.j.all())
}

func TestUnresponsive_KeepWaiting(t *testing.T) {
	f := newFixture(t, Modes{}, answer(2, true))
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive})
	assert.Equal(t, []string{"sampler.trigger", "prompt"}, f.j.all())
	assert.True(t, f.target.Valid())
}

func TestAssess_PromptRunsSeparately(t *testing.T) {
	f := newFixture(t, Modes{}, answer(1, false))

	prompt := f.c.Assess(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive})
	require.NotNil(t, prompt)
	assert.Equal(t, []string{"sampler.trigger"}, f.j.all())

	assert.Nil(t, f.c.Assess(context.Background(), surface.FailureEvent{Kind: surface.KindResponsive}))
	assert.Equal(t, []string{"sampler.trigger", "sampler.stop"}, f.j.all())

	prompt()
	assert.Equal(t, []string{"sampler.trigger", "sampler.stop", "prompt", "sampler.stop", "destroy(close)"}, f.j.all())
}

func TestAssess_FastPathsActImmediately(t *testing.T) {
	f := newFixture(t, Modes{SmokeTest: true}, answer(0, false))
	assert.Nil(t, f.c.Assess(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive}))
	assert.Equal(t, []string{"destroy(close)", "quit"}, f.j.all())

	f = newFixture(t, Modes{DevHost: true}, answer(0, false))
	assert.Nil(t, f.c.Assess(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive}))
	assert.Empty(t, f.j.all())
}

func TestUnresponsive_DebuggingSkipsPrompt(t *testing.T) {
	for name, modes := range map[string]Modes{
		"dev host":  {DevHost: true},
		"test host": {TestHost: true},
		"debugging": {Debugging: true},
		"devtools":  {DevTools: true},
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, modes, answer(1, false))
			f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive})
			assert.Empty(t, f.j.all())
		})
	}
}

func TestProcessGone_SmokeTest(t *testing.T) {
	f := newFixture(t, Modes{SmokeTest: true}, answer(0, false))
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindProcessGone, Reason: "crashed", ExitCode: 139})

	assert.Equal(t, []string{"destroy(close)", "quit"}, f.j.all())
	assert.Empty(t, f.prompts)
}

func TestProcessGone_TestRunnerExits(t *testing.T) {
	f := newFixture(t, Modes{TestRunner: true, SmokeTest: true}, answer(0, false))
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindProcessGone})
	assert.Equal(t, []string{"kill"}, f.j.all())
}

func TestUnresponsive_TestRunnerTakesPrecedenceOverDebugging(t *testing.T) {
	f := newFixture(t, Modes{TestRunner: true, DevHost: true}, answer(0, false))
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive})
	assert.Equal(t, []string{"kill"}, f.j.all())
}

func TestProcessGone_Prompt(t *testing.T) {
	f := newFixture(t, Modes{}, answer(0, true))
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindProcessGone, Reason: "crashed", ExitCode: 139})

	assert.Equal(t, []string{"prompt", "destroy(reopen,discard)"}, f.j.all())
	require.Len(t, f.prompts, 1)
	assert.Equal(t, []string{"Reopen", "Close"}, f.prompts[0].Buttons)
	assert.Equal(t, "The window terminated unexpectedly (reason: 'crashed', code: '139')", f.prompts[0].Message)
}

func TestProcessGone_EmptyWindowOffersNewWindow(t *testing.T) {
	f := newFixture(t, Modes{}, answer(1, false))
	f.target.workspace = false
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindProcessGone})

	require.Len(t, f.prompts, 1)
	assert.Equal(t, []string{"New Window", "Close"}, f.prompts[0].Buttons)
	assert.Empty(t, f.prompts[0].CheckboxLabel)
	assert.Equal(t, "The window terminated unexpectedly", f.prompts[0].Message)
	assert.Equal(t, []string{"prompt", "destroy(close)"}, f.j.all())
}

func TestLoadFailed_PromptsEvenInSmokeTest(t *testing.T) {
	f := newFixture(t, Modes{SmokeTest: true}, answer(1, false))
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindLoadFailed, Reason: "ERR_FILE_NOT_FOUND", ExitCode: -6})

	require.Len(t, f.prompts, 1)
	assert.Contains(t, f.prompts[0].Message, "failed to load")
	assert.Equal(t, []string{"prompt", "destroy(close)"}, f.j.all())
}

func TestResponsive_StopsSampling(t *testing.T) {
	f := newFixture(t, Modes{}, answer(0, false))
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindResponsive})
	assert.Equal(t, []string{"sampler.stop"}, f.j.all())
}

func TestPrompt_WindowGoneWhileOpen(t *testing.T) {
	var f *fixture
	f = newFixture(t, Modes{}, func(dialog.Options) (dialog.Result, error) {
		f.target.invalidate()
		return dialog.Result{Response: 0}, nil
	})
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindProcessGone})

	assert.Equal(t, 0, f.j.count("destroy"))
}

func TestHandle_InvalidTargetIgnored(t *testing.T) {
	f := newFixture(t, Modes{SmokeTest: true}, answer(0, false))
	f.target.invalidate()
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindProcessGone})
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive})
	assert.Empty(t, f.j.all())
}

func TestPrompt_DuplicateUnresponsiveWhileShowing(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	f := newFixture(t, Modes{}, func(dialog.Options) (dialog.Result, error) {
		once.Do(func() { close(entered) })
		<-release
		return dialog.Result{Response: 1}, nil
	})

	done := make(chan struct{})
	go func() {
		f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive})
		close(done)
	}()
	<-entered
	f.c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindUnresponsive})
	close(release)
	<-done

	assert.Equal(t, 1, f.j.count("prompt"))
	assert.Equal(t, 1, f.j.count("destroy"))
}

func TestPrompt_TimeoutUsesCancel(t *testing.T) {
	j := &journal{}
	target := &fakeTarget{j: j, valid: true}
	c, err := New(Options{
		Target:    target,
		Sampler:   fakeSampler{j: j},
		Lifecycle: fakeLifecycle{j: j},
		Dialog: dialog.Func(func(ctx context.Context, _ dialog.Options) (dialog.Result, error) {
			<-ctx.Done()
			return dialog.Result{}, ctx.Err()
		}),
		PromptTimeout: 10 * time.Millisecond,
		Logger:        slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	c.Handle(context.Background(), surface.FailureEvent{Kind: surface.KindProcessGone})
	assert.Equal(t, []string{"destroy(close)"}, j.all())
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}
