package infra

import (
	"context"
	"strings"
	"sync"
)

// fakeCall records one CommandRunner invocation.
type fakeCall struct {
	Method string
	Name   string
	Args   []string
}

func (c fakeCall) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// fakeRunner is a test double for CommandRunner. Replies are keyed by the
// command name; unknown commands succeed with empty output.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []fakeCall
	outputs map[string][]byte
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: make(map[string][]byte),
		errs:    make(map[string]error),
	}
}

func (r *fakeRunner) reply(name string, out string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[name] = []byte(out)
	r.errs[name] = err
}

func (r *fakeRunner) record(method, name string, args []string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fakeCall{Method: method, Name: name, Args: append([]string(nil), args...)})
	return r.outputs[name], r.errs[name]
}

func (r *fakeRunner) Calls() []fakeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]fakeCall(nil), r.calls...)
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.record("run", name, args)
	return err
}

func (r *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.record("output", name, args)
}

func (r *fakeRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return r.record("combined", name, args)
}

func (r *fakeRunner) Start(name string, args ...string) error {
	_, err := r.record("start", name, args)
	return err
}

var _ CommandRunner = (*fakeRunner)(nil)
