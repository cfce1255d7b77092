package overlay

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrInjected is the default failure returned by Recorder when a create or
// destroy is configured to fail.
var ErrInjected = errors.New("injected driver failure")

// Recorder is an in-memory Driver. It backs the daemon's --dry-run mode and
// the engine tests.
type Recorder struct {
	mu        sync.Mutex
	next      Handle
	live      map[Handle]Spec
	failWhen  func(Spec) error
	failDrop  map[Handle]error
	created   int
	destroyed int
}

var _ Driver = (*Recorder)(nil)

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		next:     1,
		live:     make(map[Handle]Spec),
		failDrop: make(map[Handle]error),
	}
}

// FailCreate installs a predicate consulted on every Create. A non-nil
// return value fails that create.
func (r *Recorder) FailCreate(fn func(Spec) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWhen = fn
}

// FailDestroy makes the next Destroy of h return err. The surface is still
// removed, matching a window system that errors after releasing.
func (r *Recorder) FailDestroy(h Handle, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	r.failDrop[h] = err
}

// Lose drops h as if the window system invalidated it on its own.
func (r *Recorder) Lose(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, h)
}

func (r *Recorder) Create(spec Spec) (Handle, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWhen != nil {
		if err := r.failWhen(spec); err != nil {
			return 0, err
		}
	}
	h := r.next
	r.next++
	r.live[h] = spec
	r.created++
	return h, nil
}

func (r *Recorder) Destroy(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.failDrop[h]; ok {
		delete(r.failDrop, h)
		delete(r.live, h)
		return err
	}
	if _, ok := r.live[h]; !ok {
		return fmt.Errorf("%w: handle %d", ErrSurfaceGone, h)
	}
	delete(r.live, h)
	r.destroyed++
	return nil
}

// Live returns a copy of the live surfaces.
func (r *Recorder) Live() map[Handle]Spec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Handle]Spec, len(r.live))
	for h, s := range r.live {
		out[h] = s
	}
	return out
}

// Handles returns live handles in creation order.
func (r *Recorder) Handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Handle, 0, len(r.live))
	for h := range r.live {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Counts returns the number of successful creates and destroys so far.
func (r *Recorder) Counts() (created, destroyed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.created, r.destroyed
}
