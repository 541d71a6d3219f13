package event

import (
	"errors"
	"fmt"

	"github.com/dshills/actionbus/internal/event/topic"
)

// recorder collects handler calls in delivery order.
type recorder struct {
	calls []string
}

func (r *recorder) handler(name string) *FuncHandler {
	return Func(func(payload any) error {
		r.calls = append(r.calls, fmt.Sprintf("%s:%v", name, payload))
		return nil
	})
}

func (r *recorder) prefixHandler(name string) *PrefixFuncHandler {
	return PrefixFunc(func(t topic.Topic, payload any) error {
		r.calls = append(r.calls, fmt.Sprintf("%s:%s:%v", name, t, payload))
		return nil
	})
}

// fakeScheduler records scheduler requests and runs them on demand.
type fakeScheduler struct {
	calls   int
	pending []func() error
}

func (s *fakeScheduler) ScheduleOnceHighPriority(fn func() error) {
	s.calls++
	s.pending = append(s.pending, fn)
}

// runIdle runs the callbacks requested so far, like a host idle point.
func (s *fakeScheduler) runIdle() error {
	fns := s.pending
	s.pending = nil
	var errs []error
	for _, fn := range fns {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}
