package cron

import (
	"context"
	"errors"
	"fmt"
)

// Job is one unit of scheduled maintenance.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order. Names are unique so metrics
// and the worker's job filter can address them.
type Registry struct {
	jobs  []Job
	index map[string]int
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{index: map[string]int{}}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return errors.New("cron job is nil")
	}
	name := job.Name()
	if name == "" {
		return errors.New("cron job name is required")
	}
	if _, dup := r.index[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.index[name] = len(r.jobs)
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

// Select returns the named jobs in registration order. No names selects all.
func (r *Registry) Select(names ...string) ([]Job, error) {
	if len(names) == 0 {
		return r.Jobs(), nil
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := r.index[name]; !ok {
			return nil, fmt.Errorf("unknown cron job %q", name)
		}
		want[name] = true
	}
	selected := make([]Job, 0, len(want))
	for _, job := range r.jobs {
		if want[job.Name()] {
			selected = append(selected, job)
		}
	}
	return selected, nil
}
