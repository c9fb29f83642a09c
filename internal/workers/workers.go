// SPDX-License-Identifier: Apache-2.0

// Package workers runs the service's background maintenance loops.
// It defines the Worker interface and a Workers aggregate that starts
// every registered worker in its own goroutine.
package workers

// Worker is one background loop. Run blocks until Stop is called.
type Worker interface {
	Run()
	Stop()
}

// Workers aggregates the registered background workers.
type Workers struct {
	workers []Worker
}

// NewWorkers bundles the given workers.
func NewWorkers(workers ...Worker) *Workers {
	return &Workers{workers: workers}
}

// Run launches every worker in its own goroutine and returns.
func (w *Workers) Run() {
	for _, worker := range w.workers {
		go worker.Run()
	}
}

// Stop signals every worker to finish.
func (w *Workers) Stop() {
	for _, worker := range w.workers {
		worker.Stop()
	}
}
