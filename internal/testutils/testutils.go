// Package testutils provides testing utilities shared by the package
// test suites: a quartz-backed mock clock adapter and a concurrency-safe
// error collector for asserting on contained task failures.
package testutils

import (
	"sync"

	"github.com/ajrodado/workcrew/pkg/types"
)

// ErrorCollector records every error reported through it. It implements
// the types.ErrorHandler side channel so tests can assert on failures the
// schedulers contain.
type ErrorCollector struct {
	mu     sync.Mutex
	errors []error
}

// NewErrorCollector creates an empty collector
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{}
}

// Handler returns the collector as a types.ErrorHandler
func (c *ErrorCollector) Handler() types.ErrorHandler {
	return func(err error) error {
		c.mu.Lock()
		c.errors = append(c.errors, err)
		c.mu.Unlock()
		return nil
	}
}

// Errors returns a snapshot of the collected errors
func (c *ErrorCollector) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]error, len(c.errors))
	copy(out, c.errors)
	return out
}

// Count returns the number of collected errors
func (c *ErrorCollector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errors)
}
