package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrUnknownTask is returned when a task name has no registered entry.
// There is no dynamic resolution fallback; every runnable task is
// registered at startup.
var ErrUnknownTask = errors.New("task not found in registry")

// Params are the keyword arguments a task is invoked with.
type Params map[string]string

// Require returns the named parameter or an error naming what is missing.
func (p Params) Require(key string) (string, error) {
	value := p[key]
	if value == "" {
		return "", fmt.Errorf("task requires a %q parameter, e.g. %s=...", key, key)
	}
	return value, nil
}

// List splits a comma-separated parameter into its values.
func (p Params) List(key string) []string {
	value := p[key]
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Bool reports whether the named parameter is set to "true".
func (p Params) Bool(key string) bool {
	return p[key] == "true"
}

// Func is one runnable task. It returns a short human-readable status
// string summarizing what was fetched and upserted.
type Func func(ctx context.Context, params Params) (string, error)

// Registry is a static mapping from task name to function, populated at
// startup.
type Registry struct {
	mu     sync.RWMutex
	tasks  map[string]Func
	logger *logrus.Logger
}

func NewRegistry(logger *logrus.Logger) *Registry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Registry{
		tasks:  make(map[string]Func),
		logger: logger,
	}
}

// Register adds a task under the given name, replacing any previous entry.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[name] = fn
}

// Names returns the registered task names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named task and returns its status string. Every run
// gets a correlation id so scheduler and CLI invocations are traceable in
// the logs.
func (r *Registry) Run(ctx context.Context, name string, params Params) (string, error) {
	r.mu.RLock()
	fn, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownTask)
	}

	runID := uuid.NewString()
	fields := logrus.Fields{"task": name, "run_id": runID}
	r.logger.WithFields(fields).Info("Executing task")

	start := time.Now()
	status, err := fn(ctx, params)
	fields["duration"] = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		r.logger.WithFields(fields).Errorf("Task failed: %v", err)
		return "", err
	}
	r.logger.WithFields(fields).Infof("Task finished: %s", status)
	return status, nil
}
