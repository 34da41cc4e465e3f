// Package metrics exposes the counter sink injected into services.
package metrics

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	TaskCreated         = "todo_task_created_total"
	TaskUpdated         = "todo_task_updated_total"
	TaskDeleted         = "todo_task_deleted_total"
	TaskConfirmed       = "todo_task_confirmed_total"
	TaskCompleted       = "todo_task_completed_total"
	TaskErrors          = "todo_task_errors_total"
	AssignmentsAdded    = "todo_assignments_added_total"
	AssignmentsRemoved  = "todo_assignments_removed_total"
	NotificationsSent   = "todo_notifications_sent_total"
	NotificationsFailed = "todo_notifications_failed_total"
	UserCreated         = "todo_user_created_total"
	UserDeleted         = "todo_user_deleted_total"
	LoginAttempts       = "todo_login_attempts_total"
	DeviceRegistrations = "todo_device_registrations_total"
)

// Collector receives counter increments. Implementations must be safe for concurrent use.
type Collector interface {
	Increment(name string, labels map[string]string)
}

// Nop discards every increment.
type Nop struct{}

func (Nop) Increment(string, map[string]string) {}

// Prometheus registers one CounterVec per metric name on first use.
// The label names seen on that first use are fixed for the lifetime of the vector.
type Prometheus struct {
	registerer prometheus.Registerer

	mu       sync.Mutex
	counters map[string]*counterVec
}

type counterVec struct {
	vec    *prometheus.CounterVec
	labels []string
}

func NewPrometheus(registerer prometheus.Registerer) *Prometheus {
	return &Prometheus{
		registerer: registerer,
		counters:   make(map[string]*counterVec),
	}
}

func (p *Prometheus) Increment(name string, labels map[string]string) {
	cv, err := p.counter(name, labels)
	if err != nil {
		return
	}

	values := make([]string, len(cv.labels))
	for i, key := range cv.labels {
		values[i] = labels[key]
	}
	cv.vec.WithLabelValues(values...).Inc()
}

func (p *Prometheus) counter(name string, labels map[string]string) (*counterVec, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cv, ok := p.counters[name]; ok {
		return cv, nil
	}

	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: strings.ReplaceAll(strings.TrimSuffix(name, "_total"), "_", " "),
	}, keys)
	if err := p.registerer.Register(vec); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		vec = existing
	}

	cv := &counterVec{vec: vec, labels: keys}
	p.counters[name] = cv
	return cv, nil
}
