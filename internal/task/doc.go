// Package task defines the unit of deferred work shared by hooks, the
// broker, the scheduler, and the worker pool: the task descriptor, the
// failure taxonomy workers use to decide between retry and dead-letter,
// the bounded job history kept for observability, and the registry binding
// task types to their compute functions.
package task
