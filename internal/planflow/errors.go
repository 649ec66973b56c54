package planflow

import "fmt"

// NotFoundError signals that an identifier did not resolve to a stored
// row. The identifying key is carried in the message for the caller.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Key)
}

// NotFound builds a NotFoundError for the given resource and key.
func NotFound(resource, key string) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: key}
}

// ConflictError signals a transition disallowed by the current state of
// the plan, naming the plan and the violated rule.
type ConflictError struct {
	PlanUUID string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("plan %s: %s", e.PlanUUID, e.Reason)
}

// Conflict builds a ConflictError for the given plan and rule.
func Conflict(planUUID, reason string) *ConflictError {
	return &ConflictError{PlanUUID: planUUID, Reason: reason}
}
