package planexec

import "errors"

var (
	// ErrNotAuthorized is returned when authorization.status != Approved.
	ErrNotAuthorized = errors.New("planexec: not authorized")

	// ErrPlanIDMismatch is returned when authorization.plan_id != plan.plan_id.
	ErrPlanIDMismatch = errors.New("planexec: plan id mismatch")
)
