package aula

import "errors"

// Fatal failures surfaced to callers. Soft portal failures (missing data,
// restricted threads, non-OK calendar/gallery statuses) never map to these;
// they degrade to empty or placeholder results instead.
var (
	// ErrLoginFailed means the identity-provider form chain did not reach the
	// portal landing page within the hop budget.
	ErrLoginFailed = errors.New("login failed after too many redirects")

	// ErrAccessDenied means the portal rejected the credentials during the
	// API version probe.
	ErrAccessDenied = errors.New("invalid credentials or access denied")

	// ErrAPIUnreachable means the API version probe got a status it cannot
	// act on.
	ErrAPIUnreachable = errors.New("api connection failed")

	// ErrNoActiveChild is returned by child-scoped operations, before any
	// network call, when SetActiveChild has not been called.
	ErrNoActiveChild = errors.New("no active child set: call SetActiveChild first")
)
