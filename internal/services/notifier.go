package services

import "project-management-api/internal/realtime"

// Notifier receives change events after a transaction commits.
type Notifier interface {
	Publish(userIDs []string, evt realtime.Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish([]string, realtime.Event) {}
