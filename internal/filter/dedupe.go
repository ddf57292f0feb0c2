package filter

import (
	"github.com/vburojevic/eruption-sensor/internal/domain"
)

// IsNew reports whether candidate differs from the last delivered event.
// A nil last means nothing has been delivered yet.
func IsNew(candidate domain.FocusEvent, last *domain.FocusEvent) bool {
	return last == nil || *last != candidate
}

// DedupeFilter suppresses events identical to the last one confirmed as
// delivered. Suppression is by value only; there is no time window.
//
// The filter is owned by a single delivery sink and is not safe for
// concurrent use.
type DedupeFilter struct {
	last *domain.FocusEvent // LastDelivered slot
}

// NewDedupeFilter creates a new deduplication filter
func NewDedupeFilter() *DedupeFilter {
	return &DedupeFilter{}
}

// Check reports whether the event should be delivered. It has no side
// effects; call Commit after a confirmed write.
func (f *DedupeFilter) Check(event domain.FocusEvent) bool {
	return IsNew(event, f.last)
}

// Commit records event as the last successfully delivered event.
func (f *DedupeFilter) Commit(event domain.FocusEvent) {
	f.last = &event
}

// Last returns the last delivered event, if any.
func (f *DedupeFilter) Last() (domain.FocusEvent, bool) {
	if f.last == nil {
		return domain.FocusEvent{}, false
	}
	return *f.last, true
}
