// Package preference gates notification delivery by user policy. The
// Resolver answers a single question: may this (user, notification
// type, channel) triple send right now?
//
// A stored preference wins over everything: mute denies, an unexpired
// snooze denies, otherwise the enabled flag decides. When no preference
// is stored the conservative default applies: only transactional and
// system notifications on the email channel are allowed.
//
// The resolver is consulted twice per delivery: at submission, so a
// blocked notification never takes a queue slot, and again by the
// worker right before the provider call, because preferences can change
// while a job waits in the queue.
package preference
