// Package template renders notification content from stored templates
// with mustache-style {{path}} interpolation, falling back to
// caller-supplied literal content when no template applies.
//
// Rendering never fails on a missing template or a missing variable:
// an absent template key or an unmatched (key, channel, locale) triple
// yields the fallback content unchanged, and unresolved placeholders
// render as empty strings. Subject and body are interpolated
// independently.
package template
