// Package datamap converts between dynamically typed nested maps and JSON
// documents without losing type information.
//
// # Overview
//
// JSON has no native representation for timestamps or binary data, so the
// package tags map keys with a reserved suffix when the value needs one:
// a time.Time value under key "modified" is written as "modified@ISOtime"
// holding ISO-8601 instant text, and a []byte value under key "icon" is
// written as "icon@base64" holding base64 text. Reading strips the suffix
// and restores the original type. The suffixes are a wire contract: any
// consumer parsing the stored JSON directly can rely on them.
//
// # Supported value kinds
//
// Maps may hold nil, booleans, signed and unsigned integers (widened to
// int64 on a round trip), float32/float64, strings, time.Time, []byte,
// slices, and nested map[string]any values. Anything else is a conversion
// error, never a silent drop.
//
// # Lossy edge cases
//
// Two documented asymmetries survive a round trip: narrow integers come
// back as int64, and a float64 with an integral value is written without
// a decimal point and comes back as int64. A second round trip is a
// fixed point; there is no further drift.
//
// A map key that legitimately ends with "@ISOtime" or "@base64" but holds
// an unrelated value type is not supported; the tagging is ambiguous for
// such keys.
package datamap
