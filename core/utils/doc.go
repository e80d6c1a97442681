// Package utils provides loose scalar conversion for values decoded from JSON.
//
// Upstream records, LLM output and cached hashes disagree on whether a confidence
// is 87, 87.5 or "87%", and whether an id is a number or a string. The helpers here
// normalise those without returning errors; ParseFloat additionally reports whether
// a value was numeric at all.
package utils
