// Package index builds the in-memory relational index served by /api/index.
//
// Location features are grouped per location and split into buckets that carry
// both works and grants, works only or grants only. Each category is indexed
// into its own IndexSet of locations, works, grants and experts, linked in
// every direction. A final pass rolls sub-national locations up into the
// location named after their country.
package index
