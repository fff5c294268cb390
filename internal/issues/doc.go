// Package issues is the issue query service: authorization-gated category
// reads over a namespace, and ungated bulk ingestion.
//
// # Read path
//
//  1. Ask the Authorizer whether the identity may read the namespace
//  2. On deny return ErrForbidden without touching storage
//  3. Load the category's objects and issues for the namespace
//  4. Attach each issue to the object that owns it
//
// # Write path
//
// StoreIssues registers the object (and linked object) of each submission,
// then stores its issue, one element at a time. The first failure stops the
// batch; what was stored before it stays stored. DedupPolicy decides whether
// re-reported findings append or refresh.
package issues
