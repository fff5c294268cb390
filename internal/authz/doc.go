// Package authz decides whether an identity may read a namespace's issues.
//
// # Contract
//
// Gate.HasRights sends one SubjectAccessReview asking whether the subject,
// with its groups, may get pods (core/v1) in the namespace, and returns the
// verdict. A failed API call returns *BackendError; a deny returns false with
// a nil error.
//
// IdentityResolver turns an inbound request into the (subject, groups) pair
// the gate is asked about. StaticIdentity is the only shipped resolver.
package authz
