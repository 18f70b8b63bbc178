// Package authz carries the identity a visibility decision is made for.
//
// Core concepts:
//
//   - Principal: A single identity per request (Anonymous/User/Service/System).
//     Set via WithPrincipal or one of the New*Context helpers.
//
//   - Identity is not authentication: the principal is taken from a trusted header
//     set by the fronting gateway (see ParsePrincipal). Nothing here verifies credentials.
//
// Usage rules:
//
//  1. Each context carries at most one principal; WithPrincipal rejects a conflicting one.
//  2. Code that needs an identity and finds none should treat the caller as anonymous.
//  3. Background tasks must declare the System principal via NewSystemContext.
package authz
