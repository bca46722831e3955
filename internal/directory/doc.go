// Package directory implements the DefLink business operations: OEM requests,
// provider profiles and the shared OEM password.
//
// # Collections
//
// OEM requests and provider profiles are entity.Indexed collections. Requests
// are listed newest first; providers are listed alphabetically by company
// name, and the public listing only shows published (freigeschaltet)
// profiles.
//
// # Validation
//
// Submissions and admin patches are checked against struct tags with
// github.com/go-playground/validator/v10. Every failure is returned as a
// *ValidationError, which matches ErrValidation and names the missing
// fields:
//
//	required fields missing: ansprechpartner, betreff
//
// # Seed Data
//
// The demo dataset under seed/ is embedded and written once per collection
// when Options.Seed is set. The settings record holding the password hash is
// seeded regardless.
package directory
