// Package drive implements a multi tenant file vault service: credential,
// OAuth, and magic link sign in, stateless JWT sessions, per user file
// records, and billing state delegated to an external payment processor.
package drive
