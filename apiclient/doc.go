// Package apiclient implements the REST collaborator interface of the
// notification backend: snapshot reads, idempotent mutations, creation
// variants and the narrow push-subscription wrappers.
//
// The backend itself is out of scope for this module; the client only
// encodes its network contract. Every response follows the
// `{success, data?, message?}` envelope and every request carries a bearer
// token obtained from a TokenSource.
package apiclient
