// Package timedoctor implements the Time Doctor provider client.
//
// The client fetches users, projects, tasks and worklogs page by page from
// the Time Doctor REST API. Each request carries the access token supplied
// by a driven.TokenProvider; a rejected token triggers exactly one forced
// refresh and one retry. Transient failures (network errors, 5xx, 429) are
// retried with the shared fixed-delay policy; other 4xx responses are
// returned immediately.
//
// Authenticator exchanges the configured account email and password for an
// access token through the login endpoint.
package timedoctor
