// Package connectors holds the clients for remote systems tdsync pulls from.
// Each connector implements driven.ProviderClient and driven.Authenticator
// for one provider; timedoctor is the only one today.
package connectors
