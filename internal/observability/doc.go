// Package observability builds the zap loggers shared by the gateway, auth
// and app processes and carries request-scoped fields through a context.
package observability
