// Package api provides the token-protected HTTP server exposing the poller.
//
// Key components:
//   - API: Manages server setup, endpoint registration and graceful shutdown.
//   - RequireToken: Wraps handlers with bearer token validation.
//
// Usage example:
//
//	server := api.New("secure-token", ":8080")
//	server.RegisterHandler(pluginHandler.Pattern, pluginHandler)
//	if err := server.Start(ctx, true); err != nil {
//	    logrus.WithError(err).Error("API start failed")
//	}
//
// Handlers live in subpackages: plugin serves plugin requests, metrics exposes Prometheus
// metrics and poll triggers watch cycles.
package api
