// Package server runs the gin engine behind an h2c handler and carries the
// middleware and error mapping shared by every route.
//
//	srv := server.New(cfg.HTTP, log)
//	srv.ApplyMiddleware(metrics)
//	api.Register(srv.GinEngine(), handlers)
//	registry.Register(server.NewComponent(srv))
package server
