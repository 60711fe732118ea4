// Package fetchkit provides an ergonomic HTTP client with request/response
// interceptors, per-call timeout control, unified error classification, and
// Server-Sent Events streaming.
//
// The base Client handles configuration merging, the interceptor chains, and
// the request lifecycle. Subpackages provide protocol-specific convenience
// layers:
//
//   - rest: JSON-focused typed method wrappers (Get[T], Post[T], ...)
//   - sse: Server-Sent Events framing and connection management
//
// # Basic Usage
//
//	client, err := fetchkit.New(fetchkit.Config{
//	    BaseURL: "https://api.example.com",
//	    Headers: map[string]string{"Authorization": "Bearer my-token"},
//	    Timeout: 10 * time.Second,
//	})
//
//	resp, err := client.Get(ctx, "/users/123", nil)
//
// # Interceptors
//
// Interceptors transform every outgoing request config or incoming response,
// in registration order. A handle returned by Use can later be passed to
// Eject to remove the stage:
//
//	id := client.Interceptors.Request.Use(func(cfg *fetchkit.RequestConfig) (*fetchkit.RequestConfig, error) {
//	    cfg.Headers.Set("X-Trace", "on")
//	    return cfg, nil
//	}, nil)
//	defer client.Interceptors.Request.Eject(id)
//
// # Server-Sent Events
//
//	conn, err := client.SSE(ctx, "/events", sse.Options{
//	    OnMessage: func(ev *sse.Event) { fmt.Println(ev.Data) },
//	})
//	defer conn.Close()
package fetchkit
