// Package admission decides, per incoming request, whether to admit or reject
// it under abuse and overload conditions, coordinating through a shared Redis
// store so the decision is consistent across many concurrently running
// request handlers and processes.
//
// The primary entry point is the Engine:
//
//	dec := engine.Admit(ctx, admission.Identity{RemoteAddr: addr, CallerID: user})
//
// The returned Decision contains whether the request is allowed, the effective
// limit, how much quota remains, and timing hints for callers that want to set
// rate-limit headers (for example, Retry-After).
//
// # Overview
//
// A request flows through three stages:
//
//   - A KeyStrategy derives a stable bucket key from the request's identity
//     attributes (address, caller, target route).
//   - The Overrides layer short-circuits allow-listed identities and
//     re-weights deny-listed ones.
//   - A Limiter evaluates admission against the shared counter store.
//
// # Limiters
//
// Four limiters compose freely behind the same Check API:
//
//   - FixedWindow: one atomic counter per (key, window). O(1) storage,
//     cheapest, but bursty at window boundaries.
//   - SlidingWindow: a timestamp log per key. Smooth admission — no trailing
//     window ever contains more than the limit — at O(limit) storage.
//   - Progressive: wraps either of the above and tightens limit and window
//     for repeat offenders, driven by a violation counter with its own 24h
//     expiry and a 4x strictness cap.
//   - Composite: chains a short burst allowance with a longer sustained one,
//     each with its own namespace and independent state.
//
// # Backends
//
// The store behind the limiters is the CounterStore interface with two
// implementations:
//
//   - MemoryStore: an in-process store backed by Go maps. Useful for unit
//     tests, local development, and single-instance deployments. Because its
//     state is local to the process, it does not enforce a global limit
//     across multiple replicas.
//
//   - RedisStore: a distributed store backed by Redis. Every operation is a
//     Lua script, so the read/compute/write cycle is atomic and safe across
//     many application instances enforcing a single global budget per key.
//     A non-atomic get-then-increment-then-expire sequence would undercount
//     under concurrent bursts; the scripts exist to rule that out.
//
// Recommendation: use RedisStore in production when you need a global limit,
// and MemoryStore in tests as a fast, dependency-free stand-in.
//
// # Failure Policy
//
// The engine fails open: when the store is unreachable or times out, checks
// admit the request, log the failure and bump the admission.fail_open metric.
// An admission-control outage must never become a total-service outage; this
// is a deliberate availability-over-strictness tradeoff. Misconfiguration
// (zero or negative limits or windows) is rejected at construction time, so
// no per-request path ever deals with it. Denial itself is not an error: it
// is a normal outcome carried by the Decision.
//
// # Concurrency
//
// The engine runs inline in each request-handling goroutine and holds no
// long-lived locks or cross-request state; all mutation is expressed as
// atomic single-key operations against the store. No ordering is guaranteed
// between concurrent requests for the same key beyond what those operations
// provide.
//
// # HTTP Adapter
//
// Middleware adapts an Engine to net/http. It extracts the client identity
// (optionally trusting X-Forwarded-For), writes RateLimit-* and/or
// X-RateLimit-* headers on every response, answers denials with 429 plus
// Retry-After and a human-readable message, and supports skip-on-success /
// skip-on-failure compensating decrements based on the response status. A
// custom deny response can be injected via the LimitHandler interface.
//
// # Configuration
//
// RedisStore and the limiters use the Functional Options pattern:
//
//	store, _ := admission.NewRedisStore(client,
//		admission.WithPrefix("myapp:adm:"),
//		admission.WithTimeout(2*time.Second),
//	)
//	lim, _ := admission.NewFixedWindow(store, "api", admission.Policy{Limit: 100, Window: time.Minute},
//		admission.WithLogger(logger),
//		admission.WithRecorder(metrics),
//	)
//
// # Limitations and Notes
//
//   - Decision.Remaining reports post-admission state: an admitted request is
//     already counted against the quota it reports.
//   - RedisStore uses EVALSHA; if Redis is restarted and its script cache is
//     cleared, operations may return a NOSCRIPT error until the store is
//     recreated (NewRedisStore reloads the scripts).
//   - The sliding window tolerates slight over-admission if the store races;
//     it never under-denies.
//   - MemoryStore does not evict idle keys eagerly; expiry is enforced on
//     access. For long-lived processes with high-cardinality keys use
//     RedisStore.
package admission
