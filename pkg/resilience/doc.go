// Package resilience provides the request executor used for every call to the
// market-data API, plus the circuit breaker that guards the LLM client.
//
// # Candidate Executor
//
// An Operation names a set of base URLs, path templates and identifier
// spellings. The executor expands them into an ordered candidate list (base
// URL slowest, path template fastest) and tries each candidate up to
// MaxRetries+1 times with exponential backoff and jitter, returning the
// first successful payload.
//
//	exec := resilience.NewExecutor(resilience.DefaultConfig(),
//		resilience.WithTransport(resilience.NewRestyTransport(client)),
//		resilience.WithLogger(logger),
//	)
//
//	res, err := exec.Execute(ctx, resilience.Operation{
//		Name:          "ranking_gainers",
//		Templates:     []string{"/ranking/{chain}/gainers"},
//		Substitutions: resilience.Combine(resilience.Dimension{Name: "chain", Values: []string{"solana", "sol"}}),
//	})
//	var exhausted *resilience.ExhaustedError
//	if errors.As(err, &exhausted) {
//		// every candidate failed; exhausted.Reports has one entry per candidate
//	}
//
// Responses are classified by a Classifier. DefaultClassifier retries
// transport errors, non-2xx statuses and rate-limit markers embedded in 2xx
// bodies, and moves straight to the next candidate on unparseable JSON or an
// embedded error status.
//
// Waits go through a Sleeper and randomness through a RandomSource so tests
// can observe backoff without real delays.
//
// # Circuit Breaker
//
// The circuit breaker stops calling a dependency that keeps failing and
// probes it again after a cool-down.
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//		Name:        "llm",
//		MaxRequests: 1,
//		Timeout:     time.Minute,
//	})
//
//	result, err := cb.Execute(ctx, func(ctx context.Context) (interface{}, error) {
//		return client.Complete(ctx, prompt)
//	})
package resilience
