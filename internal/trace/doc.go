// Package trace records what secpbuild does while preparing the native build.
//
// Enable tracing via command-line flags:
//
//	secpbuild build --trace=- --trace-level=detail
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Only failures
//   - LevelPhase: Driver and stage boundaries (identify, resolve, probe, compile, archive)
//   - LevelDetail: Per source file events
//   - LevelDebug: Everything including individual tool invocations
//
// # Context Propagation
//
// Tracers travel with the build context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeStage, "probe", parentID)
//	defer span.End("")
//
// A Heartbeat keeps emitting events while a compiler subprocess blocks, so a
// hung toolchain is visible in the trace.
package trace
