// Package pipeline runs an ordered list of stages against a state sink.
//
// The Executor walks the stages strictly in order and one at a time. Each
// stage ends in exactly one outcome, which is appended to the sink before the
// next stage is considered. The first failure of a critical stage hands
// control to the abort path, which stops the loop; the caller decides what
// to do with the Result.
package pipeline
