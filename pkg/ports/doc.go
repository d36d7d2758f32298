/*
Package ports defines the driven ports (interfaces) of the clapper runner.

These interfaces decouple the stage executor from the concrete ways stages are
run and outcomes are recorded, so tests can substitute mock tasks and
in-memory sinks without touching the executor.

# Key Interfaces

  - Task: one external unit of work, contracted only by its exit code.
  - StateSink: the append-only record of stage outcomes for a run.
*/
package ports
