/*
Package domain contains the core models of the clapper pipeline runner.

It defines the fixed stage sequence, the closed set of stage outcome statuses,
the outcome record that is appended to a run's state sink, and the error
taxonomy shared by every layer. This package is kept pure and free of I/O,
following the same hexagonal split as the rest of the module.

# Key Entities

  - StageName: identifies one stage and its fixed position in the sequence.
  - Status: SKIPPED, DRY_RUN, SUCCESS, FAILED or TIMEOUT.
  - StageOutcome: the immutable record of how one stage was disposed of.
  - LifecycleHooks: callbacks for observability (logging, metrics).
*/
package domain
