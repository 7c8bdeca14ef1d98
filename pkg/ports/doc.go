/*
Package ports defines the driven ports (interfaces) of the tubelife engine.

These interfaces decouple the engine from the outside world: where sequences
are saved and loaded from, and how concurrent writers coordinate.

# Key Interfaces

  - Host: The save/load capability of the embedding application. The engine
    calls it fire-and-forget.
  - SequenceStore: A named library of sequences (memory, file, Redis, SQLite).
  - DistributedLocker: Serializes writes to one sequence name across replicas.
*/
package ports
