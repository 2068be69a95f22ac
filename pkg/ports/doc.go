/*
Package ports defines the driven ports (interfaces) of the rotation engine.

These interfaces decouple the rotation logic from the systems that hold its
state, so the same deployer runs against SSM Parameter Store, Redis, a local
file or memory.

# Key Interfaces

  - StateStore: Load and Save the single RotationState record. Last writer wins.
  - VersionedStateStore: a StateStore that can reject a write when the record
    changed since it was read.
  - DistributedLocker: serializes deployment runs sharing the same state key.
*/
package ports
