/*
Package bluegreen is a blue-green rotation engine for two-slot deployments.

Every deployment target has two long-lived slots, BLUE and GREEN. A record kept in a
state store names the slot holding the current version and remembers the previous
one. Each run reads that record, decides which slot receives the requested version,
builds both slots and writes the new record back. The slot that was current keeps
serving the previous version, so rolling back is always one rotation away.

# Architecture

The decision itself is a pure function (package rotation). Everything that blocks,
retrieving and persisting the record, lives behind the ports.StateStore interface,
with adapters for memory, the filesystem, Redis and AWS Systems Manager Parameter
Store. The priming package performs the single asynchronous retrieval and hands the
result to the synchronous planning step as a value; there is no ambient context.

# Usage

	store := file.New(".bluegreen")
	d := deploy.New(store, deploy.WithKey("blue-green-state"))

	res, err := d.Run(ctx, 6, func(slot domain.Slot, version int) (deploy.Handle, error) {
		return myPlatform.Apply(slot, version)
	})
	if err != nil {
		phase, _ := deploy.FailedPhase(err)
		log.Fatalf("run failed during %s: %v", phase, err)
	}
	fmt.Println(res.Next.ActiveSlot) // GREEN

# Concurrency

Stores implementing ports.VersionedStateStore reject a commit when the record changed
since it was primed (domain.ErrConcurrentModification). Runs can additionally be
serialized with a ports.DistributedLocker such as the Redis locker.
*/
package bluegreen
