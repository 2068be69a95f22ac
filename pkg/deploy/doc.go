/*
Package deploy runs one blue-green deployment: prime, plan, build, commit.

	d := deploy.New(store, deploy.WithLogger(logger))
	res, err := d.Run(ctx, 7, func(slot domain.Slot, version int) (deploy.Handle, error) {
		return buildService(slot.ID(), version)
	})

Plan and Build are synchronous and never touch the store. Commit writes the
planned state; when the store supports it the write is conditional on the
revision seen while priming, so two runs racing on the same key cannot silently
overwrite each other.
*/
package deploy
