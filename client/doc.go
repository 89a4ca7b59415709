// Package client provides a remote client for a capsule server.
//
// It exposes the same operations as a local vault, over HTTP: key
// management, sealing and opening capsules, verification, export and
// import, webhook registration, and watching for unlocks. Results use
// the root package's types, and failures match the root package's
// sentinel errors through errors.Is.
//
// Basic usage:
//
//	c, err := client.New("http://localhost:8475")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	capsule, err := c.CreateCapsule(ctx, "see you in 2030", "2030-01-01")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_, err = c.DecryptCapsule(ctx, capsule.Index)
//	if errors.Is(err, chronoseal.ErrTimeLocked) {
//	    fmt.Println("still sealed")
//	}
//
// Watching for unlocks prefers the server's event stream and falls
// back to polling:
//
//	events, err := c.WatchUnlocks(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    select {
//	    case ev := <-events:
//	        fmt.Println("capsule", ev.Index, "is unlockable")
//	    case <-ctx.Done():
//	        return
//	    }
//	}
package client
