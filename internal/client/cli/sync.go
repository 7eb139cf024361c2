package cli

import (
	"context"
	"fmt"
	"log"
)

// Sync replays the offline queue and runs an incremental pull for every
// collection.
func (a *App) Sync(ctx context.Context) {
	result, err := a.engine.SyncAll(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}

	if result.Success {
		fmt.Printf("Synced %d record(s)\n", result.Synced)
		return
	}
	fmt.Printf("Sync finished with errors: %d synced, %d failed\n", result.Synced, result.Errors)
	if result.Message != "" {
		fmt.Println(result.Message)
	}
}

// Download discards incremental state and refetches every collection in
// full.
func (a *App) Download(ctx context.Context) {
	result, err := a.engine.DownloadAll(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Downloaded %d record(s)\n", result.Synced)
}
