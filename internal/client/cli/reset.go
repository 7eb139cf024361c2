package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

// Reset wipes the local cache and sync marks, then refetches everything when
// online. Queued unsynced writes are preserved.
func (a *App) Reset(ctx context.Context) {
	answer, err := GetSimpleText(a.reader, "Wipe the local cache? Pending writes are kept. (y/N)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	if strings.ToLower(answer) != "y" {
		fmt.Println("Cancelled")
		return
	}

	if err := a.repos.ClearCache(ctx); err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Println("Local cache cleared")

	if !a.monitor.IsOnline() {
		fmt.Println("Offline: the cache will refill on the next sync")
		return
	}

	result, err := a.engine.DownloadAll(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Downloaded %d record(s)\n", result.Synced)
}
