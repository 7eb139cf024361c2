package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/avoskres/loankeeper/internal/client/models"
	"github.com/avoskres/loankeeper/internal/client/repositories/metadata"
)

// Status prints connectivity, queue accounting and cache freshness.
func (a *App) Status(ctx context.Context) {
	if a.monitor.IsOnline() {
		fmt.Println("Connection: online")
	} else {
		fmt.Println("Connection: offline")
	}

	stats, err := a.engine.QueueStats(ctx)
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Queue: %d pending, %d failed, %d synced\n", stats.Pending, stats.Failed, stats.Synced)

	for _, table := range models.ManagedTables() {
		ts, err := a.repos.Metadata.GetTime(ctx, metadata.LastSyncKey(table))
		if err != nil {
			log.Println(err.Error())
			return
		}
		if ts.IsZero() {
			fmt.Printf("  %-10s never synced\n", table)
			continue
		}
		fmt.Printf("  %-10s last sync %s\n", table, ts.Local().Format("2006-01-02 15:04:05"))
	}
}
