package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/avoskres/loankeeper/internal/client/models"
)

// List prints the cached records of one collection. Reads never block on
// the network; a warm cache is reconciled in the background.
func (a *App) List(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: list <clients|loans|payments|payment_schedule>")
		return
	}

	table, err := models.ParseTable(args[0])
	if err != nil {
		log.Println(err.Error())
		return
	}

	rows, err := a.data[table].Fetch(ctx, false)
	if err != nil {
		log.Println(err.Error())
		return
	}

	for _, row := range rows {
		fmt.Println(string(row))
	}
	fmt.Printf("%d record(s)\n", len(rows))
}
