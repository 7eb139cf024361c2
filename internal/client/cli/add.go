package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/avoskres/loankeeper/internal/client/models"
)

// Add records a new entity local-first. The write lands in the cache and the
// offline queue in one step, so it survives a crash and replays once the
// device is online.
func (a *App) Add(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: add <client|loan|payment>")
		return
	}

	switch args[0] {
	case "client":
		a.addClient(ctx)
	case "loan":
		a.addLoan(ctx)
	case "payment":
		a.addPayment(ctx)
	default:
		fmt.Println("Usage: add <client|loan|payment>")
	}
}

func (a *App) addClient(ctx context.Context) {
	name, err := GetSimpleText(a.reader, "Full name", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	phone, err := GetSimpleText(a.reader, "Phone (optional)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	id, err := a.data[models.TableClients].Add(ctx, models.Client{FullName: name, Phone: phone})
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Client saved: %s\n", id)
}

func (a *App) addLoan(ctx context.Context) {
	clientID, err := GetSimpleText(a.reader, "Client id", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	amount, err := a.readAmount("Amount")
	if err != nil {
		log.Println(err.Error())
		return
	}

	id, err := a.data[models.TableLoans].Add(ctx, models.Loan{ClientID: clientID, Amount: amount, Status: "pending"})
	if err != nil {
		log.Println(err.Error())
		return
	}
	fmt.Printf("Loan saved: %s\n", id)
}

func (a *App) addPayment(ctx context.Context) {
	loanID, err := GetSimpleText(a.reader, "Loan id", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}
	amount, err := a.readAmount("Amount")
	if err != nil {
		log.Println(err.Error())
		return
	}
	method, err := GetSimpleText(a.reader, "Method (cash/transfer)", os.Stdout)
	if err != nil {
		log.Println(err.Error())
		return
	}

	id, err := a.data[models.TablePayments].Add(ctx, models.Payment{LoanID: loanID, Amount: amount, Method: method})
	if err != nil {
		log.Println(err.Error())
		return
	}

	pending, _ := a.data[models.TablePayments].PendingCount(ctx)
	fmt.Printf("Payment saved: %s (%d pending sync)\n", id, pending)
}

func (a *App) readAmount(prompt string) (float64, error) {
	text, err := GetSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		return 0, err
	}
	amount, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", text)
	}
	return amount, nil
}
