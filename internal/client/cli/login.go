package cli

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/avoskres/loankeeper/internal/client/remote"
)

// Login prompts for credentials and signs in against the backend. When the
// server is unreachable the client keeps working against the local cache;
// queued writes will carry the session obtained on the next successful login.
func (a *App) Login(ctx context.Context) {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	password, err := GetPassword(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	err = a.remote.SignIn(ctx, email, string(password))
	if err != nil {
		if errors.Is(err, remote.ErrUnavailable) {
			log.Println("Server unavailable, continuing in offline mode")
			a.userName = email
			return
		}
		log.Printf("Login unsuccessful: %s", err.Error())
		return
	}

	log.Println("Login successful")
	a.userName = email
	a.monitor.SetOnline(ctx, true)
}
