// client/go/locker-client/example/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	lockerclient "github.com/avivl/locker/client/go/locker-client"
)

const leaseSeconds = 15

// runTasks simulates work that must only happen while the lock is held
func runTasks(ctx context.Context) {
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	fmt.Println("🚀 Started exclusive tasks")

	for {
		select {
		case <-ticker.C:
			fmt.Println("⚙️  Performing exclusive task...")
		case <-ctx.Done():
			fmt.Println("⏹️  Exclusive tasks stopped")
			return
		}
	}
}

func main() {
	// Parse command line arguments or use defaults
	baseURL := lockerclient.DefaultBaseURL
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}

	lockID := "example-job"
	if len(os.Args) > 2 {
		lockID = os.Args[2]
	}

	// Create a context that will be canceled on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := lockerclient.NewConfig(os.Getenv("LOCKER_CLIENT_USERNAME"), os.Getenv("LOCKER_CLIENT_PASSWORD"))
	cfg.BaseURL = baseURL

	client, err := lockerclient.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	fmt.Printf("🔄 Waiting for lock %s on %s\n", lockID, baseURL)

	lock, err := client.AcquireLock(ctx, lockID, leaseSeconds, "locker example", 30*time.Second)
	if errors.Is(err, lockerclient.ErrAcquireTimeout) {
		fmt.Println("🔄 Lock is held elsewhere. Try again later.")
		return
	}
	if err != nil {
		log.Fatalf("Failed to acquire lock: %v", err)
	}
	token := lock.OwnershipToken()
	fmt.Printf("🔒 Acquired %s (token %s)\n", lock, token)

	taskCtx, cancelTasks := context.WithCancel(ctx)
	defer cancelTasks()
	go runTasks(taskCtx)

	// Renew well before the lease runs out
	renewTicker := time.NewTicker(leaseSeconds * time.Second / 2)
	defer renewTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\n🛑 Shutting down...")
			cancelTasks()

			fmt.Println("🔓 Releasing lock...")
			if _, err := client.ReleaseLock(context.Background(), lockID, token, false); err != nil {
				log.Printf("Failed to release lock: %v", err)
			}
			return

		case <-renewTicker.C:
			renewed, err := client.RenewLock(ctx, lockID, token, leaseSeconds)
			if errors.Is(err, lockerclient.ErrOwnershipMismatch) {
				fmt.Println("❌ Lock LOST! Stopping exclusive tasks...")
				return
			}
			if err != nil {
				log.Printf("Warning: Failed to renew lock: %v", err)
				continue
			}
			fmt.Printf("✅ Still holding %s. Lease: %ds\n", renewed, renewed.TTL())
		}
	}
}
