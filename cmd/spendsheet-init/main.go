// Command spendsheet-init prepares a store for first use: it creates the
// Expenses, Categories, Budgets and Settings sheets with their headers and,
// when INIT_MASTER_PASSWORD is set and no password exists yet, installs it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"spendsheet/internal/cli"
	"spendsheet/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentApp)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	led, closeLedger, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize data backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer closeLedger()

	if err := led.Provision(ctx); err != nil {
		logger.Error("Provisioning failed", log.FieldError, err)
		closeLedger()
		os.Exit(1)
	}
	fmt.Printf("Store ready (%s backend)\n", cfg.DataBackend)

	custom, err := led.CustomCategories(ctx)
	if err != nil {
		logger.Warn("Could not read categories", log.FieldError, err)
	} else if len(custom) > 0 {
		fmt.Printf("Custom categories: %s\n", strings.Join(custom, ", "))
	}

	configured, err := led.HasMasterPassword(ctx)
	if err != nil {
		logger.Error("Could not read settings", log.FieldError, err)
		closeLedger()
		os.Exit(1)
	}
	if pw := os.Getenv("INIT_MASTER_PASSWORD"); pw != "" && !configured {
		if err := led.SetMasterPassword(ctx, "", pw); err != nil {
			logger.Error("Failed to set master password", log.FieldError, err)
			closeLedger()
			os.Exit(1)
		}
		configured = true
		fmt.Println("Master password installed")
	}
	if configured {
		fmt.Println("Edits and deletes require the master password")
	} else {
		fmt.Println("No master password set: edits and deletes are open")
	}
}
