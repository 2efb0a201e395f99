package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/dispatch"
	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/types"
)

var dispatchCommand = &cobra.Command{
	Use:   "dispatch",
	Short: "Send the drafted emails of stored leads over SMTP",
	Long: `Sends one message per stored lead that has a drafted subject and body. Every message in the
batch uses the same sender credentials. Failed sends are reported and the batch continues.

With --target fixed-test-address every message goes to --test-recipient and the subject is
prefixed with "[TEST] ".`,
	RunE: runDispatchCmd,
}

var (
	dispatchStore         storeFlags
	dispatchLeadIDs       []string
	dispatchTarget        string
	dispatchTestRecipient string
	dispatchSender        string
	dispatchAppPassword   string
	dispatchSMTPHost      string
	dispatchSMTPPort      int
)

func init() {
	dispatchStore.register(dispatchCommand)

	f := dispatchCommand.Flags()
	f.StringSliceVar(&dispatchLeadIDs, "lead-id", nil, "Lead IDs to send (repeatable; default all stored leads)")
	f.StringVar(&dispatchTarget, "target", "", "Recipient policy: per-lead-address or fixed-test-address")
	f.StringVar(&dispatchTestRecipient, "test-recipient", "", "Recipient for fixed-test-address (defaults to TEST_RECIPIENT env var)")
	f.StringVar(&dispatchSender, "sender", "", "Sender address and SMTP username (defaults to SMTP_USERNAME env var)")
	f.StringVar(&dispatchAppPassword, "app-password", "", "SMTP app password (defaults to SMTP_PASSWORD env var)")
	f.StringVar(&dispatchSMTPHost, "smtp-host", "", "SMTP submission host (default smtp.gmail.com)")
	f.IntVar(&dispatchSMTPPort, "smtp-port", 0, "SMTP submission port (default 587)")

	rootCmd.AddCommand(dispatchCommand)
}

func applyDispatchFlags(cmd *cobra.Command, cfg *config.Config) {
	dispatchStore.apply(cmd, cfg)

	changed := cmd.Flags().Changed
	if changed("target") {
		cfg.DispatchTarget = dispatchTarget
	}
	if changed("test-recipient") {
		cfg.TestRecipient = dispatchTestRecipient
	}
	if changed("sender") {
		cfg.SenderEmail = dispatchSender
	}
	if changed("app-password") {
		cfg.AppPassword = dispatchAppPassword
	}
	if changed("smtp-host") {
		cfg.SMTPHost = dispatchSMTPHost
	}
	if changed("smtp-port") {
		cfg.SMTPPort = dispatchSMTPPort
	}
}

func runDispatchCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(dispatchStore.configPath, func(c *config.Config) { applyDispatchFlags(cmd, c) })
	if err != nil {
		return err
	}
	target, err := dispatch.ParseTarget(cfg.DispatchTarget)
	if err != nil {
		return err
	}
	ids, err := parseLeadIDs(dispatchLeadIDs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	leads, err := store.LoadAll(ctx)
	if err != nil {
		return err
	}
	leads = types.SelectLeads(leads, ids)
	if len(leads) == 0 {
		_, _ = fmt.Fprintln(stdout(cmd), "No leads to dispatch.")
		return nil
	}

	dispatcher := dispatch.NewDispatcher(dispatch.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort), newLogger(cfg))
	result, err := dispatcher.Dispatch(ctx, leads, dispatch.Request{
		SenderEmail:   cfg.SenderEmail,
		AppPassword:   cfg.AppPassword,
		Target:        target,
		TestRecipient: cfg.TestRecipient,
	})
	// A cancelled batch still reports what was sent before the interrupt.
	observability.NewPrinter(stdout(cmd), cfg.Verbose).PrintDispatchResult(result)
	if err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}
	return nil
}

func parseLeadIDs(raw []string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		id, err := strconv.ParseInt(r, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --lead-id %q: %w", r, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
