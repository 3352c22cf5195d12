package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerpal/ledgerpal/internal/whatsapp"
)

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <to-number> <message>",
		Short: "Send a WhatsApp message through Twilio",
		Long: `Send a one-off WhatsApp message using the configured Twilio account.
Useful for verifying credentials and the sending number before pointing the
webhook at production traffic.`,
		Args: cobra.ExactArgs(2),
		RunE: runSend,
	}

	cmd.Flags().StringSlice("media", nil, "media URLs to attach (repeatable)")

	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	accountSID := viper.GetString("twilio.account_sid")
	authToken := viper.GetString("twilio.auth_token")
	from := viper.GetString("twilio.from_number")
	if accountSID == "" || authToken == "" || from == "" {
		return fmt.Errorf("twilio.account_sid, twilio.auth_token and twilio.from_number must be configured")
	}

	sender := whatsapp.NewSender(accountSID, authToken, from, slog.Default())
	mediaURLs, _ := cmd.Flags().GetStringSlice("media")

	var err error
	if len(mediaURLs) > 0 {
		err = sender.SendWithMedia(args[0], args[1], mediaURLs)
	} else {
		err = sender.Send(args[0], args[1])
	}
	if err != nil {
		return err
	}

	slog.Info("message sent", "to", args[0])
	return nil
}
