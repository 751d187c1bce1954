package main

import (
	"fmt"
	"io"

	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"

	"pkt.systems/rollcall/internal/auth"
)

const totpIssuer = "rollcall"

func newTOTPCmd() *cobra.Command {
	var account string
	var noQR bool
	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Generate a TOTP secret for ssh.totp_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := auth.GenerateTOTP(totpIssuer, account)
			if err != nil {
				return err
			}
			printEnrollment(cmd.OutOrStdout(), key.Secret(), key.URL(), !noQR)
			return nil
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", "ssh", "account name shown in the authenticator app")
	cmd.Flags().BoolVar(&noQR, "no-qr", false, "do not print the QR code")
	return cmd
}

func printEnrollment(w io.Writer, secret, url string, qr bool) {
	_, _ = fmt.Fprintf(w, "totp_secret: %s\n", secret)
	_, _ = fmt.Fprintf(w, "otpauth_url: %s\n", url)
	if qr {
		_, _ = fmt.Fprintln(w, "totp_qr:")
		qrterminal.GenerateHalfBlock(url, qrterminal.L, w)
	}
}
