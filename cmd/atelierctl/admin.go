package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Generate admin login settings for the server",
	}
	cmd.AddCommand(newHashPasswordCmd(), newTOTPCmd())
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
		Long: `Read a password from standard input and print its bcrypt hash,
ready to be used as ADMIN_PASSWORD_HASH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")
			if len(password) < 8 {
				return fmt.Errorf("password must be at least 8 characters")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

func newTOTPCmd() *cobra.Command {
	var issuer, account, qrPath string
	cmd := &cobra.Command{
		Use:   "totp",
		Short: "Create a secret for ADMIN_TOTP_SECRET",
		Long: `Create a TOTP secret for ADMIN_TOTP_SECRET and print its enrolment
URL. With --qr, also write a QR code PNG to scan with an authenticator app.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := totp.Generate(totp.GenerateOpts{Issuer: issuer, AccountName: account})
			if err != nil {
				return fmt.Errorf("generate totp secret: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ADMIN_TOTP_SECRET=%s\n", key.Secret())
			fmt.Fprintf(out, "enrolment URL: %s\n", key.URL())

			if qrPath != "" {
				if err := qrcode.WriteFile(key.URL(), qrcode.Medium, 256, qrPath); err != nil {
					return fmt.Errorf("write qr code: %w", err)
				}
				fmt.Fprintf(out, "QR code written to %s\n", qrPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", envOrDefault("SITE_NAME", "Atelier"), "issuer shown in the authenticator app")
	cmd.Flags().StringVar(&account, "account", envOrDefault("ADMIN_USER", "admin"), "account name shown in the authenticator app")
	cmd.Flags().StringVar(&qrPath, "qr", "", "write a QR code PNG to this path")
	return cmd
}
