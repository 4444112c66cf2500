package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/lobbyclient/internal/auth"
	"github.com/vovakirdan/lobbyclient/internal/config"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	var (
		operator     string
		scopes       []string
		hashPassword bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a control API token, or hash an operator password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if hashPassword {
				// The password is read from stdin so it stays out of shell history.
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				hash, err := auth.HashPassword(strings.TrimRight(line, "\r\n"))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hash)
				return nil
			}

			cfg, _, err := root.load(config.Config{})
			if err != nil {
				return err
			}
			if cfg.APISecret == "" {
				return errors.New("api_secret is not configured")
			}

			token, err := auth.GenerateToken(&auth.JWTConfig{
				Secret:   []byte(cfg.APISecret),
				Issuer:   cfg.APIIssuer,
				Audience: cfg.APIAudience,
				TTL:      cfg.TokenTTL,
			}, operator, scopes...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "local", "operator name recorded in the token")
	cmd.Flags().StringSliceVar(&scopes, "scopes", []string{auth.ScopeRead, auth.ScopeCommand}, "granted scopes")
	cmd.Flags().BoolVar(&hashPassword, "hash-password", false, "read a password from stdin and print its bcrypt hash")
	return cmd
}
