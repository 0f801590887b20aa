package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/mediagrab/internal/service"
)

func newTokenCommand() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:         "token",
		Short:       "Generate an API token and the hash to configure as api_token_hash",
		Annotations: map[string]string{"skip-config": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				generated, err := service.GenerateToken()
				if err != nil {
					return err
				}
				token = generated
			}
			hash, err := service.HashToken(token)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "token: %s\n", token)
			fmt.Fprintf(out, "api_token_hash: %s\n", hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Hash this token instead of generating one")
	return cmd
}
