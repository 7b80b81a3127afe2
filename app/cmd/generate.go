package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"appforge/internal/domain/entity"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var req entity.CodeRequest

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation session in the foreground and print its final state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(opts)
			if err != nil {
				return err
			}

			session, runErr := a.generator.Generate(cmd.Context(), req)
			if session != nil {
				out, err := json.MarshalIndent(session, "", "  ")
				if err != nil {
					return fmt.Errorf("encode session: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			return runErr
		},
	}

	cmd.Flags().StringVarP(&req.Prompt, "prompt", "p", "", "what the generated app should do")
	cmd.Flags().StringVarP(&req.UserEmail, "email", "e", "", "recipient of the result notification")
	_ = cmd.MarkFlagRequired("prompt")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
