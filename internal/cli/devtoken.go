package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"learn-quiz-service/internal/auth"
	"learn-quiz-service/internal/config"
)

// NewDevTokenCmd mints an access token signed with the configured auth
// secret, for local testing against `start`.
func NewDevTokenCmd(configPath *string) *cobra.Command {
	var user, role string
	cmd := &cobra.Command{
		Use:   "dev-token",
		Short: "Print a development access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			tok, err := devToken(cfg, user, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "dev-user", "subject of the token")
	cmd.Flags().StringVar(&role, "role", "student", "role claim")
	return cmd
}

func devToken(cfg config.Config, user, role string) (string, error) {
	if cfg.Auth.Secret == "" {
		return "", errors.New("auth secret not configured")
	}
	return auth.NewService(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TTL, 8*time.Hour)).IssueJWT(user, role)
}
