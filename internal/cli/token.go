package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iliyamo/signal-checkin/internal/authz"
	"github.com/iliyamo/signal-checkin/internal/utils"
)

func newTokenCmd() *cobra.Command {
	var (
		user     string
		secret   string
		audience string
		ttl      time.Duration
		bearer   bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		Long: `Mints an HS256 token shaped like the identity provider's.
The secret defaults to $JWT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = os.Getenv("JWT_SECRET")
			}
			if secret == "" {
				return errors.New("no secret: pass --secret or set JWT_SECRET")
			}
			if user == "" {
				user = uuid.NewString()
			} else if _, err := uuid.Parse(user); err != nil {
				return fmt.Errorf("--user must be a UUID: %w", err)
			}
			tok, err := utils.NewAccessToken(secret, user, ttl, utils.TokenOptions{Audience: audience})
			if err != nil {
				return err
			}
			out := tok.Token
			if bearer {
				out = tok.Bearer()
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "subject user id (random when empty)")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret")
	cmd.Flags().StringVar(&audience, "aud", authz.DefaultAudience, "audience claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().BoolVar(&bearer, "bearer", false, "print as an Authorization header value")
	return cmd
}
