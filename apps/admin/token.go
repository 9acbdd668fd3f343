package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	echoapi "github.com/trezcool/gradebook/apps/api/echo"
	"github.com/trezcool/gradebook/core"
)

var errNoSecretKey = errors.New("secret key is not configured")

func (cli *commandLine) tokenCmd() *cobra.Command {
	var (
		school, subject string
		ttl             time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token bound to a school",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cli.svcs.Conf.SecretKey == "" {
				return errNoSecretKey
			}
			if ttl <= 0 {
				return errors.Errorf("invalid ttl: %s", ttl)
			}
			claims := echoapi.NewClaims(core.CleanString(school), core.CleanString(subject), ttl)
			token, err := echoapi.GenerateToken(cli.svcs.Conf.SecretKey, claims)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cli.out, token)
			return errors.Wrap(err, "printing token")
		},
	}
	cmd.Flags().StringVar(&school, "school", "", "School ID (required)")
	cmd.Flags().StringVar(&subject, "subject", "admin", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("school")
	return cmd
}
