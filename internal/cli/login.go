package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"goaltracker/internal/remote"
	"goaltracker/internal/ui"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password, username string
	var register bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the tracker server and print a bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Remote.URL == "" {
				return errors.New("remote.url is not configured")
			}
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}
			client := remote.New(a.cfg.Remote.URL,
				remote.WithLogger(a.logger),
				remote.WithHTTPClient(&http.Client{Timeout: a.cfg.Remote.Timeout}),
			)

			var (
				sess *remote.Session
				err  error
			)
			if register {
				if username == "" {
					return errors.New("--username is required to register")
				}
				sess, err = client.Register(cmd.Context(), username, email, password)
			} else {
				sess, err = client.Login(cmd.Context(), email, password)
			}
			if err != nil {
				return err
			}

			a.println(ui.Good.Render(ui.IconDone + " signed in as " + sess.User.Username))
			a.println(ui.Muted.Render("set remote.token (or TRACKER_REMOTE_TOKEN) to:"))
			a.println(sess.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&username, "username", "", "Username (with --register)")
	cmd.Flags().BoolVar(&register, "register", false, "Create the account first")
	return cmd
}
