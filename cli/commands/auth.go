package commands

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/malonaz/aichat/internal/auth"
	"github.com/malonaz/aichat/internal/cli"
)

func newLoginCmd(clients *Clients) *cobra.Command {
	var opts struct {
		Email string
	}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := cli.Input("Email", opts.Email)
			if err != nil {
				return err
			}
			password, err := cli.Password("Password")
			if err != nil {
				return err
			}

			ctx, cancel := clients.requestContext(cmd.Context())
			defer cancel()
			session, err := clients.Identity.SignInEmailPassword(ctx, email, password)
			if err != nil {
				return providerError(err)
			}
			cli.Info("Signed in as %s", displayName(session.User, email))
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "Default email")
	return cmd
}

func newSignUpCmd(clients *Clients) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := cli.Input("Full name", "")
			if err != nil {
				return err
			}
			email, err := cli.Input("Email", "")
			if err != nil {
				return err
			}
			password, err := cli.Password("Password")
			if err != nil {
				return err
			}

			ctx, cancel := clients.requestContext(cmd.Context())
			defer cancel()
			result, err := clients.Identity.SignUpEmailPassword(ctx, email, password, name)
			if err != nil {
				return providerError(err)
			}
			if result.NeedsEmailVerification {
				cli.Info("We've sent you a verification link. Verify your email, then run `aichat login`.")
				return nil
			}
			cli.Info("Account created, signed in as %s", displayName(result.Session.User, email))
			return nil
		},
	}
	return cmd
}

func newLogoutCmd(clients *Clients) *cobra.Command {
	var opts struct {
		Yes bool
	}
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := requireSession(cmd.Context(), clients); err != nil {
				return err
			}
			if !opts.Yes {
				confirmed, err := cli.Confirm("Are you sure you want to sign out? You'll need to sign in again to access your chats.")
				if err != nil {
					return err
				}
				if !confirmed {
					return nil
				}
			}

			ctx, cancel := clients.requestContext(cmd.Context())
			defer cancel()
			if err := clients.Identity.SignOut(ctx); err != nil {
				cli.Error("Signed out locally: %v", err)
				return nil
			}
			cli.Info("Signed out")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// providerError surfaces the message of the identity provider.
func providerError(err error) error {
	var authErr *auth.Error
	if errors.As(err, &authErr) && authErr.Message != "" {
		return errors.New(authErr.Message)
	}
	return err
}

func displayName(user *auth.User, fallback string) string {
	if user == nil {
		return fallback
	}
	if user.DisplayName != "" {
		return user.DisplayName
	}
	return user.Email
}
