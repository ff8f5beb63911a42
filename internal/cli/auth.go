package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jrsteele09/go-tenant-admin/client"
	"github.com/jrsteele09/go-tenant-admin/client/api"
	"github.com/jrsteele09/go-tenant-admin/client/tokens"
	"github.com/jrsteele09/go-tenant-admin/internal/utils"
	"github.com/jrsteele09/go-tenant-admin/users"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, run adminctl login first")

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *client.Client) error {
				if state := c.Session.State(); state.IsAuthenticated() {
					fmt.Fprintf(a.out, "Already logged in as %s\n", state.User.Email)
					return nil
				}

				var err error
				if email, err = a.prompt("Email", email); err != nil {
					return err
				}
				if password, err = a.prompt("Password", password); err != nil {
					return err
				}

				resp, err := c.Session.Login(cmd.Context(), email, password)
				if err != nil {
					return describeAuthError(err)
				}
				fmt.Fprintf(a.out, "Logged in as %s (%s)\n", resp.User.Email, resp.User.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var req api.RegisterRequest
	var tenantID string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *client.Client) error {
				var err error
				if req.Email, err = a.prompt("Email", req.Email); err != nil {
					return err
				}
				if req.Name, err = a.prompt("Name", req.Name); err != nil {
					return err
				}
				if req.Password, err = a.prompt("Password", req.Password); err != nil {
					return err
				}
				if tenantID != "" {
					req.TenantID = utils.Ptr(tenantID)
				}

				resp, err := c.Session.Register(cmd.Context(), req)
				if err != nil {
					return describeAuthError(err)
				}
				fmt.Fprintf(a.out, "Registered and logged in as %s\n", resp.User.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name (prompted if omitted)")
	cmd.Flags().StringVar(&req.Password, "password", "", "Account password (prompted if omitted)")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant to join")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user and when the token expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *client.Client) error {
				state := c.Session.State()
				if !state.IsAuthenticated() {
					return errNotLoggedIn
				}
				printUser(a, state.User)
				fmt.Fprintf(a.out, "Token:   %s\n", describeExpiry(state.Token))
				return nil
			})
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd.Context(), func(c *client.Client) error {
				if err := c.Session.Logout(); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Logged out")
				return nil
			})
		},
	}
}

func printUser(a *app, u *users.User) {
	fmt.Fprintf(a.out, "Email:   %s\n", u.Email)
	if u.Name != "" {
		fmt.Fprintf(a.out, "Name:    %s\n", u.Name)
	}
	fmt.Fprintf(a.out, "Role:    %s\n", u.Role)
	if u.TenantID != nil {
		fmt.Fprintf(a.out, "Tenant:  %s\n", *u.TenantID)
	}
}

// describeExpiry renders the token lifetime like "expires in 15 hours"
func describeExpiry(token string) string {
	inspector := tokens.NewInspector(time.Now)
	exp, ok := inspector.ExpirationTime(token)
	if !ok {
		return "no expiry"
	}
	if inspector.IsExpired(token) {
		return "expired " + humanize.Time(exp)
	}
	return fmt.Sprintf("expires %s (%s)", humanize.Time(exp), exp.Local().Format(time.RFC1123))
}

func describeAuthError(err error) error {
	var redirect *api.RedirectError
	if errors.As(err, &redirect) {
		return errors.New("already logged in, run adminctl logout first")
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return errors.Errorf("%s (HTTP %d)", apiErr.Message, apiErr.Status)
	}
	return err
}
