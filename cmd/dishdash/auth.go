package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/eshaffer321/dishdash-go/internal/token"
	"github.com/eshaffer321/dishdash-go/internal/types"
	"github.com/eshaffer321/dishdash-go/pkg/dishdash"
)

const (
	passwordEnv   = "DISHDASH_PASSWORD"
	defaultRegion = "US"
)

// readPassword takes the flag, then DISHDASH_PASSWORD, then prompts
func readPassword(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := os.Getenv(passwordEnv); p != "" {
		return p, nil
	}
	return pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
}

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(password)
			if err != nil {
				return err
			}
			user, err := a.client.Auth.Login(cmd.Context(), dishdash.Credentials{Email: email, Password: pw})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf("Signed in as %s (%s)", user.Name(), user.Role))
			fmt.Fprintln(cmd.OutOrStdout(), "Landing page:", a.client.Location().String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var params dishdash.RegisterParams
	var role, region string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := types.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			params.Role = r

			phone, err := normalizePhone(params.Phone, region)
			if err != nil {
				return err
			}
			params.Phone = phone

			pw, err := readPassword(params.Password)
			if err != nil {
				return err
			}
			params.Password = pw

			user, err := a.client.Auth.Register(cmd.Context(), params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf("Welcome, %s! You are registered as %s", user.Name(), user.Role))
			return nil
		},
	}

	cmd.Flags().StringVarP(&params.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&params.Password, "password", "p", "", "Account password (prompted when omitted)")
	cmd.Flags().StringVar(&params.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&params.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&params.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&role, "role", string(dishdash.RoleCustomer), "customer, cook or delivery")
	cmd.Flags().StringVar(&region, "region", defaultRegion, "Region for phone numbers without a country code")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.client.Auth.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprint("Signed out"))
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			snap := a.client.Session()
			if !snap.Authenticated() || snap.User == nil {
				fmt.Fprintln(out, pterm.Info.Sprint("Not signed in. Run 'dishdash login' to get started."))
				return nil
			}

			fmt.Fprintf(out, "User:    %s <%s>\n", snap.User.Name(), snap.User.Email)
			fmt.Fprintf(out, "Role:    %s\n", snap.User.Role)
			if left := token.ExpiresIn(snap.AccessToken, time.Now()); left > 0 {
				fmt.Fprintf(out, "Session: expires in %s\n", left.Round(time.Second))
			} else {
				fmt.Fprintln(out, "Session: access token expired, it will be refreshed on the next request")
			}
			return nil
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.Auth.GetProfile(cmd.Context())
			if err != nil {
				return err
			}
			printUser(cmd, user)
			return nil
		},
	}

	var first, last, display, phone, region string
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			var u dishdash.ProfileUpdate
			if cmd.Flags().Changed("first-name") {
				u.FirstName = &first
			}
			if cmd.Flags().Changed("last-name") {
				u.LastName = &last
			}
			if cmd.Flags().Changed("display-name") {
				u.DisplayName = &display
			}
			if cmd.Flags().Changed("phone") {
				normalized, err := normalizePhone(phone, region)
				if err != nil {
					return err
				}
				u.Phone = &normalized
			}

			user, err := a.client.Auth.UpdateProfile(cmd.Context(), u)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprint("Profile updated"))
			printUser(cmd, user)
			return nil
		},
	}
	update.Flags().StringVar(&first, "first-name", "", "First name")
	update.Flags().StringVar(&last, "last-name", "", "Last name")
	update.Flags().StringVar(&display, "display-name", "", "Display name")
	update.Flags().StringVar(&phone, "phone", "", "Phone number")
	update.Flags().StringVar(&region, "region", defaultRegion, "Region for phone numbers without a country code")

	cmd.AddCommand(update)
	return cmd
}

func newPasswordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset a forgotten password or verify an email address",
	}

	var email string
	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Email a password reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.client.Auth.ForgotPassword(cmd.Context(), email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprint(orDefault(msg, "Check your inbox for a reset link")))
			return nil
		},
	}
	forgot.Flags().StringVarP(&email, "email", "e", "", "Account email")
	_ = forgot.MarkFlagRequired("email")

	var resetToken, newPassword string
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with the emailed token",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(newPassword)
			if err != nil {
				return err
			}
			msg, err := a.client.Auth.ResetPassword(cmd.Context(), resetToken, pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprint(orDefault(msg, "Password changed")))
			return nil
		},
	}
	reset.Flags().StringVar(&resetToken, "token", "", "Reset token from the email")
	reset.Flags().StringVarP(&newPassword, "password", "p", "", "New password (prompted when omitted)")
	_ = reset.MarkFlagRequired("token")

	verify := &cobra.Command{
		Use:   "verify-email TOKEN",
		Short: "Confirm an email address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.client.Auth.VerifyEmail(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprint(orDefault(msg, "Email verified")))
			return nil
		},
	}

	cmd.AddCommand(forgot, reset, verify)
	return cmd
}

func printUser(cmd *cobra.Command, u *dishdash.User) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", u.ID)
	fmt.Fprintf(out, "Name:     %s\n", u.Name())
	fmt.Fprintf(out, "Email:    %s (verified: %t)\n", u.Email, u.EmailVerified)
	fmt.Fprintf(out, "Role:     %s\n", u.Role)
	if u.Phone != "" {
		fmt.Fprintf(out, "Phone:    %s\n", u.Phone)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
