package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vanpelt/sitecraft/internal/models"
)

var (
	authEmail    string
	authPassword string
	authName     string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "🔑 Log in to your sitecraft account",
	Long: `# 🔑 Log In

**Start a session with the sitecraft backend.**

The session cookie is stored in the state directory so later commands stay logged in.
Missing values are prompted for; the password is never echoed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		email, password, err := credentials()
		if err != nil {
			return err
		}
		user, err := e.session.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Printf("✅ Logged in as %s\n", describeUser(user))
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "📝 Create a sitecraft account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		name := authName
		if name == "" {
			if name, err = prompt("Name: "); err != nil {
				return err
			}
		}
		email, password, err := credentials()
		if err != nil {
			return err
		}
		user, err := e.session.Register(cmd.Context(), name, email, password)
		if err != nil {
			return err
		}
		fmt.Printf("🎉 Welcome, %s!\n", describeUser(user))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "👋 End the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		if err := e.session.Logout(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("👋 Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "🙋 Show the logged in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv()
		if err != nil {
			return err
		}
		user, err := e.requireAuth(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(describeUser(user))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&authEmail, "email", "e", "", "Account email")
		c.Flags().StringVarP(&authPassword, "password", "p", "", "Account password (prompted when omitted)")
	}
	registerCmd.Flags().StringVarP(&authName, "name", "n", "", "Your first name")
}

func credentials() (string, string, error) {
	email, password := authEmail, authPassword
	var err error
	if email == "" {
		if email, err = prompt("Email: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = promptSecret("Password: "); err != nil {
			return "", "", err
		}
	}
	if email == "" || password == "" {
		return "", "", errors.New("email and password are required")
	}
	return email, password, nil
}

func describeUser(user *models.User) string {
	if user == nil {
		return "unknown user"
	}
	if user.EmailID == "" || user.DisplayName() == user.EmailID {
		return user.DisplayName()
	}
	return fmt.Sprintf("%s <%s>", user.DisplayName(), user.EmailID)
}
