package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"heirloom/models"
	"heirloom/pkg/app"
	"heirloom/pkg/auth"
)

const defaultSeedPassword = "password123"

type demoAccount struct {
	Name  string
	Email string
	Role  auth.Role
}

var demoAccounts = []demoAccount{
	{Name: "Sarah Chen", Email: "senior@knowledgeheirloom.com", Role: auth.RoleSeniorDev},
	{Name: "Alex Rodriguez", Email: "admin@knowledgeheirloom.com", Role: auth.RoleAdmin},
	{Name: "Taylor Kim", Email: "junior@knowledgeheirloom.com", Role: auth.RoleEmployee},
}

var seedPassword string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create one demo account per role",
	Long: `Create demo accounts for every role. Accounts that already exist are
left untouched, so the command can be run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IsProduction {
			return errors.New("refusing to seed demo accounts in production")
		}
		a, err := app.Open(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		created, err := seedAccounts(cmd.Context(), a.DB, seedPassword)
		if err != nil {
			return err
		}
		cmd.Printf("seeded %d new account(s), %d already present\n", created, len(demoAccounts)-created)
		for _, d := range demoAccounts {
			cmd.Printf("  %-11s %s\n", d.Role, d.Email)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", defaultSeedPassword, "password for newly created accounts")
}

// seedAccounts inserts the demo accounts missing from the database and
// reports how many were created.
func seedAccounts(ctx context.Context, db *gorm.DB, password string) (int, error) {
	created := 0
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range demoAccounts {
			var n int64
			if err := tx.Model(&models.User{}).Where("email = ?", d.Email).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			u := &models.User{Name: d.Name, Email: d.Email, Role: d.Role}
			if err := u.SetPassword(password); err != nil {
				return err
			}
			if err := tx.Create(u).Error; err != nil {
				return fmt.Errorf("create %s: %w", d.Email, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed accounts: %w", err)
	}
	return created, nil
}
