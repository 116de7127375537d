package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"campusparking/authprovider"
	"campusparking/database"
	"campusparking/logger"
)

func migrateCmd() *cobra.Command {
	var adminEmail, adminPassword string
	var rehash bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "建立資料表與 change feed trigger，並可建立本地管理員",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cfg, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			log := logger.FromContext(ctx)

			db, err := database.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			if err := database.Migrate(ctx, db, cfg.FeedChannel); err != nil {
				return err
			}
			log.Info("Database migration completed", "driver", cfg.DBDriver)

			local := authprovider.NewLocal(db, cfg.JWTSecret, cfg.JWTExpiration)
			if adminEmail != "" {
				if cfg.AuthProvider != "local" {
					return fmt.Errorf("--admin-email requires AUTH_PROVIDER=local, got %q", cfg.AuthProvider)
				}
				if err := local.EnsureAdmin(ctx, adminEmail, adminPassword); err != nil {
					return err
				}
			}
			if rehash {
				if _, err := local.RehashPlaintextPasswords(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "確保此帳號存在且為管理員（僅限 local 認證）")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "新建管理員時使用的密碼")
	cmd.Flags().BoolVar(&rehash, "rehash-passwords", false, "將匯入的明文密碼改存 bcrypt 哈希")
	cmd.MarkFlagsRequiredTogether("admin-email", "admin-password")
	return cmd
}
