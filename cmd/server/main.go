package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"plantdiag/internal/config"
	"plantdiag/internal/models"
	"plantdiag/internal/seed"
	"plantdiag/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "plantdiag",
		Short:        "植物病害诊断服务",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./config/config.yaml", "配置文件路径")

	rootCmd.AddCommand(
		serveCommand(&configFile),
		migrateCommand(&configFile),
		seedCommand(&configFile),
		tokenCommand(&configFile),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// loadConfig 加载配置并初始化日志
func loadConfig(configFile string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("无效的日志级别: %w", err)
	}
	logger.SetLevel(level)

	return cfg, logger, nil
}

func serveCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func migrateCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据库表",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			db, err := models.OpenDB(&cfg.Database)
			if err != nil {
				return err
			}
			if err := models.AutoMigrate(db); err != nil {
				return fmt.Errorf("数据库迁移失败: %w", err)
			}
			logger.Info("数据库迁移完成")
			return nil
		},
	}
}

func seedCommand(configFile *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "导入标签、建议与标记类型",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.SeedFile
			}
			if file == "" {
				return fmt.Errorf("未指定种子文件")
			}

			f, err := seed.Load(file, utils.NewValidator())
			if err != nil {
				return err
			}
			db, err := models.OpenDB(&cfg.Database)
			if err != nil {
				return err
			}
			_, err = seed.Apply(cmd.Context(), db, f, logger)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "种子文件路径，默认使用配置中的 seed_file")
	return cmd
}

func tokenCommand(configFile *string) *cobra.Command {
	var (
		userID    uint
		username  string
		companyID uint
		isAdmin   bool
		expire    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发访问令牌",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if expire <= 0 {
				expire = cfg.JWT.GetExpireDuration()
			}

			jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Algorithm, expire)
			token, err := jwtManager.GenerateToken(userID, username, companyID, isAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "用户ID")
	cmd.Flags().StringVar(&username, "username", "", "用户名")
	cmd.Flags().UintVar(&companyID, "company-id", 0, "公司ID")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "是否为管理员")
	cmd.Flags().DurationVar(&expire, "expire", 0, "有效期，默认使用配置")
	_ = cmd.MarkFlagRequired("user-id")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
