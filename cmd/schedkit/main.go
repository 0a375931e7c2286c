package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/schedkit/internal/profile"
	"github.com/hrygo/schedkit/server"
	"github.com/hrygo/schedkit/store"
	"github.com/hrygo/schedkit/store/db"
)

var version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "schedkit",
		Short: "Natural-language schedule parsing, conflict detection and free-slot search.",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if viper.GetString("mode") == "dev" {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveCmd.RunE(cmd, args)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			storeInstance, err := openStore(ctx, instanceProfile)
			if err != nil {
				return err
			}

			s, err := server.NewServer(ctx, instanceProfile, storeInstance)
			if err != nil {
				_ = storeInstance.Close()
				return fmt.Errorf("failed to create server: %w", err)
			}

			c := make(chan os.Signal, 1)
			// Trigger graceful shutdown on SIGINT or SIGTERM.
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)

			if err := s.Start(ctx); err != nil {
				s.Shutdown(ctx)
				return err
			}

			go func() {
				<-c
				s.Shutdown(ctx)
				cancel()
			}()

			// Wait for CTRL-C.
			<-ctx.Done()
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)
	viper.SetDefault("timezone", "Asia/Shanghai")
	viper.SetDefault("rate-limit", 10.0)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite or postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")
	rootCmd.PersistentFlags().String("timezone", "Asia/Shanghai", "default IANA timezone")
	rootCmd.PersistentFlags().String("jwt-secret", "", "secret for API bearer tokens; empty disables auth outside prod")
	rootCmd.PersistentFlags().Float64("rate-limit", 10, "per-user API requests per second")
	rootCmd.PersistentFlags().Int32("user", 1, "user id for local commands")

	for _, name := range []string{"mode", "addr", "port", "data", "driver", "dsn", "timezone", "jwt-secret", "rate-limit", "user"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("schedkit")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, parseCmd, slotsCmd, suggestCmd, assistCmd, importCmd, exportCmd, tokenCmd)
}

// loadProfile builds and validates the profile from flags, environment and .env.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:      viper.GetString("mode"),
		Addr:      viper.GetString("addr"),
		Port:      viper.GetInt("port"),
		Data:      viper.GetString("data"),
		Driver:    viper.GetString("driver"),
		DSN:       viper.GetString("dsn"),
		Timezone:  viper.GetString("timezone"),
		JWTSecret: viper.GetString("jwt-secret"),
		RateLimit: viper.GetFloat64("rate-limit"),
		Version:   version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return p, nil
}

func openStore(ctx context.Context, p *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	storeInstance := store.New(dbDriver, p)
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return storeInstance, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
