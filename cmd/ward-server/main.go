package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/ward/internal/config"
	"github.com/ehr/ward/internal/domain/triage"
	"github.com/ehr/ward/internal/platform/db"
	"github.com/ehr/ward/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ward-server",
		Short: "Nursing triage API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(classifyCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ward API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// newLogger writes JSON, or human-readable console lines in development.
func newLogger(w io.Writer, dev bool) zerolog.Logger {
	if dev {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// migrationsFS returns the SQL files in dir, or the embedded set when dir is
// empty.
func migrationsFS(dir string) fs.FS {
	if dir == "" {
		return migrations.FS
	}
	return os.DirFS(dir)
}

func openMigrator(ctx context.Context, cfg *config.Config) (*db.Migrator, func(), error) {
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, migrationsFS(cfg.MigrationsDir)), pool.Close, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			migrator, closePool, err := openMigrator(ctx, cfg)
			if err != nil {
				return err
			}
			defer closePool()

			fmt.Fprintf(cmd.OutOrStdout(), "Running migrations on schema: %s\n", schema)
			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			migrator, closePool, err := openMigrator(ctx, cfg)
			if err != nil {
				return err
			}
			defer closePool()

			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Migration status for schema: %s\n", schema)
			fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Fprintln(out, "---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	cmd.AddCommand(statusCmd)

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant schema and migrate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if !db.ValidTenantID(name) {
				return fmt.Errorf("invalid tenant identifier: %s", name)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Creating tenant schema: %s\n", db.SchemaName(name))
			n, err := db.CreateTenantSchema(ctx, pool, name, migrationsFS(cfg.MigrationsDir))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tenant created, %d migration(s) applied.\n", n)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

type classifyOutput struct {
	Priority      triage.Priority            `json:"priority"`
	Anomalies     []triage.Anomaly           `json:"anomalies"`
	Contributions map[string]triage.Priority `json:"contributions"`
	BMI           *float64                   `json:"bmi,omitempty"`
}

// classifyCmd runs the classifier offline. Only flags that are set count as
// measured.
func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify a set of vital signs without a server",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := vitalsFromFlags(cmd)
			if err != nil {
				return err
			}
			if err := triage.ValidateMeasurements(v); err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(classifyOutput{
				Priority:      triage.Classify(v),
				Anomalies:     triage.DetectAnomalies(v),
				Contributions: triage.Contributions(v),
				BMI:           v.BMI(),
			})
		},
	}
	f := cmd.Flags()
	f.Int("systolic", 0, "Systolic blood pressure (mmHg)")
	f.Int("diastolic", 0, "Diastolic blood pressure (mmHg)")
	f.Int("heart-rate", 0, "Heart rate (bpm)")
	f.Int("respiratory-rate", 0, "Respiratory rate (/min)")
	f.Float64("temperature", 0, "Temperature (°C)")
	f.Int("spo2", 0, "Oxygen saturation (%)")
	f.Int("glucose", 0, "Capillary glucose (mg/dL)")
	f.Int("pain", 0, "Pain score (0-10)")
	f.Float64("weight", 0, "Weight (kg)")
	f.Float64("height", 0, "Height (cm)")
	return cmd
}

func vitalsFromFlags(cmd *cobra.Command) (triage.Vitals, error) {
	var v triage.Vitals
	f := cmd.Flags()
	ints := []struct {
		name string
		dst  **int
	}{
		{"systolic", &v.Systolic},
		{"diastolic", &v.Diastolic},
		{"heart-rate", &v.HeartRate},
		{"respiratory-rate", &v.RespiratoryRate},
		{"spo2", &v.OxygenSaturation},
		{"glucose", &v.CapillaryGlucose},
		{"pain", &v.PainScore},
	}
	for _, fl := range ints {
		if !f.Changed(fl.name) {
			continue
		}
		n, err := f.GetInt(fl.name)
		if err != nil {
			return v, err
		}
		*fl.dst = &n
	}
	floats := []struct {
		name string
		dst  **float64
	}{
		{"temperature", &v.Temperature},
		{"weight", &v.WeightKg},
		{"height", &v.HeightCm},
	}
	for _, fl := range floats {
		if !f.Changed(fl.name) {
			continue
		}
		x, err := f.GetFloat64(fl.name)
		if err != nil {
			return v, err
		}
		*fl.dst = &x
	}
	return v, nil
}
