package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"zeepdrone/internal/app"
	"zeepdrone/internal/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a DroneApp. The caller must defer
// app.Close(). operation identifies the CLI command being run.
func newApp(cmd *cobra.Command, operation string) (*app.DroneApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewDroneApp(cmd.Context(), cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "zeepdrone",
	Short: "Workshop level scanner and publisher",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("App ID:     %s\n", cfg.Steam.AppID)
		fmt.Printf("Backend:    %s\n", cfg.Backend.URL)
		fmt.Printf("Blob store: %s\n", cfg.Blob.Type)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the workshop catalog",
}

var scanCreatedCmd = &cobra.Command{
	Use:   "created",
	Short: "Scan recently created items",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ScanCreated")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.ScanCreated(cmd.Context())
	},
}

var scanModifiedCmd = &cobra.Command{
	Use:   "modified",
	Short: "Scan recently modified items",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ScanModified")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.ScanModified(cmd.Context())
	},
}

var scanFullCmd = &cobra.Command{
	Use:   "full",
	Short: "Scan the entire catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ScanFull")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.ScanFull(cmd.Context())
	},
}

var scanItemCmd = &cobra.Command{
	Use:   "item WORKSHOP_ID",
	Short: "Re-check a single workshop item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ScanItem")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.ScanItem(cmd.Context(), args[0])
	},
}

var scanRequestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Process the re-check request backlog",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ProcessRequests")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.ProcessRequests(cmd.Context())
	},
}

// daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run continuous scan cycles",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Daemon")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.RunDaemon(cmd.Context())
	},
}

// request command
var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Manage re-check requests",
}

var requestAddCmd = &cobra.Command{
	Use:   "add WORKSHOP_ID",
	Short: "Queue a re-check request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, _ := cmd.Flags().GetString("hash")
		uid, _ := cmd.Flags().GetString("uid")

		a, err := newApp(cmd, "AddRequest")
		if err != nil {
			return err
		}
		defer a.Close()

		req, err := a.AddRequest(cmd.Context(), args[0], hash, uid)
		if err != nil {
			return fmt.Errorf("queuing request: %w", err)
		}

		fmt.Printf("Queued request #%d for item %s\n", req.ID, req.WorkshopID)
		return nil
	},
}

var requestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued re-check requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListRequests")
		if err != nil {
			return err
		}
		defer a.Close()

		requests, err := a.ListRequests(cmd.Context())
		if err != nil {
			return err
		}

		if len(requests) == 0 {
			fmt.Println("No requests queued.")
			return nil
		}

		for _, req := range requests {
			fmt.Printf("#%d  item:%s  hash:%s  uid:%s  %s\n",
				req.ID,
				req.WorkshopID,
				req.Hash,
				req.UID,
				req.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

var requestRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a queued re-check request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid request id: %s", args[0])
		}

		a, err := newApp(cmd, "RemoveRequest")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveRequest(cmd.Context(), id); err != nil {
			return err
		}

		fmt.Printf("Removed request #%d\n", id)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View scan run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No scan runs recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	scanCmd.AddCommand(scanCreatedCmd)
	scanCmd.AddCommand(scanModifiedCmd)
	scanCmd.AddCommand(scanFullCmd)
	scanCmd.AddCommand(scanItemCmd)
	scanCmd.AddCommand(scanRequestsCmd)

	requestCmd.AddCommand(requestAddCmd)
	requestAddCmd.Flags().String("hash", "", "Expected content hash")
	requestAddCmd.Flags().String("uid", "", "Expected level uid")
	requestCmd.AddCommand(requestListCmd)
	requestCmd.AddCommand(requestRemoveCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
}
