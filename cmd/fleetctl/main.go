// Copyright ModelFleet Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatforge/modelfleet/pkg/core/config"
	"github.com/chatforge/modelfleet/pkg/core/schema"
	"github.com/chatforge/modelfleet/pkg/history"
	historymem "github.com/chatforge/modelfleet/pkg/history/memory"
	_ "github.com/chatforge/modelfleet/pkg/history/postgres"
	"github.com/chatforge/modelfleet/pkg/invoke"
	"github.com/chatforge/modelfleet/pkg/observability/logging"
	"github.com/chatforge/modelfleet/pkg/paramstore"
	_ "github.com/chatforge/modelfleet/pkg/paramstore/memory"
	_ "github.com/chatforge/modelfleet/pkg/paramstore/ssm"
	"github.com/chatforge/modelfleet/pkg/provision"
	"github.com/chatforge/modelfleet/pkg/provision/endpoints"
	"github.com/chatforge/modelfleet/pkg/provision/iamrole"
	"github.com/chatforge/modelfleet/pkg/provision/schedule"

	"github.com/chatforge/modelfleet/pkg/artifacts"
	_ "github.com/chatforge/modelfleet/pkg/artifacts/filesystem"
	_ "github.com/chatforge/modelfleet/pkg/artifacts/memory"
	_ "github.com/chatforge/modelfleet/pkg/artifacts/s3"
)

var (
	// Version is set via ldflags during build
	Version   = "dev"
	BuildTime = "unknown"
)

type app struct {
	cfg    *config.Config
	logger *logging.Logger

	params    paramstore.Store
	artifacts artifacts.Store
	history   history.Store
}

func newApp(ctx context.Context, configPath, logLevel, logFormat string) (*app, error) {
	logger := logging.New(logging.Config{Level: logLevel, Format: logFormat})

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	params, err := paramstore.Providers.New(ctx, cfg.Parameter.Type, map[string]string{
		"region":   cfg.AWS.Region,
		"endpoint": cfg.AWS.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("parameter store: %w", err)
	}

	artifactStore, err := artifacts.Providers.New(ctx, cfg.Artifacts.Type, map[string]string{
		"bucket":   cfg.Artifacts.S3Bucket,
		"region":   cfg.Artifacts.S3Region,
		"prefix":   cfg.Artifacts.S3Prefix,
		"endpoint": cfg.AWS.Endpoint,
		"base_dir": cfg.Artifacts.BaseDir,
	})
	if err != nil {
		return nil, fmt.Errorf("artifact store: %w", err)
	}

	runStore, err := history.Providers.New(ctx, cfg.History.Type, map[string]string{
		"dsn": cfg.History.DSN,
	})
	if err != nil {
		logger.Warn("Failed to initialize run history, falling back to memory", "error", err)
		runStore = historymem.New()
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		params:    params,
		artifacts: artifactStore,
		history:   runStore,
	}, nil
}

func (a *app) close(ctx context.Context) {
	a.params.Close(ctx)
	a.artifacts.Close(ctx)
	a.history.Close()
}

// provisioner builds the AWS-backed services. Only called by commands that
// actually touch the cloud, so plan/--dry-run work without credentials.
func (a *app) provisioner(ctx context.Context) (*provision.Provisioner, error) {
	endpointSvc, err := endpoints.New(ctx, endpoints.Options{
		Region:   a.cfg.AWS.Region,
		Endpoint: a.cfg.AWS.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("sagemaker service: %w", err)
	}

	roleSvc, err := iamrole.New(ctx, iamrole.Options{Endpoint: a.cfg.AWS.Endpoint})
	if err != nil {
		return nil, fmt.Errorf("iam service: %w", err)
	}

	scheduleSvc, err := schedule.New(ctx, schedule.Options{
		Region:   a.cfg.AWS.Region,
		Endpoint: a.cfg.AWS.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler service: %w", err)
	}

	return provision.New(a.cfg, a.logger, provision.Deps{
		Endpoints: endpointSvc,
		Roles:     roleSvc,
		Schedules: scheduleSvc,
		Params:    a.params,
		Artifacts: a.artifacts,
		History:   a.history,
	}), nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func buildRootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		logFormat  string
	)

	root := &cobra.Command{
		Use:           "fleetctl",
		Short:         "Provision and manage the self-hosted model fleet",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json|text")

	setup := func(ctx context.Context) (*app, error) {
		return newApp(ctx, configPath, logLevel, logFormat)
	}

	var dryRun bool
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Deploy the enabled endpoints and publish the models parameter",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if dryRun {
				prov := provision.New(a.cfg, a.logger, provision.Deps{})
				descriptors, err := prov.Plan()
				if err != nil {
					return err
				}
				return printJSON(descriptors)
			}

			prov, err := a.provisioner(ctx)
			if err != nil {
				return err
			}
			result, err := prov.Apply(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("Apply complete", "run_id", result.RunID, "models", len(result.Descriptors))
			return printJSON(result.Descriptors)
		},
	}
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the descriptors without deploying")

	destroyCmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down the fleet endpoints and schedules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			prov, err := a.provisioner(ctx)
			if err != nil {
				return err
			}
			if err := prov.Destroy(ctx); err != nil {
				return err
			}
			a.logger.Info("Destroy complete")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report the live status of every enabled endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			prov, err := a.provisioner(ctx)
			if err != nil {
				return err
			}
			statuses, err := prov.Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				fmt.Printf("%-50s %s\n", s.Name, s.Status)
			}
			return nil
		},
	}

	var historyLimit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded provisioning runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			runs, err := a.history.ListRuns(ctx, historyLimit)
			if err != nil {
				return err
			}
			return printJSON(runs)
		},
	}
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")

	var (
		invokeModel  string
		invokePrompt string
		invokeImages []string
	)
	invokeCmd := &cobra.Command{
		Use:   "invoke",
		Short: "Send a smoke-test prompt to a deployed endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			models, err := paramstore.ReadModels(ctx, a.params, a.cfg.Parameter.Path)
			if err != nil {
				return err
			}
			var iface schema.ModelInterface
			found := false
			for _, m := range models {
				if m.Name == invokeModel {
					iface = m.Interface
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("model %q is not in the published fleet", invokeModel)
			}

			handler, err := invoke.HandlerFor(iface, invokeImages)
			if err != nil {
				return err
			}

			client, err := invoke.New(ctx, invoke.Options{
				Region:   a.cfg.AWS.Region,
				Endpoint: a.cfg.AWS.Endpoint,
			})
			if err != nil {
				return err
			}

			text, err := client.Invoke(ctx, invokeModel, invokePrompt, invoke.DefaultParameters(), handler)
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
	invokeCmd.Flags().StringVar(&invokeModel, "model", "", "Published model name (required)")
	invokeCmd.Flags().StringVar(&invokePrompt, "prompt", "Hello!", "Prompt to send")
	invokeCmd.Flags().StringArrayVar(&invokeImages, "image", nil, "Image URL for multimodal models (repeatable)")
	invokeCmd.MarkFlagRequired("model")

	artifactsCmd := &cobra.Command{
		Use:   "artifacts",
		Short: "Manage staged model archives",
	}

	var stageModelID string
	stageCmd := &cobra.Command{
		Use:   "stage <archive>",
		Short: "Stage a model archive for the given model identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			staged, err := artifacts.Stage(ctx, a.artifacts, stageModelID, args[0])
			if err != nil {
				return err
			}
			a.logger.Info("Staged artifact", "id", staged.ID, "model_id", staged.ModelID, "bytes", staged.Bytes)
			if loc := a.artifacts.Location(staged.ID); loc != "" {
				fmt.Printf("%s\t%s\n", staged.ID, loc)
			} else {
				fmt.Println(staged.ID)
			}
			return nil
		},
	}
	stageCmd.Flags().StringVar(&stageModelID, "model-id", "", "Model identifier, e.g. sagemaker.amazon-FalconLite (required)")
	stageCmd.MarkFlagRequired("model-id")

	artifactsListCmd := &cobra.Command{
		Use:   "list",
		Short: "List staged artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			list, err := a.artifacts.ListArtifacts(ctx)
			if err != nil {
				return err
			}
			for _, artifact := range list {
				fmt.Printf("%-40s %-45s %10d  %s\n",
					artifact.ID, artifact.ModelID, artifact.Bytes,
					artifact.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	artifactsRmCmd := &cobra.Command{
		Use:   "rm <artifact-id>",
		Short: "Remove a staged artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.artifacts.DeleteArtifact(ctx, args[0]); err != nil {
				return err
			}
			a.logger.Info("Removed artifact", "id", args[0])
			return nil
		},
	}
	artifactsCmd.AddCommand(stageCmd, artifactsListCmd, artifactsRmCmd)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("fleetctl\nVersion: %s\nBuild Time: %s\n", Version, BuildTime)
		},
	}

	root.AddCommand(applyCmd, destroyCmd, statusCmd, historyCmd, invokeCmd, artifactsCmd, versionCmd)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := buildRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
