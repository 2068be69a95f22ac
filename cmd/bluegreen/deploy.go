package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/bluegreen/internal/cli"
	"github.com/aretw0/bluegreen/pkg/deploy"
)

var deployCmd = &cobra.Command{
	Use:   "deploy --version N",
	Short: "Rotate the requested version into the idle slot",
	Long: `Reads the rotation record, decides which slot receives the requested version,
renders a manifest for both slots and saves the new record.

Deploying the version that is already current changes nothing and is safe to repeat.`,
	Example: `  bluegreen deploy --version 6
  bluegreen deploy --version 6 --backend redis --store-option addr=localhost:6379 --lock
  bluegreen deploy --version 6 --state-override '{"activeSlot":"BLUE","currentVersion":5,"previousVersion":4}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		version, _ := flags.GetInt("version")
		if flags.Changed("state-override") {
			cfg.Override, _ = flags.GetString("state-override")
		}
		if flags.Changed("policy") {
			cfg.Policy, _ = flags.GetString("policy")
		}
		if noCAS, _ := flags.GetBool("no-cas"); noCAS {
			cfg.CompareAndSwap = false
		}
		if flags.Changed("lock") {
			cfg.Lock.Enabled, _ = flags.GetBool("lock")
		}
		if flags.Changed("lock-ttl") {
			cfg.Lock.TTL, _ = flags.GetDuration("lock-ttl")
		}
		if flags.Changed("timeout") {
			cfg.Timeout, _ = flags.GetDuration("timeout")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		planPath, _ := flags.GetString("out")
		showGraph, _ := flags.GetBool("graph")
		quiet, _ := flags.GetBool("quiet")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		_, err = cli.RunDeploy(ctx, cfg, cli.DeployOptions{
			Version:  version,
			PlanPath: planPath,
			Graph:    showGraph,
			Color:    isTerminal(os.Stdout),
			Quiet:    quiet,
			Out:      cmd.OutOrStdout(),
			Logger:   logger,
		})
		if err != nil {
			if sig := ctx.Signal(); sig != nil {
				return fmt.Errorf("interrupted by %v: %w", sig, err)
			}
			if phase, ok := deploy.FailedPhase(err); ok {
				logger.Error("Deployment run failed", "phase", string(phase), "err", err)
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().Int("version", 0, "Version to deploy (positive integer)")
	deployCmd.Flags().String("state-override", "", "Use this JSON rotation record instead of reading the store")
	deployCmd.Flags().String("policy", "", "Priming policy when the store is unreachable: strict or lenient")
	deployCmd.Flags().Bool("no-cas", false, "Save without checking that the record is unchanged since it was read")
	deployCmd.Flags().Bool("lock", false, "Hold a distributed lock for the run (redis backend)")
	deployCmd.Flags().Duration("lock-ttl", 0, "Lock expiry")
	deployCmd.Flags().Duration("timeout", 0, "Timeout for reading the rotation record")
	deployCmd.Flags().StringP("out", "o", "", "Write the YAML plan to this file instead of stdout")
	deployCmd.Flags().Bool("graph", false, "Print a mermaid diagram of the new state")
	deployCmd.Flags().BoolP("quiet", "q", false, "Only print the plan")
	_ = deployCmd.MarkFlagRequired("version")
}
