package main

import (
	"fmt"
	"os"

	"github.com/opslib/ops"
	"github.com/spf13/cobra"
)

var pipelineFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "opsdemo",
		Short: "opsdemo runs a YAML-described batch of ops",
		Long:  "opsdemo demonstrates wiring a BatchOp/LoopOp graph from a YAML pipeline description and executing it with an ANSI-colored structured trace.",
	}

	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a pipeline file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(pipelineFile)
		},
	}
	cmd.Flags().StringVarP(&pipelineFile, "file", "f", "pipeline.yaml", "Path to the pipeline YAML file")
	return cmd
}

func runPipeline(path string) error {
	spec, err := loadPipeline(path)
	if err != nil {
		return err
	}

	logger := ops.NewANSILogger(os.Stdout)
	dry := ops.NewDryContext()
	wet := ops.NewWetContext()

	batch := buildBatch(spec)
	traced := ops.NewLoggingWrapper[[]string](ops.Wrap[[]string](batch), logger, "opsdemo::run-batch")

	results, err := traced.Perform(dry, wet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline failed: %v\n", err)
		return err
	}

	fmt.Printf("batch completed with %d results:\n", len(results))
	for i, r := range results {
		fmt.Printf("  [%d] %s\n", i, r)
	}

	if loop := buildLoop(spec); loop != nil {
		tracedLoop := ops.NewLoggingWrapper[[]string](ops.Wrap[[]string](loop), logger, "opsdemo::run-loop")
		loopResults, err := tracedLoop.Perform(dry, wet)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loop failed: %v\n", err)
			return err
		}
		fmt.Printf("loop completed with %d results:\n", len(loopResults))
		for i, r := range loopResults {
			fmt.Printf("  [%d] %s\n", i, r)
		}
	}
	return nil
}
