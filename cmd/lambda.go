package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/snaprace/internal/lambdafn"
)

// EnvLambdaFunction selects the function when --function is not given.
const EnvLambdaFunction = "SNAPRACE_FUNCTION"

var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as an AWS Lambda function",
	Long: `Run one pipeline stage or search endpoint under the AWS Lambda runtime.

Functions: ` + strings.Join(lambdafn.Names(), ", ") + `

Pipeline functions refuse to start when a required environment variable
is missing. Search functions start and answer 500 instead.`,
	RunE: runLambda,
}

func init() {
	rootCmd.AddCommand(lambdaCmd)
	lambdaCmd.Flags().String("function", "", "Function to run (defaults to "+EnvLambdaFunction+")")
}

func runLambda(cmd *cobra.Command, args []string) error {
	name := mustGetString(cmd, "function")
	if name == "" {
		name = os.Getenv(EnvLambdaFunction)
	}
	if !slices.Contains(lambdafn.Names(), name) {
		return fmt.Errorf("unknown function %q, expected one of: %s", name, strings.Join(lambdafn.Names(), ", "))
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger = logger.With("function", name)
	envErr := cfg.Require(lambdafn.Required[name]...)

	a, err := newApp(context.Background(), cfg, logger)
	if err != nil {
		return err
	}

	switch name {
	case lambdafn.FuncSearchByBib:
		lambda.Start(lambdafn.NewSearchByBib(a.bibSearcher(), envErr, logger).Handle)
		return nil
	case lambdafn.FuncSearchBySelfie:
		lambda.Start(lambdafn.NewSearchBySelfie(a.selfieSearcher(), envErr, logger).Handle)
		return nil
	}

	if envErr != nil {
		logger.Error("environment validation failed", "error", envErr)
		return envErr
	}

	switch name {
	case lambdafn.FuncStarter:
		starter, err := a.starter(cfg.Workflow.Mode)
		if err != nil {
			return err
		}
		lambda.Start(lambdafn.NewStarter(starter, logger).Handle)
	case lambdafn.FuncDetectText:
		lambda.Start(lambdafn.NewStage(name, a.detectText(), logger).Handle)
	case lambdafn.FuncIndexFaces:
		lambda.Start(lambdafn.NewStage(name, a.indexFaces(), logger).Handle)
	case lambdafn.FuncDBUpdate:
		lambda.Start(lambdafn.NewFinal(a.dbUpdate(), logger).Handle)
	}
	return nil
}
