package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rawblock/splitscore/internal/service"
	"github.com/rawblock/splitscore/pkg/models"
)

var splitCmd = &cobra.Command{
	Use:   "split <input>",
	Short: "Score a split distribution",
	Long:  `Read a split matrix (YAML or JSON, "-" for stdin) and print its statistics.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSplit,
}

var thresholdCmd = &cobra.Command{
	Use:   "threshold <input>",
	Short: "Find the best binary split of a continuous attribute",
	Args:  cobra.ExactArgs(1),
	RunE:  runThreshold,
}

var predictCmd = &cobra.Command{
	Use:   "predict <input>",
	Short: "Build a categorical distribution and pick its best category",
	Args:  cobra.ExactArgs(1),
	RunE:  runPredict,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <input>",
	Short: "Compare predictions with known categories",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvaluate,
}

var criterionFlag string

func init() {
	rootCmd.AddCommand(splitCmd, thresholdCmd, predictCmd, evaluateCmd)
	for _, c := range []*cobra.Command{splitCmd, thresholdCmd} {
		c.Flags().StringVar(&criterionFlag, "criterion", "", "Split criterion (overrides input and config)")
	}
}

func runSplit(cmd *cobra.Command, args []string) error {
	var req models.SplitScoreRequest
	if err := readInput(args[0], &req); err != nil {
		return err
	}
	if criterionFlag != "" {
		req.Criterion = criterionFlag
	}
	resp, err := service.ScoreSplit(cfg, req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

func runThreshold(cmd *cobra.Command, args []string) error {
	var req models.ThresholdRequest
	if err := readInput(args[0], &req); err != nil {
		return err
	}
	if criterionFlag != "" {
		req.Criterion = criterionFlag
	}
	resp, err := service.FindThreshold(cfg, req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

func runPredict(cmd *cobra.Command, args []string) error {
	var req models.PredictRequest
	if err := readInput(args[0], &req); err != nil {
		return err
	}
	resp, err := service.Predict(cfg, req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	var req models.EvaluateRequest
	if err := readInput(args[0], &req); err != nil {
		return err
	}
	ev, err := service.Evaluate(req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), ev)
}

// readInput decodes a YAML or JSON document from path, or stdin for "-".
func readInput(path string, v interface{}) error {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	if err := yaml.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
