package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/codereview/internal/review"
)

var (
	reviewTestsFile    string
	reviewRequirements string
	reviewConcepts     []string
	reviewJSON         bool
	reviewAllowOffline bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <code-file>",
	Short: "Review a code submission against its test results",
	Long: `Review a student's code file.

Test results come from a YAML or JSON file holding a list of
{input, expect, actual, status} entries:

  - input: "1 2"
    expect: "3"
    actual: "-1"
    status: fail

--requirements takes either the assignment text or a path to a file
containing it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd, args[0])
	},
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewTestsFile, "tests", "t", "", "YAML or JSON file of test results")
	reviewCmd.Flags().StringVarP(&reviewRequirements, "requirements", "r", "", "Assignment text or a file containing it")
	reviewCmd.Flags().StringSliceVarP(&reviewConcepts, "concepts", "c", nil, "Expected concepts (comma-separated)")
	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "Print the response as JSON")
	reviewCmd.Flags().BoolVar(&reviewAllowOffline, "offline", false, "Run without a model; only the offline fallback report is produced")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(cmd *cobra.Command, codePath string) error {
	req, err := buildReviewRequest(codePath, reviewTestsFile, reviewRequirements, reviewConcepts)
	if err != nil {
		return err
	}

	svc, _, err := newService()
	if err != nil {
		return err
	}
	if !svc.Available() && !reviewAllowOffline {
		return fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY, or pass --offline)")
	}

	resp, err := svc.Review(cmd.Context(), req)
	if err != nil {
		return err
	}

	if reviewJSON {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return ui.Review(resp)
}

// buildReviewRequest assembles a request from the CLI inputs.
func buildReviewRequest(codePath, testsPath, requirements string, concepts []string) (review.Request, error) {
	code, err := os.ReadFile(codePath)
	if err != nil {
		return review.Request{}, fmt.Errorf("read code file: %w", err)
	}

	var results []review.TestResult
	if testsPath != "" {
		if results, err = readTestResults(testsPath); err != nil {
			return review.Request{}, err
		}
	}

	if requirements != "" {
		if data, err := os.ReadFile(requirements); err == nil {
			requirements = string(data)
		}
	}

	return review.Request{
		StudentSubmission: review.Submission{Code: string(code)},
		TestResults:       results,
		Assignment: review.Assignment{
			Content:          strings.TrimSpace(requirements),
			ExpectedConcepts: concepts,
		},
	}, nil
}

// readTestResults parses a list of test results. YAML is a superset of JSON,
// so one decoder covers both file types. A mapping with a test_results key is
// accepted too.
func readTestResults(path string) ([]review.TestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tests file: %w", err)
	}

	var results []review.TestResult
	if err := yaml.Unmarshal(data, &results); err == nil {
		return results, nil
	}

	var wrapped struct {
		TestResults []review.TestResult `yaml:"test_results"`
	}
	if err := yaml.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse tests file %s: %w", path, err)
	}
	return wrapped.TestResults, nil
}
