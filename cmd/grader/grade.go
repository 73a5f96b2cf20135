package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/config"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/grader"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/monitoring"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/security"
	"github.com/ZanzyTHEbar/seo-maturity-grader/internal/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type settingsLoader func() (*config.Settings, error)

type gradeOpts struct {
	url         string
	keywords    []string
	brand       string
	answers     string
	answersFile string
	verbose     bool
}

func newGradeCmd(load settingsLoader) *cobra.Command {
	var opts gradeOpts

	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade one website and print the JSON report",
		Example: `  grader grade --url example.com --keyword "seo audit" --brand SaaS \
    --answers T1=4,T2=3,T3=5,T4=3,C1=4,C2=3,C3=2,C4=3,M1=2,M2=3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := load()
			if err != nil {
				return err
			}
			return runGrade(cmd.Context(), settings, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "Website URL to grade (required)")
	cmd.Flags().StringArrayVar(&opts.keywords, "keyword", nil, "Target keyword, repeatable (max 5)")
	cmd.Flags().StringVar(&opts.brand, "brand", string(types.BrandOther), "Brand category, e.g. SaaS or E-commerce")
	cmd.Flags().StringVar(&opts.answers, "answers", "", "Questionnaire answers as T1=4,T2=3,...")
	cmd.Flags().StringVar(&opts.answersFile, "answers-file", "", "YAML file with the questionnaire answers keyed by question ID")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug-level adapter activity to stderr")
	_ = cmd.MarkFlagRequired("url")
	cmd.MarkFlagsOneRequired("answers", "answers-file")
	cmd.MarkFlagsMutuallyExclusive("answers", "answers-file")

	return cmd
}

func runGrade(ctx context.Context, settings *config.Settings, opts gradeOpts, stdout, stderr io.Writer) error {
	answers, err := loadAnswers(opts)
	if err != nil {
		return err
	}

	req := types.GraderRequest{
		WebsiteURL:           opts.url,
		BrandCategory:        opts.brand,
		TargetKeywords:       opts.keywords,
		QuestionnaireAnswers: answers,
	}
	if err := req.Normalize(); err != nil {
		return err
	}

	target, err := security.ValidateURL(req.WebsiteURL)
	if err != nil {
		return err
	}
	if target.Warning != "" {
		fmt.Fprintln(stderr, "warning:", target.Warning)
	}

	logger := newLogger(stderr, opts.verbose)

	g := grader.New(settings, grader.Options{Logger: logger})
	defer g.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*settings.RequestTimeout())
	defer cancel()

	start := time.Now()
	resp, err := g.Evaluate(ctx, target.URL, req.TargetKeywords, req.BrandCategory, req.QuestionnaireAnswers)
	if err != nil {
		return err
	}
	resp.RequestID = uuid.New().String()
	logger.GradeLogger(resp.RequestID, target.URL, resp.TotalScore, resp.Stage, time.Since(start))

	return writeJSON(stdout, resp)
}

func loadAnswers(opts gradeOpts) (types.QuestionnaireAnswers, error) {
	if opts.answersFile != "" {
		var answers types.QuestionnaireAnswers
		data, err := os.ReadFile(opts.answersFile)
		if err != nil {
			return answers, fmt.Errorf("reading answers file: %w", err)
		}
		if err := yaml.Unmarshal(data, &answers); err != nil {
			return answers, fmt.Errorf("parsing answers file %s: %w", opts.answersFile, err)
		}
		return answers, nil
	}
	return parseAnswers(opts.answers)
}

// parseAnswers reads "T1=4,T2=3,..." into questionnaire answers. Range
// checks are left to QuestionnaireAnswers.Validate.
func parseAnswers(s string) (types.QuestionnaireAnswers, error) {
	var answers types.QuestionnaireAnswers
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		id, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return answers, fmt.Errorf("invalid answer %q: expected ID=value", pair)
		}
		value, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return answers, fmt.Errorf("invalid answer %q: %w", pair, err)
		}
		if err := answers.Set(strings.ToUpper(strings.TrimSpace(id)), value); err != nil {
			return answers, err
		}
	}
	return answers, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newLogger reports warnings, such as adapters falling back, on w. Verbose
// runs also see every upstream call.
func newLogger(w io.Writer, verbose bool) *monitoring.Logger {
	logger := monitoring.NewLoggerWithWriter(w, slog.LevelWarn)
	if verbose {
		logger.SetLevel(slog.LevelDebug)
	}
	return logger
}
