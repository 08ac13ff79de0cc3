package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"contact-guard/pkg/guard"
	"contact-guard/pkg/models"
)

var checkCmd = &cobra.Command{
	Use:   "check [form.json]",
	Short: "Run a form through the guard without sending anything",
	Long: `Reads a contact form as JSON from a file (or stdin) and prints the guard's
verdict and the template fields that would be sent. Rate limits start from an
empty history. Useful when tuning a policy file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("error opening form: %w", err)
			}
			defer f.Close()
			in = f
		}

		policy, err := loadPolicy(os.Getenv("POLICY_FILE"))
		if err != nil {
			return err
		}

		return runCheck(cmd.OutOrStdout(), in, guard.New(policy), time.Now())
	},
}

type checkResult struct {
	Verdict string            `json:"verdict"`
	Reason  string            `json:"reason,omitempty"`
	Field   string            `json:"field,omitempty"`
	Message string            `json:"message,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

func runCheck(out io.Writer, in io.Reader, g *guard.Guard, now time.Time) error {
	var form models.ContactForm
	if err := json.NewDecoder(in).Decode(&form); err != nil {
		return fmt.Errorf("error parsing form: %w", err)
	}

	result := checkResult{Verdict: "accepted"}

	submission, _, err := g.Evaluate(form, guard.RateLimitState{}, now)
	var rejection *guard.Rejection
	switch {
	case errors.Is(err, guard.ErrHoneypotTriggered):
		result.Verdict = "honeypot"
	case errors.As(err, &rejection):
		result.Verdict = "rejected"
		result.Reason = rejection.Reason()
		result.Field = rejection.Field
		result.Message = rejection.Message
	case err != nil:
		return err
	default:
		result.Params = g.TemplateParams(submission, now, time.Local)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
