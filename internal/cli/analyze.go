package cli

import (
	"context"
	"fmt"
	"strings"

	"ppe-monitor/internal/classifier"
	"ppe-monitor/internal/models"
	"ppe-monitor/internal/notify"
	"ppe-monitor/internal/service"
	"ppe-monitor/pkg/frame"
	"ppe-monitor/pkg/httpx"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// AnalyzeOptions holds flags for the analyze command.
type AnalyzeOptions struct {
	Record bool
	Camera string
	Zone   string
}

// AnalyzeOutput is the json form of one analysis.
type AnalyzeOutput struct {
	AnalysisID string                 `json:"analysis_id"`
	Classifier string                 `json:"classifier"`
	Result     *models.AnalysisResult `json:"result"`
	Recorded   []*models.Violation    `json:"recorded,omitempty"`
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Classify one image file and print the verdict",
		Long: `Encode an image file the same way camera frames are encoded, send it to the
configured classifier and print the validated verdict.

With --record the verdict is stored as violation records and alerts are sent,
exactly as a monitoring cycle would.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := runAnalyze(cmd.Context(), rootOpts, opts, args[0])
			if err != nil {
				return err
			}
			return rootOpts.print(cmd.OutOrStdout(), formatAnalysis(out), out)
		},
	}

	cmd.Flags().BoolVar(&opts.Record, "record", false, "persist violations and send alerts")
	cmd.Flags().StringVar(&opts.Camera, "camera", "cli", "camera id stored with recorded violations")
	cmd.Flags().StringVar(&opts.Zone, "zone", "", "zone stored with recorded violations")

	return cmd
}

func runAnalyze(ctx context.Context, rootOpts *RootOptions, opts *AnalyzeOptions, path string) (*AnalyzeOutput, error) {
	cfg := rootOpts.config

	img, err := frame.LoadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := frame.Encode(img, cfg.Monitor.JPEGQuality)
	if err != nil {
		return nil, err
	}

	clf, err := classifier.New(ctx, cfg.Classifier, httpx.Client())
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	result, err := clf.Classify(ctx, f)
	if err != nil {
		return nil, err
	}

	out := &AnalyzeOutput{
		AnalysisID: uuid.NewString(),
		Classifier: clf.Name(),
		Result:     result,
	}
	if !opts.Record {
		return out, nil
	}

	a, err := openApp(cfg)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	fanout := newFanout(rootOpts, notify.NewWebhook(a.settings, httpx.Client()), nil)
	defer fanout.Wait()

	recorder := service.NewRecorder(a.violations, a.settings, fanout, cfg.Monitor.SiteLocation)
	out.Recorded, err = recorder.Record(ctx, service.Detection{
		AnalysisID: out.AnalysisID,
		CameraID:   opts.Camera,
		Zone:       opts.Zone,
		Result:     result,
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func formatAnalysis(out *AnalyzeOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis %s (%s)\n", out.AnalysisID, out.Classifier)
	fmt.Fprintf(&b, "Compliance: %s\n", out.Result.OverallCompliance)
	fmt.Fprintf(&b, "Workers detected: %d\n", out.Result.WorkersDetected)

	if out.Result.HasViolations() {
		b.WriteString("Violations:\n")
		for _, v := range out.Result.Violations {
			fmt.Fprintf(&b, "  - %s: %s\n", v.WorkerDescription, models.JoinMissing(v.MissingPPE))
		}
	}
	if len(out.Recorded) > 0 {
		fmt.Fprintf(&b, "Recorded %d violation(s)\n", len(out.Recorded))
	}
	return strings.TrimRight(b.String(), "\n")
}
