package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipforge/internal/compose"
	"clipforge/internal/tracking"
)

type planOptions struct {
	detections string
	output     string
	width      int
	height     int
	frames     int
	fps        float64
	stride     int
	maxZoom    float64
	bias       float64
}

func newPlanCommand() *cobra.Command {
	opts := planOptions{}
	defParams := tracking.DefaultParams()
	defCompose := compose.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build a crop plan from a detections file",
		Long: "Runs the camera tracker over a JSON array of per-frame face detections\n" +
			"and writes the resulting crop plan without contacting the API.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.detections, "detections", "", "Detections JSON file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "crop_plan.json", "Crop plan output path")
	cmd.Flags().IntVar(&opts.width, "width", 1920, "Source frame width")
	cmd.Flags().IntVar(&opts.height, "height", 1080, "Source frame height")
	cmd.Flags().IntVar(&opts.frames, "frames", 0, "Number of frames in the segment")
	cmd.Flags().Float64Var(&opts.fps, "fps", 30, "Segment frame rate")
	cmd.Flags().IntVar(&opts.stride, "stride", defParams.FrameStride, "Frame stride the detections were sampled at")
	cmd.Flags().Float64Var(&opts.maxZoom, "max-zoom", defCompose.MaxZoom, "Crop zoom factor")
	cmd.Flags().Float64Var(&opts.bias, "vertical-bias", defCompose.VerticalBias, "Anchor lift as a fraction of crop height")
	_ = cmd.MarkFlagRequired("detections")
	_ = cmd.MarkFlagRequired("frames")

	return cmd
}

func runPlan(cmd *cobra.Command, opts planOptions) error {
	if opts.width <= 0 || opts.height <= 0 {
		return fmt.Errorf("frame size must be positive, got %dx%d", opts.width, opts.height)
	}
	if opts.frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", opts.frames)
	}

	var dets []tracking.Detection
	if err := readJSONFile(opts.detections, &dets); err != nil {
		return err
	}

	params := tracking.DefaultParams()
	params.FrameStride = opts.stride
	centers, st, err := tracking.Track(cmd.Context(), tracking.Sequence{
		Width:      opts.width,
		Height:     opts.height,
		Frames:     opts.frames,
		Detections: dets,
	}, params)
	if err != nil {
		return err
	}

	co := compose.DefaultOptions()
	co.MaxZoom = opts.maxZoom
	co.VerticalBias = opts.bias
	plan := compose.Plan(centers, opts.width, opts.height, opts.fps, co)
	if err := compose.WritePlan(opts.output, plan); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d frames, %d sampled, %d without candidate, %d switches\n",
		opts.output, len(plan.Frames), st.Sampled, st.NoCandidate, st.Switches)
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
