package main

import (
	"fmt"

	"github.com/jrsteele09/go-imagen-client/apimodel"
	"github.com/jrsteele09/go-imagen-client/internal/utils"
	"github.com/spf13/cobra"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Submit generation jobs",
	}
	cmd.AddCommand(
		newGenerateImageCommand(ctx),
		newGenerateVideoCommand(ctx),
		newGenerateSpeechCommand(ctx),
	)
	return cmd
}

func newGenerateImageCommand(ctx *commandContext) *cobra.Command {
	var req apimodel.ImageRequest
	cmd := &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate an image from a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			prefs := a.prefs.Get()
			req.Prompt = args[0]
			if req.Model == "" {
				req.Model = prefs.Model()
			}
			if req.Style == "" {
				req.Style = prefs.PreferredStyle
			}
			if req.Dimensions == "" {
				req.Dimensions = prefs.DefaultDimensions
			}
			job, err := a.gen.TextToImage(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJob(cmd, ctx, job)
		},
	}
	cmd.Flags().StringVar(&req.Model, "model", "", "Model (default from preferences)")
	cmd.Flags().StringVar(&req.Style, "style", "", "Style (default from preferences)")
	cmd.Flags().StringVar(&req.Dimensions, "dimensions", "", "Dimensions, e.g. 1024x1024")
	return cmd
}

func newGenerateVideoCommand(ctx *commandContext) *cobra.Command {
	var (
		req              apimodel.VideoRequest
		personGeneration string
		numberOfVideos   int
		enhancePrompt    bool
	)
	cmd := &cobra.Command{
		Use:   "video <prompt>",
		Short: "Generate a video from a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			req.Prompt = args[0]
			req.PersonGeneration = utils.PtrIf(personGeneration, flags.Changed("person-generation"))
			req.NumberOfVideos = utils.PtrIf(numberOfVideos, flags.Changed("number-of-videos"))
			req.EnhancePrompt = utils.PtrIf(enhancePrompt, flags.Changed("enhance-prompt"))
			job, err := a.gen.TextToVideo(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJob(cmd, ctx, job)
		},
	}
	cmd.Flags().StringVar(&req.Model, "model", "veo-2", "Model")
	cmd.Flags().StringVar(&req.AspectRatio, "aspect-ratio", "16:9", "Aspect ratio: 16:9, 9:16 or 1:1")
	cmd.Flags().StringVar(&personGeneration, "person-generation", "", "Person generation policy")
	cmd.Flags().IntVar(&numberOfVideos, "number-of-videos", 1, "Videos to generate (1-4)")
	cmd.Flags().BoolVar(&enhancePrompt, "enhance-prompt", false, "Let the model rewrite the prompt")
	return cmd
}

func newGenerateSpeechCommand(ctx *commandContext) *cobra.Command {
	var (
		req    apimodel.SpeechRequest
		voices []string
	)
	cmd := &cobra.Command{
		Use:   "speech <text>",
		Short: "Synthesise speech from text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			req.Input = args[0]
			for _, v := range voices {
				req.Voices = append(req.Voices, apimodel.Voice{VoiceID: v})
			}
			job, err := a.gen.TextToSpeech(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJob(cmd, ctx, job)
		},
	}
	cmd.Flags().StringVar(&req.Model, "model", "tts-1", "Model")
	cmd.Flags().StringSliceVar(&voices, "voice", nil, "Voice id (repeatable)")
	cmd.Flags().Float64Var(&req.Speed, "speed", 1, "Playback speed")
	cmd.Flags().StringVar(&req.OutputFormat, "format", "mp3", "Output format: mp3 or wav")
	cmd.Flags().StringVar(&req.OutputChannel, "channel", "mono", "Output channel: mono or stereo")
	cmd.Flags().StringVar(&req.Emotion, "emotion", "", "Emotion")
	cmd.Flags().StringVar(&req.Accent, "accent", "", "Accent")
	return cmd
}

func printJob(cmd *cobra.Command, ctx *commandContext, job *apimodel.History) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, job.Raw)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Submitted %s job %s. You will be notified when it finishes.\n", job.Type, job.UUID)
	return nil
}
