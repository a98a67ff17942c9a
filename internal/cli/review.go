package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"hrportal/internal/common"
	"hrportal/internal/errors"
	"hrportal/internal/formatters"
	"hrportal/internal/review"
	"hrportal/internal/session"
	"hrportal/internal/types"

	"github.com/charmbracelet/glamour"
	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	chatExit  = "/exit"
	chatReset = "/reset"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run a performance review from the command line",
	Long: `Run the same performance review the portal runs, against a resume file
(.pdf or plain text) or pasted text. The cleaned review is written to stdout or
--output; the toxicity score goes to stderr.

With --chat an interactive session follows so you can defend your profile.
Type /reset to drop the session or /exit to leave.

Examples:
  hrportal review --persona "Cutthroat Tech Bro" --file resume.pdf
  hrportal review --text "Built a blockchain app in my dorm room" --chat`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		reviewConfig.OutputFormat = reviewConfig.ResolvedFormat(cfg.App.DefaultFormat)
		return common.ValidateOutputFormat(reviewConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runReview,
}

var (
	reviewConfig  common.CommandConfig
	reviewPersona string
	reviewFile    string
	reviewText    string
	reviewLore    string
	reviewChat    bool
)

func init() {
	reviewCmd.Flags().StringVarP(&reviewPersona, "persona", "P", "", "Manager persona (prompted for when omitted on a terminal)")
	reviewCmd.Flags().StringVarP(&reviewFile, "file", "f", "", "Candidate resume or LinkedIn export (.pdf or text)")
	reviewCmd.Flags().StringVarP(&reviewText, "text", "t", "", "Candidate bio or resume text")
	reviewCmd.Flags().StringVar(&reviewLore, "lore", "", "Lore file (default from config)")
	reviewCmd.Flags().BoolVar(&reviewChat, "chat", false, "Continue with an interactive chat after the review")
	reviewCmd.Flags().StringVarP(&reviewConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	reviewCmd.Flags().StringVar(&reviewConfig.OutputFormat, "format", "", "Output format: text, markdown, or json (default: implied by --output, then config)")

	reviewCmd.MarkFlagsMutuallyExclusive("file", "text")

	_ = reviewCmd.RegisterFlagCompletionFunc("persona", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return personaLabels(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = reviewCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatters.GlobalRegistry.GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	persona, err := resolvePersona(reviewPersona, isInteractive())
	if err != nil {
		return err
	}

	service, err := newAIService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	loreFile := cfg.Review.LoreFile
	if reviewLore != "" {
		loreFile = reviewLore
	}

	runner := &common.ReviewRunner{
		Starter:   service,
		Assembler: review.NewAssembler(cfg.Review.PromptTemplate),
		Output:    common.NewOutputHandler(logger).WithWriter(cmd.OutOrStdout()),
		Logger:    logger,
	}
	req := common.ReviewRequest{
		Persona:       persona,
		CandidateFile: reviewFile,
		CandidateText: reviewText,
		Lore:          review.LoadLore(loreFile),
		MaxFileSize:   cfg.App.MaxFileSize,
	}

	conv := session.NewConversation(session.NewID())
	fmt.Fprintln(cmd.ErrOrStderr(), "Analyzing candidate clout metrics and synergies...")
	result, err := runner.Run(ctx, conv, req, reviewConfig)
	if err != nil {
		return fmt.Errorf("failed to run performance review: %w", err)
	}

	if !result.ScoreAvailable {
		logger.Warn("Model reply carried no toxicity score")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Toxicity Score: %s\n", formatters.ScoreLabel(result.Score))

	if !reviewChat {
		return nil
	}
	return runChat(ctx, conv, promptReader{}, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// lineReader reads one chat message; io.EOF ends the chat
type lineReader interface {
	ReadLine(label string) (string, error)
}

type promptReader struct{}

func (promptReader) ReadLine(label string) (string, error) {
	prompt := promptui.Prompt{Label: label}
	line, err := prompt.Run()
	if stderrors.Is(err, promptui.ErrInterrupt) || stderrors.Is(err, promptui.ErrEOF) {
		return "", io.EOF
	}
	return line, err
}

// runChat drives Reply and Reset on conv until the user leaves
func runChat(ctx context.Context, conv *session.Conversation, in lineReader, out, errOut io.Writer, logger *errors.Logger) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		renderer = nil
	}

	fmt.Fprintf(out, "\n💬 Live Manager Evaluation (%s to start over, %s to leave)\n", chatReset, chatExit)
	for ctx.Err() == nil {
		line, err := in.ReadLine("Defend your profile")
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case chatExit:
			return nil
		case chatReset:
			conv.Reset()
			fmt.Fprintln(out, "Session reset. Run the review again to evaluate a new candidate.")
			return nil
		}

		fmt.Fprintln(errOut, "Drafting a passive-aggressive retort...")
		turn, err := conv.Reply(ctx, line)
		if err != nil {
			logger.LogError(err, "Chat reply failed")
			fmt.Fprintln(errOut, errors.UserMessage(err))
			continue
		}
		fmt.Fprintln(out, renderReply(renderer, turn.Content))
	}
	return nil
}

func renderReply(renderer *glamour.TermRenderer, text string) string {
	if renderer == nil {
		return text
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return rendered
}

// resolvePersona parses flag, or asks for one when it is empty and the
// terminal is interactive
func resolvePersona(flag string, interactive bool) (types.Persona, error) {
	if flag == "" && interactive {
		sel := promptui.Select{
			Label: "Select Manager Persona",
			Items: personaLabels(),
		}
		_, chosen, err := sel.Run()
		if err != nil {
			return "", err
		}
		flag = chosen
	}

	persona, err := types.ParsePersona(flag)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidPersona,
			fmt.Sprintf("--persona must be one of: %s", strings.Join(personaLabels(), ", ")), err)
	}
	return persona, nil
}

func personaLabels() []string {
	personas := types.AllPersonas()
	labels := make([]string, len(personas))
	for i, p := range personas {
		labels[i] = string(p)
	}
	return labels
}

func isInteractive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}
