package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screen-translate-overlay/src/config"
	"screen-translate-overlay/src/llm"
)

const (
	maxFileSizeMB = 10
	maxFileSize   = maxFileSizeMB * 1024 * 1024
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

type cliOptions struct {
	jsonOutput bool
	verbose    bool
	apiKeyPath string
	envPath    string
	model      string
	provider   string
	noStream   bool

	// translate
	to string

	// refine / read
	text        string
	instruction string
	imagePath   string
	audioPath   string
	prompt      string
}

// backend is the part of llm.Client the commands use.
type backend interface {
	StreamCompletion(ctx context.Context, req llm.Request, onChunk llm.ChunkFunc) (string, error)
	Translate(ctx context.Context, text, lang, modelID, provider string, streaming bool, onChunk llm.ChunkFunc) (string, error)
	Refine(ctx context.Context, rc llm.Context, previous, instruction, modelID, provider string, streaming bool, onChunk llm.ChunkFunc) (string, error)
}

// newBackend is replaced in tests.
var newBackend = func(opts cliOptions) (backend, *config.Config, error) {
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		APIKeyPathOverride: opts.apiKeyPath,
		EnvPath:            opts.envPath,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("OPENROUTER_API_KEY not found. Checked key file %s and OPENROUTER_API_KEY env var", cfg.APIKeyPath)
	}
	client := llm.New(llm.Config{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Providers:   cfg.Providers,
		RefineModel: cfg.RefineModel,
		Endpoint:    cfg.Endpoint,
		Timeout:     cfg.RequestTimeout,
	}, cfg.Catalog)
	return client, cfg, nil
}

func main() {
	if err := runWithArgs(os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		args = []string{"overlay-cli"}
	}
	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "overlay-cli",
		Short:         "Stream translations and refinements to stdout without opening windows",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetOutput(cmd.ErrOrStderr())
			} else {
				log.SetOutput(io.Discard)
			}
		},
	}
	pf := root.PersistentFlags()
	pf.BoolVar(&opts.jsonOutput, "json", false, "Output the final result as JSON instead of streaming text")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	pf.StringVar(&opts.apiKeyPath, "api-key-path", "", "Path to API key file (highest precedence)")
	pf.StringVar(&opts.envPath, "env", "", "Path to a .env file")
	pf.StringVar(&opts.model, "model", "", "Model id or catalog preset (default MODEL)")
	pf.StringVar(&opts.provider, "provider", "", "Preferred provider")
	pf.BoolVar(&opts.noStream, "no-stream", false, "Wait for the whole response instead of streaming")

	translate := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate text (argument, --text or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd, opts.text, args)
			if err != nil {
				return err
			}
			return execute(cmd, *opts, "translate", func(b backend, onChunk llm.ChunkFunc) (string, error) {
				return b.Translate(cmd.Context(), text, opts.to, opts.model, opts.provider, !opts.noStream, onChunk)
			})
		},
	}
	translate.Flags().StringVar(&opts.to, "to", "English", "Target language")
	translate.Flags().StringVar(&opts.text, "text", "", "Text to translate")

	refine := &cobra.Command{
		Use:   "refine",
		Short: "Rewrite previous output with an instruction, optionally resending the source image or audio",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.instruction) == "" {
				return fmt.Errorf("--instruction is required")
			}
			rc, source, err := loadContext(opts.imagePath, opts.audioPath)
			if err != nil {
				return err
			}
			previous, err := inputText(cmd, opts.text, nil)
			if err != nil && rc.Kind == llm.NoContext {
				return err
			}
			return execute(cmd, *opts, source, func(b backend, onChunk llm.ChunkFunc) (string, error) {
				return b.Refine(cmd.Context(), rc, previous, opts.instruction, opts.model, opts.provider, !opts.noStream, onChunk)
			})
		},
	}
	refine.Flags().StringVar(&opts.instruction, "instruction", "", "What to change")
	refine.Flags().StringVar(&opts.text, "text", "", "Previous result (default stdin when no context is given)")
	refine.Flags().StringVar(&opts.imagePath, "image", "", "PNG context to resend")
	refine.Flags().StringVar(&opts.audioPath, "audio", "", "WAV context to resend")
	refine.MarkFlagsMutuallyExclusive("image", "audio")

	read := &cobra.Command{
		Use:   "read",
		Short: "Run the capture prompt against a PNG or WAV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, source, err := loadContext(opts.imagePath, opts.audioPath)
			if err != nil {
				return err
			}
			if rc.Kind == llm.NoContext {
				return fmt.Errorf("one of --image or --audio is required")
			}
			return execute(cmd, *opts, source, func(b backend, onChunk llm.ChunkFunc) (string, error) {
				return b.StreamCompletion(cmd.Context(), llm.Request{
					Prompt:    opts.prompt,
					Context:   rc,
					ModelID:   opts.model,
					Provider:  opts.provider,
					Streaming: !opts.noStream,
				}, onChunk)
			})
		},
	}
	read.Flags().StringVar(&opts.imagePath, "image", "", "PNG file ('-' for stdin)")
	read.Flags().StringVar(&opts.audioPath, "audio", "", "WAV file")
	read.Flags().StringVar(&opts.prompt, "prompt", config.DefaultPrompt, "Instruction sent with the file")
	read.MarkFlagsMutuallyExclusive("image", "audio")

	root.AddCommand(translate, refine, read)
	return root
}

func inputText(cmd *cobra.Command, flagText string, args []string) (string, error) {
	switch {
	case flagText != "":
		return flagText, nil
	case len(args) > 0:
		return args[0], nil
	}
	data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	if len(data) > maxFileSize {
		return "", fmt.Errorf("input exceeds maximum size of %d MB", maxFileSizeMB)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no input text")
	}
	return text, nil
}

// loadContext reads an optional image or audio file into a refinement context.
func loadContext(imagePath, audioPath string) (llm.Context, string, error) {
	switch {
	case imagePath != "":
		data, err := readFile(imagePath)
		if err != nil {
			return llm.Context{}, "", err
		}
		if len(data) < len(pngMagic) || !bytes.Equal(data[:len(pngMagic)], pngMagic) {
			return llm.Context{}, "", fmt.Errorf("input is not a valid PNG file (invalid magic number)")
		}
		return llm.Image(data), imagePath, nil
	case audioPath != "":
		data, err := readFile(audioPath)
		if err != nil {
			return llm.Context{}, "", err
		}
		if _, err := llm.ValidateWAV(data); err != nil {
			return llm.Context{}, "", fmt.Errorf("%s: %w", audioPath, err)
		}
		return llm.Audio(data), audioPath, nil
	}
	return llm.Context{}, "text", nil
}

func readFile(path string) ([]byte, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(io.LimitReader(os.Stdin, maxFileSize+1))
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("input file is empty")
	}
	if len(data) > maxFileSize {
		return nil, fmt.Errorf("input file exceeds maximum size of %d MB", maxFileSizeMB)
	}
	return data, nil
}

type Result struct {
	Text      string  `json:"text"`
	Source    string  `json:"source"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func execute(cmd *cobra.Command, opts cliOptions, source string, call func(backend, llm.ChunkFunc) (string, error)) error {
	b, _, err := newBackend(opts)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	onChunk := func(delta string) { fmt.Fprint(out, delta) }
	if opts.jsonOutput {
		onChunk = func(string) {}
	}

	start := time.Now()
	text, err := call(b, onChunk)
	elapsed := time.Since(start)
	if err != nil {
		log.Printf("CLI: failed after %v: %v", elapsed, err)
		return fmt.Errorf("%s", llm.ErrorMessage(err, "en"))
	}
	log.Printf("CLI: completed in %v, %d characters", elapsed, len(text))

	if !opts.jsonOutput {
		fmt.Fprintln(out)
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Result{
		Text:      text,
		Source:    source,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len([]rune(text)),
	}); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
