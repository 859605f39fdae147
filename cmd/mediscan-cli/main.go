// Command mediscan-cli runs one analysis from the command line and prints
// the result as tables.
//
//	mediscan-cli xray chest.png
//	mediscan-cli symptoms "headache and a mild fever"
//
// Exit status is 0 on success, 1 when the analysis fails and 2 on usage
// errors.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/vbonduro/mediscan/internal/apperr"
	"github.com/vbonduro/mediscan/internal/config"
	"github.com/vbonduro/mediscan/internal/domain"
	"github.com/vbonduro/mediscan/internal/intake"
	"github.com/vbonduro/mediscan/internal/llm"
	"github.com/vbonduro/mediscan/internal/llm/claude"
	"github.com/vbonduro/mediscan/internal/llm/gemini"
	"github.com/vbonduro/mediscan/internal/llm/ollama"
	"github.com/vbonduro/mediscan/internal/logging"
	"github.com/vbonduro/mediscan/internal/render"
	"github.com/vbonduro/mediscan/internal/service"
	"github.com/vbonduro/mediscan/internal/session"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mediscan-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	backend := fs.String("backend", "", "override LLM_BACKEND (gemini, claude, ollama)")
	verbose := fs.Bool("v", false, "log pipeline events to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: mediscan-cli [flags] xray <image> | symptoms <text>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 2
	}

	kind, ok := map[string]domain.Kind{"xray": domain.KindXRay, "symptoms": domain.KindSymptoms}[fs.Arg(0)]
	if !ok {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	switch *backend {
	case "":
	case "gemini", "claude", "ollama":
		cfg.LLMBackend = *backend
	default:
		fs.Usage()
		return 2
	}
	level := "error"
	if *verbose {
		level = "debug"
	}
	logger, cleanup, err := logging.New(level, "text", "")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer cleanup()

	in, err := readInput(kind, fs.Arg(1))
	if err != nil {
		logger.Error("input rejected",
			"kind", kind,
			"error_kind", apperr.KindValidation,
			"error_reason", apperr.ReasonOf(err),
			"error", err,
		)
		fmt.Fprintln(stderr, apperr.Message(err))
		return 1
	}

	svc := service.NewAnalysisService(newGateway(cfg), nil, cfg.AnalysisTimeout, logger)
	sess := session.New("cli", kind, svc, logger)
	if err := sess.Submit(context.Background(), in); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	st := sess.Snapshot()
	if st.Phase == session.PhaseError {
		fmt.Fprintln(stderr, st.Message())
		return 1
	}
	if err := render.Terminal(stdout, st.Result); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func readInput(kind domain.Kind, arg string) (intake.Input, error) {
	if kind == domain.KindSymptoms {
		return intake.TextInput(arg), nil
	}
	f, err := os.Open(arg)
	if err != nil {
		return intake.Input{}, apperr.InvalidInput(fmt.Sprintf("Cannot open %s.", arg), err)
	}
	defer func() { _ = f.Close() }()

	data, err := intake.ReadImage(f)
	if err != nil {
		return intake.Input{}, err
	}
	return intake.ImageInput(data), nil
}

func newGateway(cfg *config.Config) llm.Gateway {
	switch cfg.LLMBackend {
	case "claude":
		return claude.NewGateway(cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.ClaudeBaseURL)
	case "ollama":
		return ollama.NewGateway(cfg.OllamaHost, cfg.OllamaModel)
	default:
		return gemini.NewGateway(cfg.GeminiKey(), cfg.GeminiModel, cfg.GeminiBaseURL)
	}
}
