// Package execution submits editor text to the remote execution API and
// turns the response, or the failure, into the text shown in the output
// pane.
package execution

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isdmx/codepad/piston"
	"github.com/isdmx/codepad/registry"
)

// Output markers.
const (
	NoOutput           = "No output"
	UnexpectedResponse = "Unexpected response"
	UnexpectedError    = "An unexpected error occurred"

	failedPrefix = "Execution failed: "
)

var (
	// ErrEmptyEditor is returned when there is no text to run. No request is made.
	ErrEmptyEditor = errors.New("editor is empty")

	// ErrNoLanguage is returned when no language is selected. No request is made.
	ErrNoLanguage = errors.New("no language selected")
)

// Runner runs source text for a selected language.
type Runner interface {
	Run(ctx context.Context, text string, lang *registry.LanguageOption) (string, error)
}

// Client implements Runner on top of a piston.Executor.
type Client struct {
	executor piston.Executor
	logger   *zap.Logger
}

// New creates a Client
func New(executor piston.Executor, logger *zap.Logger) *Client {
	return &Client{
		executor: executor,
		logger:   logger,
	}
}

// Run submits text as the single file of an execution request for lang
// and returns the display string. The only errors are ErrEmptyEditor and
// ErrNoLanguage; every remote failure is folded into the returned text.
// Concurrent calls are independent.
func (c *Client) Run(ctx context.Context, text string, lang *registry.LanguageOption) (string, error) {
	if text == "" {
		return "", ErrEmptyEditor
	}
	if lang == nil {
		return "", ErrNoLanguage
	}

	runID := uuid.NewString()
	log := c.logger.With(
		zap.String("run_id", runID),
		zap.String("language", lang.Name),
		zap.String("version", lang.Version))

	log.Info("executing code", zap.Int("code_len", len(text)))

	resp, err := c.executor.Execute(ctx, BuildRequest(text, *lang))
	if err != nil {
		var malformed *piston.MalformedResponseError
		if errors.As(err, &malformed) {
			log.Error("malformed execution response", zap.Error(err), zap.ByteString("body", malformed.Body))
		} else {
			log.Error("execution request failed", zap.Error(err))
		}
		return describeFailure(err), nil
	}

	if resp.Run == nil {
		log.Warn("unexpected execution response", zap.ByteString("body", resp.Raw))
		return UnexpectedResponse, nil
	}

	log.Info("code execution completed",
		zap.Int("stdout_len", len(resp.Run.Stdout)),
		zap.Int("stderr_len", len(resp.Run.Stderr)))

	return Output(resp.Run), nil
}

// BuildRequest assembles the execution payload for text and lang.
func BuildRequest(text string, lang registry.LanguageOption) piston.ExecuteRequest {
	return piston.ExecuteRequest{
		Language: lang.Name,
		Version:  lang.Version,
		Files:    []piston.File{{Content: text}},
	}
}

// Output picks stdout, else stderr, else NoOutput.
func Output(run *piston.RunResult) string {
	switch {
	case run.Stdout != "":
		return run.Stdout
	case run.Stderr != "":
		return run.Stderr
	default:
		return NoOutput
	}
}

func describeFailure(err error) string {
	var apiErr *piston.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return failedPrefix + apiErr.Message
		}
		return failedPrefix + apiErr.Error()
	}

	if errors.Is(err, piston.ErrTransport) {
		return failedPrefix + err.Error()
	}

	return UnexpectedError
}

var _ Runner = (*Client)(nil)
