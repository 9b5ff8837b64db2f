package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"promptreel/internal/api"
	"promptreel/internal/generation"
	"promptreel/internal/logging"
	"promptreel/internal/services"
)

// VeoConfig configures the Google GenAI backend.
type VeoConfig struct {
	APIKey        string
	Model         string
	Models        []string
	EstimatedTime time.Duration
}

// videoOperations is the slice of the genai client the backend depends on.
type videoOperations interface {
	generateVideos(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	getVideosOperation(ctx context.Context, name string) (*genai.GenerateVideosOperation, error)
}

type genaiOperations struct {
	client *genai.Client
}

func (g genaiOperations) generateVideos(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return g.client.Models.GenerateVideos(ctx, model, prompt, nil, cfg)
}

func (g genaiOperations) getVideosOperation(ctx context.Context, name string) (*genai.GenerateVideosOperation, error) {
	return g.client.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: name}, nil)
}

// VeoProvider implements Provider with Veo long-running operations. The
// operation name doubles as the task id.
type VeoProvider struct {
	cfg    VeoConfig
	ops    videoOperations
	logger *slog.Logger
}

// NewVeo connects a genai client using the Gemini API backend.
func NewVeo(ctx context.Context, cfg VeoConfig, logger *slog.Logger) (*VeoProvider, error) {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "provider", "init veo", "api key required (set provider.api_key or GEMINI_API_KEY)", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "provider", "init veo", "create genai client", err)
	}
	return newVeo(cfg, genaiOperations{client: client}, logger), nil
}

func newVeo(cfg VeoConfig, ops videoOperations, logger *slog.Logger) *VeoProvider {
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &VeoProvider{cfg: cfg, ops: ops, logger: logging.NewComponentLogger(logger, "provider-veo")}
}

func (p *VeoProvider) Name() string { return BackendVeo }

func (p *VeoProvider) Models() []string {
	if len(p.cfg.Models) > 0 {
		return append([]string(nil), p.cfg.Models...)
	}
	if p.cfg.Model != "" {
		return []string{p.cfg.Model}
	}
	return []string{}
}

func (p *VeoProvider) Submit(ctx context.Context, req api.GenerateRequest) (Outcome, error) {
	duration := int32(req.Duration)
	videoCfg := &genai.GenerateVideosConfig{
		NumberOfVideos:  1,
		AspectRatio:     req.AspectRatio,
		DurationSeconds: &duration,
		Resolution:      resolutionFor(req.Quality),
	}
	op, err := p.ops.generateVideos(ctx, p.cfg.Model, promptWithStyle(req.Prompt, req.Style), videoCfg)
	if err != nil {
		return Outcome{}, fmt.Errorf("provider submit: generate videos: %w", err)
	}
	outcome := p.fromOperation(op)
	p.logger.Info("veo accepted generation",
		logging.String(logging.FieldTaskID, outcome.TaskID),
		logging.String("status", outcome.Status.String()),
		logging.String("model", p.cfg.Model),
	)
	return outcome, nil
}

func (p *VeoProvider) CheckStatus(ctx context.Context, taskID string) (Outcome, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return Outcome{}, services.Wrap(services.ErrValidation, "provider", "check status", "task id required", nil)
	}
	op, err := p.ops.getVideosOperation(ctx, taskID)
	if err != nil {
		return Outcome{}, fmt.Errorf("provider status: get operation: %w", err)
	}
	return p.fromOperation(op), nil
}

func (p *VeoProvider) fromOperation(op *genai.GenerateVideosOperation) Outcome {
	if op == nil {
		return Outcome{Status: generation.StatusFailed, Error: "provider returned no operation"}
	}
	if msg := operationError(op.Error); msg != "" {
		return Outcome{Status: generation.StatusFailed, TaskID: op.Name, Error: msg}
	}
	if !op.Done {
		return Outcome{Status: generation.StatusProcessing, TaskID: op.Name, EstimatedTime: p.cfg.EstimatedTime}
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		msg := "provider returned no videos"
		if op.Response != nil && len(op.Response.RAIMediaFilteredReasons) > 0 {
			msg = "filtered by provider safety checks: " + strings.Join(op.Response.RAIMediaFilteredReasons, "; ")
		}
		return Outcome{Status: generation.StatusFailed, TaskID: op.Name, Error: msg}
	}
	video := op.Response.GeneratedVideos[0]
	if video == nil || video.Video == nil {
		return Outcome{Status: generation.StatusFailed, TaskID: op.Name, Error: "provider returned an empty video"}
	}
	return completedOrFailed(video.Video.URI, op.Name)
}

func operationError(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	if msg, ok := details["message"].(string); ok && strings.TrimSpace(msg) != "" {
		return strings.TrimSpace(msg)
	}
	return fmt.Sprint(details)
}

func promptWithStyle(prompt, style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return prompt
	}
	return prompt + "\n\nVisual style: " + style
}

func resolutionFor(quality string) string {
	if quality == generation.QualityHigh {
		return "1080p"
	}
	return "720p"
}
