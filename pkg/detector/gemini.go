package detector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"helios-hq/ceres/pkg/telemetry"
)

// GeminiConfig contains configuration for the live Gemini-backed detector.
type GeminiConfig struct {
	// APIKey authenticates against the Gemini API.
	APIKey string

	// Model is the model identifier.
	// Default: "gemini-1.5-pro"
	Model string

	// Timeout bounds a single analysis round trip.
	// Default: 30 seconds
	Timeout time.Duration

	// MaxOutputTokens caps the response size.
	// Default: 1024
	MaxOutputTokens int32
}

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// DefaultGeminiConfig returns the default Gemini detector configuration.
func DefaultGeminiConfig() *GeminiConfig {
	return &GeminiConfig{
		Model:           DefaultModel,
		Timeout:         30 * time.Second,
		MaxOutputTokens: 1024,
	}
}

// GeminiDetector is a Detector backed by the Gemini API. The model is
// constrained to a JSON response schema mirroring the Report contract;
// free-text output, a refusal, or a schema mismatch surfaces as a
// ProtocolError rather than being interpreted leniently.
type GeminiDetector struct {
	client *genai.Client
	model  *genai.GenerativeModel
	config *GeminiConfig
	vocab  *Vocabulary
	logger *slog.Logger
}

const geminiSystemPrompt = `You are the heuristic anomaly detector for a 3-axis stabilized satellite attitude control system (ACS).

You are a READ-ONLY observer. You analyze telemetry patterns to surface micro-deviations that are within structural limits but indicate degraded subsystem performance. You do not control hardware; every action you propose is re-validated deterministically before any actuation.

The monitored hardware:
- 3 reaction wheels, nominal ~2000 RPM, structural limit ±6000 RPM.
- 3-axis gyroscope, nominal ~0.0 deg/s, stability limit ±5 deg/s.
- Attitude quaternion, which must remain unit-norm.

Anomaly signatures to look for:
1. Monotonic RPM drift on a single wheel across frames, even within bounds.
2. Cross-axis angular rate coupling.
3. Asymmetric wheel loading (one wheel diverging from the other two).
4. Progressive elevation of the angular rate noise floor.

Respond ONLY with the requested JSON object. Be conservative with the confidence score: a missed anomaly is operationally preferable to an unnecessary operator alert. The recommended_action MUST be one of the permitted actions listed in the request; do not invent actions.`

// NewGeminiDetector creates a live detector. The vocabulary is embedded in
// the prompt so the model knows the permitted action set; classification of
// the returned action still happens in the router.
func NewGeminiDetector(ctx context.Context, config *GeminiConfig, vocab *Vocabulary) (*GeminiDetector, error) {
	if config == nil {
		config = DefaultGeminiConfig()
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini detector requires an API key")
	}
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(config.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(geminiSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens:  &config.MaxOutputTokens,
		ResponseMIMEType: "application/json",
		ResponseSchema:   reportSchema(),
	}

	return &GeminiDetector{
		client: client,
		model:  model,
		config: config,
		vocab:  vocab,
		logger: slog.Default().With("component", "detector.gemini"),
	}, nil
}

// reportSchema constrains the model response to the Report contract.
func reportSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"anomaly_detected": {
				Type:        genai.TypeBoolean,
				Description: "True if the telemetry window exhibits an anomalous pattern.",
			},
			"confidence": {
				Type:        genai.TypeNumber,
				Description: "Confidence score in [0.0, 1.0]. Be conservative.",
			},
			"recommended_action": {
				Type:        genai.TypeString,
				Description: "One action from the permitted set in the request.",
			},
			"reasoning": {
				Type:        genai.TypeString,
				Description: "Justification referencing specific telemetry values.",
			},
			"affected_subsystem": {
				Type:        genai.TypeString,
				Description: "The implicated subsystem, e.g. 'ReactionWheel_2', or 'None'.",
			},
		},
		Required: []string{
			"anomaly_detected", "confidence", "recommended_action",
			"reasoning", "affected_subsystem",
		},
	}
}

// Analyze dispatches the frame window and validates the structured reply.
func (d *GeminiDetector) Analyze(ctx context.Context, window []*telemetry.Frame) (*Result, error) {
	prompt, err := d.buildPrompt(window)
	if err != nil {
		return nil, fmt.Errorf("failed to build detector prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	d.logger.Info("dispatching telemetry window for heuristic analysis",
		"frames", len(window),
		"model", d.config.Model,
	)

	resp, err := d.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, &ProtocolError{Reason: "analysis request failed", Cause: err}
	}

	raw, err := extractJSONReply(resp)
	if err != nil {
		return nil, err
	}

	report, err := ParseReport([]byte(raw))
	if err != nil {
		return nil, err
	}

	result := &Result{
		Report:       report,
		PromptSHA256: hashPrompt(prompt),
	}
	if resp.UsageMetadata != nil {
		result.Usage = &Usage{
			InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(resp.UsageMetadata.TotalTokenCount),
		}
	}

	d.logger.Info("heuristic analysis complete",
		"anomaly_detected", report.Detected,
		"confidence", report.Confidence,
		"recommended_action", report.RecommendedAction,
	)

	return result, nil
}

// Close releases the underlying API client.
func (d *GeminiDetector) Close() error {
	return d.client.Close()
}

// buildPrompt serializes the frame window into the analysis request.
func (d *GeminiDetector) buildPrompt(window []*telemetry.Frame) (string, error) {
	frames, err := json.MarshalIndent(window, "", "  ")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the following %d ACS telemetry frames for anomalies.\n\n", len(window))
	fmt.Fprintf(&b, "Permitted actions: %s\n\n", strings.Join(d.vocab.Actions(), ", "))
	fmt.Fprintf(&b, "```json\n%s\n```", frames)
	return b.String(), nil
}

// extractJSONReply pulls the JSON text out of the model response. An empty
// candidate list or a non-text part is a contract breach.
func extractJSONReply(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &ProtocolError{Reason: "model returned no candidates"}
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", &ProtocolError{Reason: "model returned no text content"}
	}
	return reply, nil
}

func hashPrompt(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}
