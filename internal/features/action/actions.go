package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"go.uber.org/zap"

	"go-pubflow/internal/features/pub"
)

// WebhookAction POSTs the pub payload to a configured URL.
type WebhookAction struct {
	httpClient *http.Client
}

func NewWebhookAction() *WebhookAction {
	return &WebhookAction{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *WebhookAction) Name() string { return "webhook" }

func (a *WebhookAction) ValidateConfig(config map[string]interface{}) error {
	url, _ := config["url"].(string)
	if url == "" {
		return fmt.Errorf("webhook action requires a url")
	}
	if method, ok := config["method"].(string); ok && method != "" {
		switch strings.ToUpper(method) {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			return fmt.Errorf("webhook method %q is not supported", method)
		}
	}
	return nil
}

func (a *WebhookAction) Invoke(ctx context.Context, config map[string]interface{}, inv Invocation) Outcome {
	url, _ := config["url"].(string)
	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	payload := map[string]interface{}{
		"pub":       inv.Pub,
		"stage_id":  inv.StageID.Hex(),
		"run_id":    inv.RunID.Hex(),
		"timestamp": time.Now().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return failure(fmt.Errorf("failed to marshal webhook payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, bytes.NewReader(body))
	if err != nil {
		return failure(fmt.Errorf("failed to create webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if headers, ok := config["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			req.Header.Set(key, fmt.Sprintf("%v", value))
		}
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return failure(fmt.Errorf("failed to send webhook: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return failure(fmt.Errorf("webhook returned error status: %d", resp.StatusCode))
	}
	return success(map[string]interface{}{"status_code": resp.StatusCode})
}

// RunScriptAction runs a Tengo script with the pub bound as variables.
type RunScriptAction struct{}

func NewRunScriptAction() *RunScriptAction { return &RunScriptAction{} }

func (a *RunScriptAction) Name() string { return "run_script" }

func (a *RunScriptAction) ValidateConfig(config map[string]interface{}) error {
	script, _ := config["script"].(string)
	if script == "" {
		return fmt.Errorf("run_script action requires script content")
	}
	if _, err := tengo.NewScript([]byte(script)).Compile(); err != nil {
		return fmt.Errorf("script does not compile: %w", err)
	}
	return nil
}

func (a *RunScriptAction) Invoke(ctx context.Context, config map[string]interface{}, inv Invocation) Outcome {
	scriptContent, _ := config["script"].(string)

	script := tengo.NewScript([]byte(scriptContent))
	script.Add("pub", inv.Pub.Snapshot())
	script.Add("stage", inv.StageID.Hex())

	compiled, err := script.Compile()
	if err != nil {
		return failure(fmt.Errorf("failed to compile script: %w", err))
	}
	if err := compiled.RunContext(ctx); err != nil {
		return failure(fmt.Errorf("failed to run script: %w", err))
	}

	result := map[string]interface{}{}
	if out := compiled.Get("output"); !out.IsUndefined() {
		result["output"] = out.Value()
	}
	return success(result)
}

// UpdateFieldAction writes one field on the triggering pub.
type UpdateFieldAction struct {
	pubRepo pub.PubRepository
}

func NewUpdateFieldAction(pubRepo pub.PubRepository) *UpdateFieldAction {
	return &UpdateFieldAction{pubRepo: pubRepo}
}

func (a *UpdateFieldAction) Name() string { return "update_field" }

func (a *UpdateFieldAction) ValidateConfig(config map[string]interface{}) error {
	field, _ := config["field"].(string)
	if field == "" {
		return fmt.Errorf("update_field action requires a field name")
	}
	if _, ok := config["value"]; !ok {
		return fmt.Errorf("update_field action requires a value")
	}
	return nil
}

func (a *UpdateFieldAction) Invoke(ctx context.Context, config map[string]interface{}, inv Invocation) Outcome {
	field, _ := config["field"].(string)
	value := config["value"]

	if err := a.pubRepo.SetValue(ctx, inv.Pub.ID, field, value); err != nil {
		return failure(fmt.Errorf("failed to update field: %w", err))
	}
	return success(map[string]interface{}{"field": field, "value": value})
}

// NoteAction records a templated message in the log stream.
type NoteAction struct {
	logger *zap.Logger
}

func NewNoteAction(logger *zap.Logger) *NoteAction {
	return &NoteAction{logger: logger}
}

func (a *NoteAction) Name() string { return "note" }

func (a *NoteAction) ValidateConfig(config map[string]interface{}) error {
	message, _ := config["message"].(string)
	if message == "" {
		return fmt.Errorf("note action requires a message")
	}
	return nil
}

func (a *NoteAction) Invoke(_ context.Context, config map[string]interface{}, inv Invocation) Outcome {
	message, _ := config["message"].(string)
	message = replacePlaceholders(message, inv.Pub.Snapshot())

	a.logger.Info(message,
		zap.String("automationId", inv.AutomationID.Hex()),
		zap.String("runId", inv.RunID.Hex()),
		zap.String("pubId", inv.Pub.ID.Hex()),
		zap.String("diagnostic", "note"))
	return success(map[string]interface{}{"message": message})
}

// replacePlaceholders substitutes {{key}} tokens with snapshot values.
func replacePlaceholders(text string, snapshot map[string]interface{}) string {
	for key, value := range snapshot {
		placeholder := fmt.Sprintf("{{%s}}", key)
		text = strings.ReplaceAll(text, placeholder, fmt.Sprintf("%v", value))
	}
	return text
}
