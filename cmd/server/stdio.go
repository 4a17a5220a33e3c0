package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/meetinsight/service/internal/extract"
	"github.com/meetinsight/service/internal/models"
)

const serverVersion = "1.0.0"

// runStdio serves the extraction tools over MCP on stdin/stdout. Logs go
// to stderr so they cannot corrupt the protocol stream.
func runStdio(service *extract.Service, log *logrus.Logger) {
	s := server.NewMCPServer(
		"meetinsight",
		serverVersion,
		server.WithResourceCapabilities(true, true),
	)

	registerTools(s, service, log)

	log.Info("MCP stdio server ready")
	if err := server.ServeStdio(s); err != nil {
		log.WithError(err).Fatal("stdio server failed")
	}
}

func registerTools(s *server.MCPServer, service *extract.Service, log *logrus.Logger) {
	extractTasksTool := mcp.NewTool("extract_tasks",
		mcp.WithDescription("Extract action items and tasks from a meeting transcript"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Meeting transcript text"),
		),
		mcp.WithString("model_type",
			mcp.Description("Backend to use (apertus, azure_openai, huggingface, local); defaults to the active model"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to record this extraction under"),
		),
	)
	s.AddTool(extractTasksTool, extractionHandler(service, log, "tasks"))

	extractRequestsTool := mcp.NewTool("extract_requests",
		mcp.WithDescription("Extract client requests and service inquiries from a meeting transcript"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Meeting transcript text"),
		),
		mcp.WithString("model_type",
			mcp.Description("Backend to use; defaults to the active model"),
		),
		mcp.WithString("session_id",
			mcp.Description("Session to record this extraction under"),
		),
	)
	s.AddTool(extractRequestsTool, extractionHandler(service, log, "requests"))

	sentimentTool := mcp.NewTool("analyze_sentiment",
		mcp.WithDescription("Score the sentiment of a meeting transcript between -1.0 and 1.0"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Meeting transcript text"),
		),
		mcp.WithString("model_type",
			mcp.Description("Backend to use; defaults to the active model"),
		),
	)
	s.AddTool(sentimentTool, extractionHandler(service, log, "sentiment"))

	predictLabelsTool := mcp.NewTool("predict_labels",
		mcp.WithDescription("Map a transcript onto the fixed task-type label vocabulary"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Meeting transcript text"),
		),
		mcp.WithString("model_type",
			mcp.Description("Backend to use; defaults to the active model"),
		),
	)
	s.AddTool(predictLabelsTool, predictLabelsHandler(service, log))

	switchModelTool := mcp.NewTool("switch_model",
		mcp.WithDescription("Change the active extraction backend"),
		mcp.WithString("model_type",
			mcp.Required(),
			mcp.Description("Backend to activate (apertus, azure_openai, huggingface, local)"),
		),
	)
	s.AddTool(switchModelTool, switchModelHandler(service, log))
}

func stringArg(request mcp.CallToolRequest, key string) string {
	if v, ok := request.Params.Arguments[key].(string); ok {
		return v
	}
	return ""
}

func extractionHandler(service *extract.Service, log *logrus.Logger, kind string) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := stringArg(request, "text")
		if text == "" {
			return mcp.NewToolResultText("error: text is required"), nil
		}

		req := &models.ExtractionRequest{
			Text:      text,
			ModelType: models.ModelType(stringArg(request, "model_type")),
			SessionID: stringArg(request, "session_id"),
		}
		switch kind {
		case "tasks":
			req.ExtractTasks = true
		case "requests":
			req.ExtractRequests = true
		case "sentiment":
			req.ExtractSentiment = true
		}

		result, err := service.Extract(ctx, req)
		if err != nil {
			log.WithField("kind", kind).WithError(err).Error("tool call failed")
			return mcp.NewToolResultText(fmt.Sprintf("error: %v", err)), nil
		}

		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return mcp.NewToolResultText(fmt.Sprintf("error: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func predictLabelsHandler(service *extract.Service, log *logrus.Logger) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text := stringArg(request, "text")
		if text == "" {
			return mcp.NewToolResultText("error: text is required"), nil
		}

		labels, err := service.PredictLabels(ctx, models.ModelType(stringArg(request, "model_type")), text)
		if err != nil {
			log.WithError(err).Error("label prediction failed")
			return mcp.NewToolResultText(fmt.Sprintf("error: %v", err)), nil
		}

		payload, err := json.Marshal(map[string]any{"labels": labels})
		if err != nil {
			return mcp.NewToolResultText(fmt.Sprintf("error: %v", err)), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

func switchModelHandler(service *extract.Service, log *logrus.Logger) func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target := stringArg(request, "model_type")
		if target == "" {
			return mcp.NewToolResultText("error: model_type is required"), nil
		}

		if err := service.SwitchModel(models.ModelType(target)); err != nil {
			log.WithField("model", target).WithError(err).Warn("model switch rejected")
			return mcp.NewToolResultText(fmt.Sprintf("error: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("active model switched to %s", target)), nil
	}
}
