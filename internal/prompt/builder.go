// Package prompt builds the instruction text sent to every model backend.
// All backends share the same prompts so their outputs stay comparable.
package prompt

import (
	"fmt"
	"strings"

	"github.com/meetinsight/service/internal/models"
)

const labelInstructions = `You are an expert AI assistant specialized in analyzing bank client conversations to extract actionable tasks.

ALLOWED TASK TYPES (use these exact labels):
- plan_contact: Planning future contact or communication (no specific time is set, might only be a date)
- schedule_meeting: Scheduling meetings or appointments
- update_contact_info_non_postal: Updating email, phone, or other non-address contact info
- update_contact_info_postal_address: Updating postal/mailing address
- update_kyc_activity: Updating Know Your Customer activity information
- update_kyc_origin_of_assets: Updating information about origin of assets
- update_kyc_purpose_of_businessrelation: Updating purpose of business relationship
- update_kyc_total_assets: Updating total assets information

INSTRUCTIONS:
1. Read the conversation transcript carefully
2. Identify actionable tasks that the client advisor needs to complete
3. Map each task to one of the allowed task types above
4. Return ONLY a JSON array of the relevant task type strings
5. If no tasks are identified, return an empty array: []
6. Do not include any explanation, just the JSON array`

// Builder assembles prompts, optionally carrying a few-shot training block
// that is appended to every system prompt.
type Builder struct {
	trainingContext string
}

func NewBuilder(trainingContext string) *Builder {
	return &Builder{trainingContext: trainingContext}
}

// SystemPrompt returns the label-prediction system prompt, with the few-shot
// block appended when one is configured.
func (b *Builder) SystemPrompt() string {
	if b.trainingContext != "" {
		return labelInstructions + "\n\nTraining Examples:\n" + b.trainingContext
	}
	return labelInstructions
}

// UserPrompt wraps a transcript for label prediction.
func (b *Builder) UserPrompt(transcript string) string {
	return "\nAnalyze this bank client conversation transcript and extract all actionable tasks:\n\n" + transcript
}

// SinglePrompt merges system and user prompts for backends without
// role-separated chat, ending with a cue for the expected output shape.
func (b *Builder) SinglePrompt(transcript string) string {
	return fmt.Sprintf("%s\n\n%s\n\nTasks (JSON array):", b.SystemPrompt(), b.UserPrompt(transcript))
}

// TaskSystemPrompt is the system role for structured task extraction.
func TaskSystemPrompt() string {
	return "You are an expert at analyzing meeting transcripts and extracting actionable tasks. Always respond in valid JSON format."
}

// TaskUserPrompt asks for structured action items from a transcript.
func TaskUserPrompt(transcript string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following meeting transcript and extract all action items and tasks mentioned.\n")
	sb.WriteString("For each task, provide:\n")
	sb.WriteString("1. A clear title\n")
	sb.WriteString("2. A description\n")
	sb.WriteString("3. Who is responsible (if mentioned)\n")
	sb.WriteString("4. Priority level (high/medium/low)\n")
	sb.WriteString("5. Due date (if mentioned)\n\n")
	sb.WriteString("Return the results as a JSON array of objects with keys: title, description, assigned_to, priority, due_date.\n\n")
	sb.WriteString("Transcript:\n")
	sb.WriteString(transcript)
	return sb.String()
}

// RequestSystemPrompt is the system role for client-request extraction.
func RequestSystemPrompt() string {
	return "You are an expert at analyzing client conversations and identifying requests and service inquiries. Always respond in valid JSON format."
}

// RequestUserPrompt asks for client requests, questions, and inquiries.
func RequestUserPrompt(transcript string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following meeting transcript and extract all client requests, questions, or service inquiries.\n")
	sb.WriteString("For each request, provide:\n")
	sb.WriteString("1. Type of request (service_inquiry, complaint, information_request, etc.)\n")
	sb.WriteString("2. Description of the request\n")
	sb.WriteString("3. Urgency level (high/medium/low)\n")
	sb.WriteString("4. The exact text where this was mentioned\n\n")
	sb.WriteString("Return the results as a JSON array of objects with keys: type, description, urgency, original_text.\n\n")
	sb.WriteString("Transcript:\n")
	sb.WriteString(transcript)
	return sb.String()
}

// SentimentSystemPrompt is the system role for sentiment scoring.
func SentimentSystemPrompt() string {
	return "You are a sentiment analysis expert. Return only a numerical score between -1.0 and 1.0."
}

// SentimentUserPrompt asks for a single sentiment score.
func SentimentUserPrompt(transcript string) string {
	return fmt.Sprintf("Analyze the sentiment of this meeting transcript.\nReturn a sentiment score between -1.0 (very negative) and 1.0 (very positive).\nOnly return the numerical score.\n\nText: %s", transcript)
}

// TrainingContext formats selected evaluation examples into the few-shot
// block appended to system prompts.
func TrainingContext(examples []Example) string {
	if len(examples) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("TRAINING EXAMPLES FOR TASK EXTRACTION:\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	sb.WriteString("Below are representative examples showing conversations and expected task extractions:\n\n")

	for i, ex := range examples {
		sb.WriteString(fmt.Sprintf("EXAMPLE %d:\n", i+1))
		if ex.Reason != "" {
			sb.WriteString("Purpose: " + ex.Reason + "\n")
		}
		sb.WriteString("\nCONVERSATION:\n")
		sb.WriteString(ex.Transcript)
		sb.WriteString("\n\n")
		if len(ex.Labels) > 0 {
			sb.WriteString(fmt.Sprintf("EXPECTED TASKS: %s\n", formatLabels(ex.Labels)))
		} else {
			sb.WriteString("EXPECTED TASKS: [] (no tasks)\n")
		}
		sb.WriteString("\n" + strings.Repeat("-", 30) + "\n\n")
	}
	return sb.String()
}

// Example is one few-shot sample: a transcript, its expected labels, and
// why it was picked.
type Example struct {
	Transcript string
	Labels     []string
	Reason     string
}

func formatLabels(labels []string) string {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = fmt.Sprintf("%q", l)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Vocabulary returns the labels the prompts instruct models to use. Kept
// here so the prompt text and validation can never drift apart silently.
func Vocabulary() []string {
	return models.TaskLabels
}
