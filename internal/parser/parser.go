// Package parser recovers structured data from raw model output. Models
// wrap JSON in code fences or prose often enough that parsing is staged:
// strip fences, try the whole text, then try the bracketed substring.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MalformedResponseError reports model output that no parsing stage could
// recover a JSON payload from.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}

// IsMalformed reports whether err is a malformed-response error.
func IsMalformed(err error) bool {
	var e *MalformedResponseError
	return errors.As(err, &e)
}

// RawTask is the wire shape of one extracted task object.
type RawTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  string `json:"assigned_to"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
}

// RawRequest is the wire shape of one extracted client request object.
type RawRequest struct {
	Type         string `json:"type"`
	Description  string `json:"description"`
	Urgency      string `json:"urgency"`
	OriginalText string `json:"original_text"`
}

// Labels parses a JSON array of label strings from raw model output.
// Validation against the vocabulary is the caller's concern.
func Labels(raw string) ([]string, error) {
	payload, err := extractArray(raw)
	if err != nil {
		return nil, err
	}

	var labels []string
	if err := json.Unmarshal([]byte(payload), &labels); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: "array is not a list of strings: " + err.Error()}
	}

	out := labels[:0]
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return out, nil
}

// Tasks parses an array of task objects. Accepts either a bare array or an
// object wrapping it under a "tasks" key.
func Tasks(raw string) ([]RawTask, error) {
	payload, err := extractPayload(raw, "tasks")
	if err != nil {
		return nil, err
	}

	var tasks []RawTask
	if err := json.Unmarshal([]byte(payload), &tasks); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: "array is not a list of task objects: " + err.Error()}
	}
	return tasks, nil
}

// Requests parses an array of client-request objects. Accepts either a bare
// array or an object wrapping it under a "requests" key.
func Requests(raw string) ([]RawRequest, error) {
	payload, err := extractPayload(raw, "requests")
	if err != nil {
		return nil, err
	}

	var requests []RawRequest
	if err := json.Unmarshal([]byte(payload), &requests); err != nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: "array is not a list of request objects: " + err.Error()}
	}
	return requests, nil
}

// Sentiment parses a single score in [-1, 1] from model output. The first
// numeric token wins when the model pads the score with words.
func Sentiment(raw string) (float64, error) {
	trimmed := strings.TrimSpace(stripCodeFence(raw))

	if score, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return clampSentiment(score), nil
	}

	for _, field := range strings.Fields(trimmed) {
		field = strings.Trim(field, ".,;:()")
		if score, err := strconv.ParseFloat(field, 64); err == nil {
			return clampSentiment(score), nil
		}
	}
	return 0, &MalformedResponseError{Raw: raw, Reason: "no numeric sentiment score found"}
}

func clampSentiment(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// extractPayload finds the JSON array in raw, unwrapping a {"<key>": [...]}
// envelope when the model produced one.
func extractPayload(raw, key string) (string, error) {
	cleaned := strings.TrimSpace(stripCodeFence(raw))

	// Envelope object first: {"tasks": [...]}
	if strings.HasPrefix(cleaned, "{") {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal([]byte(cleaned), &envelope); err == nil {
			if inner, ok := envelope[key]; ok {
				return string(inner), nil
			}
		}
	}

	return extractArray(raw)
}

// extractArray runs the staged recovery for a JSON array: direct parse
// after fence stripping, then the first-'['..last-']' substring.
func extractArray(raw string) (string, error) {
	cleaned := strings.TrimSpace(stripCodeFence(raw))

	if json.Valid([]byte(cleaned)) && strings.HasPrefix(cleaned, "[") {
		return cleaned, nil
	}

	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end < start {
		return "", &MalformedResponseError{Raw: raw, Reason: "no JSON array found in output"}
	}

	candidate := cleaned[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", &MalformedResponseError{Raw: raw, Reason: "bracketed substring is not valid JSON"}
	}
	return candidate, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence if present.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		// Drop the language tag on the opening fence line.
		first := strings.TrimSpace(trimmed[:idx])
		if first == "json" || first == "" {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
