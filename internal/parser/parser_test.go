package parser

import (
	"reflect"
	"testing"
)

func TestLabelsDirect(t *testing.T) {
	labels, err := Labels(`["schedule_meeting", "plan_contact"]`)
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	want := []string{"schedule_meeting", "plan_contact"}
	if !reflect.DeepEqual(labels, want) {
		t.Errorf("Labels = %v, want %v", labels, want)
	}
}

func TestLabelsEmptyArray(t *testing.T) {
	labels, err := Labels("[]")
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if len(labels) != 0 {
		t.Errorf("Labels = %v, want empty", labels)
	}
}

func TestLabelsCodeFence(t *testing.T) {
	raw := "```json\n[\"update_kyc_total_assets\"]\n```"
	labels, err := Labels(raw)
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if len(labels) != 1 || labels[0] != "update_kyc_total_assets" {
		t.Errorf("Labels = %v", labels)
	}
}

func TestLabelsLeadingProse(t *testing.T) {
	raw := `Sure! Here are the tasks I identified: ["schedule_meeting"] Let me know if you need more.`
	labels, err := Labels(raw)
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if len(labels) != 1 || labels[0] != "schedule_meeting" {
		t.Errorf("Labels = %v", labels)
	}
}

func TestLabelsNoArray(t *testing.T) {
	_, err := Labels("I could not find any tasks in this conversation.")
	if !IsMalformed(err) {
		t.Errorf("Labels without array = %v, want malformed-response error", err)
	}
}

func TestLabelsDropsBlankEntries(t *testing.T) {
	labels, err := Labels(`["plan_contact", "  ", ""]`)
	if err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if len(labels) != 1 || labels[0] != "plan_contact" {
		t.Errorf("Labels = %v", labels)
	}
}

func TestTasksBareArray(t *testing.T) {
	raw := `[{"title": "Call client", "description": "Follow up", "assigned_to": "advisor", "priority": "high", "due_date": "2026-09-01"}]`
	tasks, err := Tasks(raw)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks", len(tasks))
	}
	if tasks[0].Title != "Call client" || tasks[0].Priority != "high" || tasks[0].DueDate != "2026-09-01" {
		t.Errorf("task = %+v", tasks[0])
	}
}

func TestTasksEnvelopeObject(t *testing.T) {
	raw := `{"tasks": [{"title": "Update address"}]}`
	tasks, err := Tasks(raw)
	if err != nil {
		t.Fatalf("Tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Update address" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestRequestsEnvelope(t *testing.T) {
	raw := "```json\n{\"requests\": [{\"type\": \"complaint\", \"urgency\": \"high\", \"original_text\": \"this fee is wrong\"}]}\n```"
	reqs, err := Requests(raw)
	if err != nil {
		t.Fatalf("Requests: %v", err)
	}
	if len(reqs) != 1 || reqs[0].Type != "complaint" || reqs[0].OriginalText != "this fee is wrong" {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestSentiment(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"0.7", 0.7},
		{" -0.25 \n", -0.25},
		{"The sentiment score is 0.4 overall.", 0.4},
		{"```\n0.9\n```", 0.9},
		{"5.0", 1.0},  // clamped
		{"-3", -1.0},  // clamped
	}
	for _, c := range cases {
		got, err := Sentiment(c.raw)
		if err != nil {
			t.Errorf("Sentiment(%q): %v", c.raw, err)
			continue
		}
		if got != c.want {
			t.Errorf("Sentiment(%q) = %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestSentimentMalformed(t *testing.T) {
	_, err := Sentiment("the mood was generally positive")
	if !IsMalformed(err) {
		t.Errorf("Sentiment without number = %v, want malformed-response error", err)
	}
}
