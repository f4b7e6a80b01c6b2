package claude

import (
	"reflect"
	"testing"
)

func TestParseDescription(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantObjects []string
		wantLabels  []string
		wantText    string
		wantErr     bool
	}{
		{
			name:        "clean JSON",
			input:       `{"objects": ["dog", "park"], "labels": ["outdoors"], "text": ""}`,
			wantObjects: []string{"dog", "park"},
			wantLabels:  []string{"outdoors"},
		},
		{
			name:        "fenced with prose",
			input:       "Here is the description:\n```json\n{\"objects\": [\"cake\"], \"labels\": [], \"text\": \"Happy Birthday\"}\n```",
			wantObjects: []string{"cake"},
			wantText:    "Happy Birthday",
		},
		{
			name:        "blank strings dropped",
			input:       `{"objects": ["  ", "dog", ""], "labels": ["", "animal "]}`,
			wantObjects: []string{"dog"},
			wantLabels:  []string{"animal"},
		},
		{
			name:    "no JSON at all",
			input:   "I cannot describe this image.",
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			input:   `{"objects": [unquoted]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDescription(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDescription failed: %v", err)
			}
			if !reflect.DeepEqual(got.Objects, tt.wantObjects) {
				t.Errorf("objects = %v, want %v", got.Objects, tt.wantObjects)
			}
			if !reflect.DeepEqual(got.Labels, tt.wantLabels) {
				t.Errorf("labels = %v, want %v", got.Labels, tt.wantLabels)
			}
			if got.Text != tt.wantText {
				t.Errorf("text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}
