package gmail

import (
	"encoding/json"
	"net/http"
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"
)

func TestNewReaderConfig(t *testing.T) {
	tests := []struct {
		name    string
		client  *http.Client
		config  string
		wantErr bool
	}{
		{"defaults", http.DefaultClient, `{}`, false},
		{"full", http.DefaultClient, `{"query": "label:scans", "interval": 30, "categories": {"EDF": "Energie"}, "locale": "fr"}`, false},
		{"no client", nil, `{}`, true},
		{"unknown locale", http.DefaultClient, `{"locale": "es"}`, true},
		{"malformed", http.DefaultClient, `{"query":`, true},
	}

	p := &Plugin{}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.NewReader(tc.client, json.RawMessage(tc.config), nil)
			if (err != nil) != tc.wantErr {
				t.Errorf("NewReader: got error %v, want error %v", err, tc.wantErr)
			}
		})
	}
}

func TestRequiredScopes(t *testing.T) {
	p := &Plugin{}
	if got := p.RequiredScopes(); len(got) != 1 || got[0] != gmailapi.GmailModifyScope {
		t.Errorf("scopes: got %v, want [%s]", got, gmailapi.GmailModifyScope)
	}
}
