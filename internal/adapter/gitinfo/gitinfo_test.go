package gitinfo_test

import (
	"testing"

	"github.com/vibecheck/issuesync/internal/adapter/gitinfo"
)

func TestParseRemoteURL(t *testing.T) {
	tests := []struct {
		url       string
		wantHost  string
		wantOwner string
		wantName  string
		wantErr   bool
	}{
		{url: "https://github.com/acme/widgets", wantHost: "github.com", wantOwner: "acme", wantName: "widgets"},
		{url: "https://github.com/acme/widgets.git", wantHost: "github.com", wantOwner: "acme", wantName: "widgets"},
		{url: "https://github.com/acme/widgets/", wantHost: "github.com", wantOwner: "acme", wantName: "widgets"},
		{url: "git@github.com:acme/widgets.git", wantHost: "github.com", wantOwner: "acme", wantName: "widgets"},
		{url: "git@github.com:acme/widgets", wantHost: "github.com", wantOwner: "acme", wantName: "widgets"},
		{url: "ssh://git@github.com/acme/widgets.git", wantHost: "github.com", wantOwner: "acme", wantName: "widgets"},
		{url: "https://gitlab.example.com/team/service.git", wantHost: "gitlab.example.com", wantOwner: "team", wantName: "service"},
		{url: "https://github.com/acme", wantErr: true},
		{url: "not a url", wantErr: true},
		{url: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			host, owner, name, err := gitinfo.ParseRemoteURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %s/%s/%s", host, owner, name)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRemoteURL(%q): %v", tt.url, err)
			}
			if host != tt.wantHost || owner != tt.wantOwner || name != tt.wantName {
				t.Errorf("ParseRemoteURL(%q) = %s/%s/%s, want %s/%s/%s",
					tt.url, host, owner, name, tt.wantHost, tt.wantOwner, tt.wantName)
			}
		})
	}
}
