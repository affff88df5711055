package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/bddrun/pkg/lifecycle"
)

func TestParseDOM(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		limit     int
		wantTitle string
		want      []string
		wantNot   []string
		truncated bool
	}{
		{
			name: "removes scripts and styles",
			input: `<html><head><title>Login</title>
				<script>alert('x');</script><style>body { color: red; }</style></head>
				<body><h1 id="heading">Sign in</h1><p class="hint">Use your account.</p></body></html>`,
			limit:     10000,
			wantTitle: "Login",
			want:      []string{`<h1 id="heading">`, "Sign in", `<p class="hint">`, "Use your account."},
			wantNot:   []string{"<script>", "alert", "<style>", "color: red"},
		},
		{
			name: "keeps selector attributes",
			input: `<form action="/login" method="post" onsubmit="go()">
				<label for="user">User</label>
				<input type="text" name="username" placeholder="Email" data-test="user" style="x">
				<button type="submit" class="primary">Sign in</button></form>`,
			limit: 10000,
			want: []string{
				`<form action="/login" method="post">`,
				`<label for="user">`,
				`name="username"`,
				`placeholder="Email"`,
				`data-test="user"`,
				`<button type="submit" class="primary">`,
			},
			wantNot: []string{"onsubmit", "style="},
		},
		{
			name:    "drops comments and collapses whitespace",
			input:   "<div><!-- hidden -->Hello\n\n   world</div>",
			limit:   10000,
			want:    []string{"Hello world"},
			wantNot: []string{"hidden"},
		},
		{
			name:      "truncates long text",
			input:     "<p>" + strings.Repeat("a", 500) + "</p>",
			limit:     100,
			want:      []string{"..."},
			truncated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := ParseDOM(tt.input, tt.limit)
			require.NoError(t, err)

			assert.Equal(t, tt.wantTitle, snap.Title)
			assert.Equal(t, tt.truncated, snap.Truncated)
			for _, s := range tt.want {
				assert.Contains(t, snap.HTML, s)
			}
			for _, s := range tt.wantNot {
				assert.NotContains(t, snap.HTML, s)
			}
		})
	}
}

func TestDOMSnapshot_Bytes(t *testing.T) {
	snap := &DOMSnapshot{Title: "Login", URL: "https://example.test/login", HTML: "<p>x</p>", Truncated: true}
	out := string(snap.Bytes())

	assert.Contains(t, out, "<!-- url: https://example.test/login -->")
	assert.Contains(t, out, "<!-- title: Login -->")
	assert.Contains(t, out, "<!-- truncated -->")
	assert.True(t, strings.HasSuffix(out, "<p>x</p>\n"))
}

func TestSession_DOMSnapshotWithoutPage(t *testing.T) {
	_, err := (&Session{}).DOMSnapshot()
	assert.ErrorIs(t, err, lifecycle.ErrEnvironmentClosed)
}
