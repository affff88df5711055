package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildIdentity(t *testing.T) {
	started := time.UnixMilli(1700000000123)

	tests := []struct {
		name     string
		info     Info
		wantKey  string
		wantName string
	}{
		{
			name:     "plain scenario has no suffix",
			info:     Info{Name: "Login", Steps: []string{"I open the login page"}},
			wantKey:  "Login",
			wantName: "Login-1700000000123",
		},
		{
			name: "outline picks the row present in the steps",
			info: Info{
				Name:  "Search",
				Steps: []string{"I search for \"shoes\"", "I see 12 results"},
				Examples: []ExampleTable{{Rows: [][]string{
					{"hats", "3"},
					{"shoes", "12"},
				}}},
			},
			wantKey:  "Search[shoes, 12]",
			wantName: "Search[shoes, 12]-1700000000123",
		},
		{
			name: "rows from later tables are considered",
			info: Info{
				Name:  "Checkout",
				Steps: []string{"I pay with visa"},
				Examples: []ExampleTable{
					{Name: "cash", Rows: [][]string{{"cash"}}},
					{Name: "cards", Rows: [][]string{{"visa"}}},
				},
			},
			wantKey:  "Checkout[visa]",
			wantName: "Checkout[visa]-1700000000123",
		},
		{
			name: "no matching row yields no suffix",
			info: Info{
				Name:     "Checkout",
				Steps:    []string{"I pay with paypal"},
				Examples: []ExampleTable{{Rows: [][]string{{"visa"}}}},
			},
			wantKey:  "Checkout",
			wantName: "Checkout-1700000000123",
		},
		{
			name: "first substring match wins",
			info: Info{
				Name:  "Count",
				Steps: []string{"I add 10 items"},
				Examples: []ExampleTable{{Rows: [][]string{
					{"1"},
					{"10"},
				}}},
			},
			wantKey:  "Count[1]",
			wantName: "Count[1]-1700000000123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := BuildIdentity(tt.info, started)
			assert.Equal(t, tt.wantKey, id.Key)
			assert.Equal(t, tt.wantName, id.Name)
			assert.Equal(t, tt.info.Name, id.Template)
			assert.Equal(t, tt.wantName, id.String())
		})
	}
}

func TestBuildIdentity_UniqueAcrossRetries(t *testing.T) {
	info := Info{Name: "Login"}
	first := BuildIdentity(info, time.UnixMilli(100))
	second := BuildIdentity(info, time.UnixMilli(101))

	assert.Equal(t, first.Key, second.Key)
	assert.NotEqual(t, first.Name, second.Name)
}

func TestMatchExampleRow_SkipsEmptyRows(t *testing.T) {
	values, ok := MatchExampleRow([]ExampleTable{{Rows: [][]string{{}, {"a"}}}}, "abc")
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, values)
}

func TestInfo_HasTag(t *testing.T) {
	info := Info{Tags: []string{"@smoke", "@insecure"}}
	assert.True(t, info.HasTag("@insecure"))
	assert.False(t, info.HasTag("@slow"))
}
