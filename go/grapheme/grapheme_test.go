package grapheme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Cluster
	}{
		{"empty", "", nil},
		{"ascii", "hi!", []Cluster{"h", "i", "!"}},
		{"chinese", "你好", []Cluster{"你", "好"}},
		{"vs16 joins", "heart❤\ufe0f", []Cluster{"h", "e", "a", "r", "t", "❤\ufe0f"}},
		{"zwj sequence stays intact", "a\U0001F468\u200d\U0001F469\u200d\U0001F467z", []Cluster{"a", "\U0001F468\u200d\U0001F469\u200d\U0001F467", "z"}},
		{"leading joiner starts cluster", "\u200dx", []Cluster{"\u200dx"}},
		{"regional indicators split", "\U0001F1E8\U0001F1F3", []Cluster{"\U0001F1E8", "\U0001F1F3"}},
		{"skin tone modifier splits", "\U0001F44D\U0001F3FD", []Cluster{"\U0001F44D", "\U0001F3FD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestSplitCoversInput(t *testing.T) {
	inputs := []string{
		"请问你看到张三了吗",
		"mixed 文字 and \U0001F600\ufe0f emoji",
		"\U0001F468\u200d\U0001F469\u200d\U0001F466",
	}
	for _, in := range inputs {
		clusters := Split(in)
		var joined strings.Builder
		for _, cluster := range clusters {
			require.NotEmpty(t, cluster)
			joined.WriteString(string(cluster))
		}
		require.Equal(t, in, joined.String())
	}
}

func TestEmoji(t *testing.T) {
	tests := []struct {
		name    string
		cluster Cluster
		want    bool
	}{
		{"letter", "a", false},
		{"chinese", "你", false},
		{"digit", "7", false},
		{"smiley", "\U0001F600", true},
		{"vs16 presentation", "❤\ufe0f", true},
		{"zwj family", "\U0001F468\u200d\U0001F469\u200d\U0001F467", true},
		{"copyright symbol", "©", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.cluster.Emoji())
		})
	}
}

func TestClusterRuneCount(t *testing.T) {
	require.Equal(t, 1, Cluster("a").RuneCount())
	require.Equal(t, 1, Cluster("你").RuneCount())
	require.Equal(t, 2, Cluster("❤\ufe0f").RuneCount())
	require.Equal(t, 5, Cluster("\U0001F468\u200d\U0001F469\u200d\U0001F467").RuneCount())
}
