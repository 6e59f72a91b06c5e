package shellquote_test

import (
	"testing"

	"descargo/pkg/shellquote"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name string
		bin  string
		args []string
		want string
	}{
		{
			name: "plain args stay unquoted",
			bin:  "ffmpeg",
			args: []string{"-i", "clip.mp4", "-c", "copy", "out.mp4"},
			want: "ffmpeg -i clip.mp4 -c copy out.mp4",
		},
		{
			name: "spaces get quoted",
			bin:  "ffmpeg",
			args: []string{"-i", "my clip.mp4"},
			want: `ffmpeg -i "my clip.mp4"`,
		},
		{
			name: "shell specials escaped",
			bin:  "echo",
			args: []string{`a"b`, "c$d", "e`f"},
			want: "echo \"a\\\"b\" \"c\\$d\" \"e\\`f\"",
		},
		{
			name: "empty arg kept visible",
			bin:  "tool",
			args: []string{""},
			want: `tool ""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shellquote.Join(tt.bin, tt.args)
			if got != tt.want {
				t.Errorf("Join = %s, want %s", got, tt.want)
			}
		})
	}
}
