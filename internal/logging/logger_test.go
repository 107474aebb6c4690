package logging

import "testing"

func TestNewDefault_LogLevelEnv(t *testing.T) {
	cases := []struct {
		env  string
		want Level
	}{
		{"ERROR", LevelError},
		{"WARN", LevelWarn},
		{"INFO", LevelInfo},
		{"DEBUG", LevelDebug},
		{"", LevelInfo},
		{"garbage", LevelInfo},
	}
	for _, tc := range cases {
		t.Setenv("LOG_LEVEL", tc.env)
		if got := NewDefault().GetLevel(); got != tc.want {
			t.Errorf("LOG_LEVEL=%q: level = %d, want %d", tc.env, got, tc.want)
		}
	}
}

func TestWithComponent_KeepsLevel(t *testing.T) {
	l := New(LevelWarn).WithComponent("loader")
	if l.GetLevel() != LevelWarn {
		t.Errorf("component logger level = %d, want %d", l.GetLevel(), LevelWarn)
	}
}
