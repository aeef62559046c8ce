package tracing

import "testing"

func TestConfigEnabled(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"both keys", Config{PublicKey: "pk", SecretKey: "sk"}, true},
		{"public only", Config{PublicKey: "pk"}, false},
		{"secret only", Config{SecretKey: "sk"}, false},
		{"none", Config{}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.cfg.Enabled(); got != tc.want {
				t.Errorf("Enabled() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSetup_Disabled(t *testing.T) {
	t.Parallel()

	h, flush, ok := Setup(Config{})
	if ok || h != nil || flush != nil {
		t.Errorf("Setup(empty) = (%v, %v, %v), want (nil, nil, false)", h, flush != nil, ok)
	}
}

func TestInstall_DisabledFlushIsSafe(t *testing.T) {
	t.Parallel()

	flush, enabled := Install(Config{})
	if enabled {
		t.Fatal("Install(empty) enabled = true")
	}
	flush()
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LANGFUSE_HOST", "https://cloud.langfuse.com")
	t.Setenv("LANGFUSE_PUBLIC_KEY", "pk-lf")
	t.Setenv("LANGFUSE_SECRET_KEY", "sk-lf")

	cfg := ConfigFromEnv("v1.0.0")
	if !cfg.Enabled() || cfg.Host != "https://cloud.langfuse.com" || cfg.Release != "v1.0.0" {
		t.Errorf("ConfigFromEnv() = %+v", cfg)
	}
}
