package provider

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestResolveKeyPriorityChain(t *testing.T) {
	keyring.MockInit()
	t.Setenv("DEEPSEEK_API_KEY", "")

	// Nothing set anywhere: the config value is the fallback.
	if got := ResolveKey("deepseek", "from-config", nil); got != "from-config" {
		t.Errorf("ResolveKey = %q, want config value", got)
	}

	// A stored keyring entry wins over the config value.
	if err := StoreKey("deepseek", "from-keyring"); err != nil {
		t.Fatalf("StoreKey: %v", err)
	}
	if got := ResolveKey("deepseek", "from-config", nil); got != "from-keyring" {
		t.Errorf("ResolveKey = %q, want keyring value", got)
	}

	// The environment variable wins over both.
	t.Setenv("DEEPSEEK_API_KEY", "from-env")
	if got := ResolveKey("deepseek", "from-config", nil); got != "from-env" {
		t.Errorf("ResolveKey = %q, want env value", got)
	}
}

func TestDeleteKeyRemovesStoredKey(t *testing.T) {
	keyring.MockInit()

	if err := StoreKey("gemini", "secret"); err != nil {
		t.Fatalf("StoreKey: %v", err)
	}
	if err := DeleteKey("gemini"); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if got := ResolveKey("gemini", "", nil); got != "" {
		t.Errorf("ResolveKey after delete = %q, want empty", got)
	}
}

func TestEnvVarForConventionalNames(t *testing.T) {
	t.Parallel()
	for providerName, want := range map[string]string{
		"chatgpt":  "OPENAI_API_KEY",
		"gemini":   "GEMINI_API_KEY",
		"deepseek": "DEEPSEEK_API_KEY",
	} {
		if got := envVarFor(providerName); got != want {
			t.Errorf("envVarFor(%s) = %q, want %q", providerName, got, want)
		}
	}
}
