package state

import (
	"context"
	"log"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/encoding/charmap"

	"scorewd/config"
)

func TestContextWithEnv(t *testing.T) {
	ctx := ContextWithEnv(context.Background())

	env := EnvFromContext(ctx)
	if env == nil {
		t.Fatal("EnvFromContext() returned nil")
	}
	if env.start.IsZero() {
		t.Error("Environment start time not set")
	}
	if env.CodePage != nil {
		t.Error("CodePage must be nil unless forced")
	}
}

func TestEnvFromContext_PanicOnMissingEnv(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for context without env")
		}
	}()
	EnvFromContext(context.Background())
}

func TestLocalEnv_Uptime(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	time.Sleep(5 * time.Millisecond)
	if env.Uptime() < 5*time.Millisecond {
		t.Errorf("Uptime() = %v, expected at least 5ms", env.Uptime())
	}
}

func TestLocalEnv_RedirectAndRestore(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))

	// no logger yet - must be a no-op
	env.RedirectStdLog()
	env.RestoreStdLog()

	env.Log = zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	env.Cfg = &config.Config{Version: 1}
	env.CodePage = charmap.CodePage866

	env.RedirectStdLog()
	log.Print("standard log goes to zap")
	env.RestoreStdLog()
}

func TestLocalEnv_ForceCodePage(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	log := zaptest.NewLogger(t)

	env.ForceCodePage("", log)
	if env.CodePage != nil {
		t.Error("empty name must not set CodePage")
	}

	env.ForceCodePage("windows-1251", log)
	if env.CodePage != charmap.Windows1251 {
		t.Errorf("CodePage = %v, want windows-1251", env.CodePage)
	}

	env.ForceCodePage("no-such-charset", log)
	if env.CodePage != nil {
		t.Error("unknown name must reset CodePage")
	}
}
