package appversion_test

import (
	"strings"
	"testing"

	appversion "github.com/chatcore/chatd/internal/version"
)

func TestFull(t *testing.T) {
	t.Parallel()

	out := appversion.Full("chatd")
	for _, want := range []string{"chatd", appversion.Version, appversion.GitCommit, appversion.BuildDate} {
		if !strings.Contains(out, want) {
			t.Errorf("Full() = %q, want it to contain %q", out, want)
		}
	}
}
