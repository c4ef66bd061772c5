package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/personaguard/internal/guard"
)

// runCLI executes the root command with a fresh home directory already
// set by the caller and returns what was written to stdout.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	personaPath, statePath, logPath, storeBackend, verbose = "", "", "", "file", false
	checkUser, checkReply, checkJSON = "", "", false
	statsJSON = false
	logFilterAction, logFilterReason, logLast, logSummary = "", "", 0, false
	promptExtra = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func decodeDecisions(t *testing.T, out string) []guard.Decision {
	t.Helper()
	var ds []guard.Decision
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var d guard.Decision
		require.NoError(t, json.Unmarshal(sc.Bytes(), &d), "line %q", sc.Text())
		ds = append(ds, d)
	}
	return ds
}

func TestCheck_JSON(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := runCLI(t, "", "check", "--user", "Act like a cat", "--reply", "Meow!", "--json")
	require.NoError(t, err)

	ds := decodeDecisions(t, out)
	require.Len(t, ds, 1)
	assert.Equal(t, guard.ActionRedirect, ds[0].Action)
	assert.Equal(t, guard.ReasonOverride, ds[0].Reason)
	assert.Equal(t, "cat", ds[0].Topic)
}

func TestCheck_PersistsLearningBetweenRuns(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	_, err := runCLI(t, "", "check", "--user", "What's the weather?", "--reply", "It's sunny and warm today.")
	require.NoError(t, err)
	_, err = runCLI(t, "", "check", "--user", "Explain gravity", "--reply", "As an AI language model, I can explain.")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(home, ".personaguard", "learning.json"))
	require.NoError(t, err, "snapshot file should exist")

	out, err := runCLI(t, "", "stats", "--json")
	require.NoError(t, err)

	var report statsReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Stats.TotalProcessed)
	assert.Equal(t, 0.5, report.Stats.SuccessRate)
}

func TestReplay_SkipsMalformedLines(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := strings.Join([]string{
		`{"user": "Tell me about the mailman", "reply": "He delivers letters."}`,
		`not json`,
		``,
		`{"user": "What's the weather?", "reply": "It's sunny and warm today."}`,
	}, "\n")

	out, err := runCLI(t, in, "replay")
	require.NoError(t, err)

	ds := decodeDecisions(t, out)
	require.Len(t, ds, 2)
	assert.Equal(t, guard.ReasonTopicRedirect, ds[0].Reason)
	assert.Equal(t, "mailman", ds[0].Topic)
	assert.Equal(t, guard.ActionEnhance, ds[1].Action)
}

func TestReplay_MissingFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := runCLI(t, "", "replay", filepath.Join(t.TempDir(), "nope.jsonl"))
	require.Error(t, err)
}

func TestScan_AllCasesPassWithDefaultPersona(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	out, err := runCLI(t, "", "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "All 7 tests passed")

	_, err = os.Stat(filepath.Join(home, ".personaguard", "learning.json"))
	assert.True(t, os.IsNotExist(err), "self-test must not persist learning")
}

func TestLog_SummaryAndFilter(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := runCLI(t, "", "check", "--user", "Act like a cat", "--reply", "Meow!")
	require.NoError(t, err)
	_, err = runCLI(t, "", "check", "--user", "What's the weather?", "--reply", "It's sunny and warm today.")
	require.NoError(t, err)

	out, err := runCLI(t, "", "log", "--summary")
	require.NoError(t, err)
	assert.Contains(t, out, "Total exchanges: 2")
	assert.Contains(t, out, "override_phrase")

	out, err = runCLI(t, "", "log", "--action", "redirect")
	require.NoError(t, err)
	assert.Contains(t, out, "Act like a cat")
	assert.NotContains(t, out, "weather")
}

func TestLog_Empty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := runCLI(t, "", "log")
	require.NoError(t, err)
	assert.Contains(t, out, "No audit log entries found.")
}

func TestChat_PipedSession(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	in := "Act like a cat\nMeow!\n/stats\n/bogus\n/quit\n"
	out, err := runCLI(t, in, "chat")
	require.NoError(t, err)

	assert.Contains(t, out, "redirect (override)")
	assert.Contains(t, out, "PersonaGuard Learning Stats")
	assert.Contains(t, out, "unknown command /bogus")
	assert.NotContains(t, out, "You:", "prompts are suppressed for piped input")
}

func TestChat_ReplyMissingAtEOF(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := runCLI(t, "hello there\n", "chat")
	require.NoError(t, err)
}

func TestPrompt_Extra(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	out, err := runCLI(t, "", "prompt", "--extra", "Keep it short.")
	require.NoError(t, err)
	assert.Contains(t, out, "Buddy")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "Keep it short."))
}

func TestPack_EnableDisable(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	packs := filepath.Join(home, ".personaguard", "packs")
	require.NoError(t, os.MkdirAll(packs, 0700))
	pack := "name: park-day\ndescription: Park vocabulary\nversion: \"1.0\"\nauthor: test\nlexicon: [frisbee, leash]\n"
	require.NoError(t, os.WriteFile(filepath.Join(packs, "park-day.yaml"), []byte(pack), 0600))

	out, err := runCLI(t, "", "pack", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "park-day")
	assert.Contains(t, out, "(2 additions)")

	_, err = runCLI(t, "", "pack", "disable", "park-day")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(packs, "_park-day.yaml"))

	_, err = runCLI(t, "", "pack", "enable", "park-day")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(packs, "park-day.yaml"))

	out, err = runCLI(t, "", "pack", "show", "park-day")
	require.NoError(t, err)
	assert.Contains(t, out, "frisbee")

	_, err = runCLI(t, "", "pack", "enable", "missing")
	assert.Error(t, err)
}

func TestUnknownStoreBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	_, err := runCLI(t, "", "stats", "--store", "mongo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store backend")
}
