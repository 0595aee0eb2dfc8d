package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAniListStub answers page, airing and by-id queries with fixed data.
// Every page of anime carries one adult record that must be filtered out.
func newAniListStub(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		vars := req.Variables
		switch {
		case vars["id"] != nil:
			fmt.Fprintf(w, `{"data":{"Media":{"id":%v,"type":"ANIME","seasonYear":2020,"title":{"romaji":"Looked Up"},"genres":["Drama"]}}}`, vars["id"])
		case vars["from"] != nil:
			fmt.Fprint(w, `{"data":{"Page":{"pageInfo":{"hasNextPage":false,"currentPage":1},"airingSchedules":[]}}}`)
		case vars["type"] == "MANGA":
			fmt.Fprintf(w, `{"data":{"Page":{"pageInfo":{"hasNextPage":true,"currentPage":%v},"media":[
				{"id":201,"type":"MANGA","title":{"english":"Stub Manga"},"genres":["Romance"]}]}}}`, vars["page"])
		default:
			fmt.Fprintf(w, `{"data":{"Page":{"pageInfo":{"hasNextPage":true,"currentPage":%v},"media":[
				{"id":101,"type":"ANIME","title":{"romaji":"Stub Anime"},"genres":["Action"]},
				{"id":102,"type":"ANIME","isAdult":true,"title":{"romaji":"Hidden"},"genres":[]}]}}}`, vars["page"])
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeTestConfig(t *testing.T, endpoint string) string {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`log:
  level: warn
database:
  driver: sqlite
  path: %s
anilist:
  endpoint: %s
sync:
  pages_per_kind: 1
storage:
  type: local
  local_dir: %s
  prefix: snapshots/
`, filepath.Join(dir, "state.db"), endpoint, filepath.Join(dir, "snapshots"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func statusJSON(t *testing.T, configPath string) map[string]interface{} {
	t.Helper()
	out, err := runCLI(t, configPath, "status", "--json")
	require.NoError(t, err)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &status), out)
	return status
}

func TestSyncModeAndStatus(t *testing.T) {
	cfgPath := writeTestConfig(t, newAniListStub(t).URL)

	out, err := runCLI(t, cfgPath, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "POPULARITY_DESC")
	assert.Contains(t, out, "anime 1, manga 1")

	out, err = runCLI(t, cfgPath, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 2 items (anime 1, manga 1)")
	assert.Contains(t, out, "Next pages: anime 2, manga 2")

	status := statusJSON(t, cfgPath)
	assert.EqualValues(t, 2, status["remote_total"])
	lastRun := status["last_run"].(map[string]interface{})
	assert.Equal(t, "completed", lastRun["status"])

	out, err = runCLI(t, cfgPath, "mode", "id_desc")
	require.NoError(t, err)
	assert.Contains(t, out, "ID_DESC")
	assert.Contains(t, out, "anime 1, manga 1")

	_, err = runCLI(t, cfgPath, "mode", "TRENDING_DESC")
	assert.Error(t, err)
	assert.Equal(t, "ID_DESC", statusJSON(t, cfgPath)["mode"])
}

func TestCatalogAndLookup(t *testing.T) {
	cfgPath := writeTestConfig(t, newAniListStub(t).URL)
	_, err := runCLI(t, cfgPath, "sync")
	require.NoError(t, err)

	out, err := runCLI(t, cfgPath, "catalog", "--kind", "manga")
	require.NoError(t, err)
	assert.Contains(t, out, "Stub Manga")
	assert.NotContains(t, out, "Stub Anime")
	assert.NotContains(t, out, "Hidden")

	_, err = runCLI(t, cfgPath, "catalog", "--kind", "novel")
	assert.Error(t, err)

	out, err = runCLI(t, cfgPath, "lookup", "anilist:101")
	require.NoError(t, err)
	assert.Contains(t, out, "Stub Anime")

	out, err = runCLI(t, cfgPath, "lookup", "555")
	require.NoError(t, err)
	assert.Contains(t, out, "Looked Up")
	assert.Contains(t, out, "Year:   2020")
}

func TestSnapshotExportImport(t *testing.T) {
	cfgPath := writeTestConfig(t, newAniListStub(t).URL)
	_, err := runCLI(t, cfgPath, "sync")
	require.NoError(t, err)

	out, err := runCLI(t, cfgPath, "snapshot", "export", "--json")
	require.NoError(t, err)
	var exported map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	key := exported["key"].(string)
	assert.True(t, strings.HasPrefix(key, "snapshots/amtracker-"))

	out, err = runCLI(t, cfgPath, "snapshot", "list")
	require.NoError(t, err)
	assert.Contains(t, out, key)

	_, err = runCLI(t, cfgPath, "clear")
	require.NoError(t, err)
	assert.EqualValues(t, 0, statusJSON(t, cfgPath)["remote_total"])

	out, err = runCLI(t, cfgPath, "snapshot", "import", key)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 remote items")
	assert.EqualValues(t, 2, statusJSON(t, cfgPath)["remote_total"])
}

func TestEphemeralLeavesDatabaseUntouched(t *testing.T) {
	cfgPath := writeTestConfig(t, newAniListStub(t).URL)

	out, err := runCLI(t, cfgPath, "--ephemeral", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 2 items")

	status := statusJSON(t, cfgPath)
	assert.EqualValues(t, 0, status["remote_total"])
	assert.Nil(t, status["last_run"])
}
