package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadSourcesSeparatesDefinesFromRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.pred")
	content := "; a comment\n\n(define 'lookup' 'name' (var (ref 'name')))\n(lookup 'X')\n(var 'Y')\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	defines, rules, err := readSources([]string{path})
	require.NoError(t, err)
	require.Equal(t, []string{"(define 'lookup' 'name' (var (ref 'name')))"}, defines)
	require.Equal(t, []string{"(lookup 'X')", "(var 'Y')"}, rules)
}

func TestReadSourcesAcrossMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	path1 := filepath.Join(dir, "a.pred")
	path2 := filepath.Join(dir, "b.pred")
	require.NoError(t, os.WriteFile(path1, []byte("(var 'X')\n"), 0o644))
	require.NoError(t, os.WriteFile(path2, []byte("(var 'Y')\n"), 0o644))

	_, rules, err := readSources([]string{path1, path2})
	require.NoError(t, err)
	require.Equal(t, []string{"(var 'X')", "(var 'Y')"}, rules)
}

func TestReadSourcesMissingFileErrors(t *testing.T) {
	_, _, err := readSources([]string{"/nonexistent/path.pred"})
	require.Error(t, err)
}

func TestParseVarValueParsesIntegers(t *testing.T) {
	v := parseVarValue("42")
	require.Equal(t, int64(42), v.Num())
}

func TestParseVarValueFallsBackToString(t *testing.T) {
	v := parseVarValue("hello")
	require.Equal(t, "hello", string(v.Str()))
}

func TestVarFlagsSetRejectsMissingEquals(t *testing.T) {
	v := make(varFlags)
	err := v.Set("nokeyvalue")
	require.Error(t, err)
}

func TestVarFlagsSetStoresPair(t *testing.T) {
	v := make(varFlags)
	require.NoError(t, v.Set("X=1"))
	require.Equal(t, "1", v["X"])
}
