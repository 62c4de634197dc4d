package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
)

func TestWriteAndVerify(t *testing.T) {
	is, dir := setupCommandTest(t)
	output := filepath.Join(dir, "out")
	metrics := filepath.Join(dir, "metrics.prom")

	var out bytes.Buffer
	code := run(context.Background(), []string{
		"write",
		"--config", filepath.Join(dir, "config.yaml"),
		"--ontology", filepath.Join(dir, "hierarchy.yaml"),
		"--input", filepath.Join(dir, "entities.jsonl"),
		"--output", output,
		"--metrics-file", metrics,
	}, &out)

	is.Equal(code, exitOK)
	is.True(strings.Contains(out.String(), "Protein")) // should print a summary per type

	header, err := os.ReadFile(filepath.Join(output, "Protein-header.csv"))
	is.NoErr(err)
	is.Equal(string(header), "UniProtKB:ID;name;:Protein|:Polypeptide")

	promText, err := os.ReadFile(metrics)
	is.NoErr(err)
	is.True(strings.Contains(string(promText), "graph_batch_writer_rows_written_total")) // should export the writer metrics

	out.Reset()
	code = run(context.Background(), []string{"verify", "--output", output, "--type", "Protein"}, &out)
	is.Equal(code, exitOK)
	is.Equal(out.String(), "Protein: 2 rows in 1 parts, 3 columns\n")
}

func TestWriteFailsInStrictMode(t *testing.T) {
	is, dir := setupCommandTest(t)
	writeFile(is, dir, "bad.jsonl", `{"id":"x","label":"gizmo"}`+"\n")

	code := run(context.Background(), []string{
		"write",
		"--config", filepath.Join(dir, "config.yaml"),
		"--input", filepath.Join(dir, "bad.jsonl"),
		"--output", filepath.Join(dir, "out"),
	}, &bytes.Buffer{})

	is.Equal(code, exitFailure) // should fail on unknown labels

	code = run(context.Background(), []string{
		"write",
		"--config", filepath.Join(dir, "config.yaml"),
		"--input", filepath.Join(dir, "bad.jsonl"),
		"--output", filepath.Join(dir, "out"),
		"--lenient",
	}, &bytes.Buffer{})

	is.Equal(code, exitOK) // should skip unknown labels in lenient mode
}

func TestMissingConfig(t *testing.T) {
	is, dir := setupCommandTest(t)

	code := run(context.Background(), []string{"write", "--config", filepath.Join(dir, "missing.yaml")}, &bytes.Buffer{})
	is.Equal(code, exitConfig)
}

func TestUsage(t *testing.T) {
	is := is.New(t)

	is.Equal(run(context.Background(), []string{}, &bytes.Buffer{}), exitUsage)
	is.Equal(run(context.Background(), []string{"launch"}, &bytes.Buffer{}), exitUsage)
	is.Equal(run(context.Background(), []string{"verify"}, &bytes.Buffer{}), exitUsage) // should require a type
}

func TestVerifyDetectsBrokenParts(t *testing.T) {
	is, dir := setupCommandTest(t)
	writeFile(is, dir, "T-header.csv", "id:ID;a;:T")
	writeFile(is, dir, "T-part000.csv", "1;T\n")

	code := run(context.Background(), []string{"verify", "--output", dir, "--type", "T"}, &bytes.Buffer{})
	is.Equal(code, exitFailure)
}

func setupCommandTest(t *testing.T) (*is.I, string) {
	is := is.New(t)
	dir := t.TempDir()

	writeFile(is, dir, "config.yaml", configFile)
	writeFile(is, dir, "hierarchy.yaml", hierarchyFile)
	writeFile(is, dir, "entities.jsonl", entitiesFile)

	return is, dir
}

func writeFile(is *is.I, dir, name, content string) {
	is.NoErr(os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const configFile string = `
schema:
  Protein:
    preferred_id: UniProtKB
    label_in_input: protein
  PostTranslationalInteraction:
    represented_as: edge
    preferred_id: PLID
    label_in_input: POST_TRANSLATIONAL
`

const hierarchyFile string = `
classes:
  polypeptide: {}
  protein:
    is_a: polypeptide
`

const entitiesFile string = `{"id":"P1","label":"protein","properties":{"name":"first"}}
{"id":"P2","label":"protein","properties":{"name":"second"}}
{"label":"POST_TRANSLATIONAL","source":"P1","target":"P2"}
`
