package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/chunkline/ai/mock"
	"github.com/poiesic/chunkline/enrich"
	"github.com/poiesic/chunkline/project"
	"github.com/poiesic/chunkline/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	embeddedLine = `{"chunk_index":0,"content":"Already done","source_title":"Orthodoxy","author":"Chesterton","year":1908,"genre":"apologetics","structure_path":["I"],"embedding":[0.5,0.25],"metadata":{"source_type":"primary","syntopicon_tags":["faith"],"rhetorical_function":"thesis","scripture_refs":[],"topics":["faith"],"entities":[]}}`
	freshLine    = `{"chunk_index":1,"content":"Needs an embedding","source_title":"Orthodoxy","author":"Chesterton","year":1908,"genre":"apologetics","structure_path":["II"],"metadata":{"source_type":"primary","syntopicon_tags":["reason"],"rhetorical_function":"argument","scripture_refs":["Jn 1:1"],"topics":["reason"],"entities":["Chesterton"],"note":"internal"}}`
	brokenLine   = `{"chunk_index":2,"content":"truncated`
)

func threeLineInput() string {
	return embeddedLine + "\n" + freshLine + "\n" + brokenLine + "\n"
}

func newEnricher(t *testing.T, embedder *mock.MockEmbedder) *enrich.Enricher {
	t.Helper()
	e, err := enrich.New(embedder, enrich.WithDelay(0))
	require.NoError(t, err)
	return e
}

func newPipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	p, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func outputLines(t *testing.T, data string) []string {
	t.Helper()
	var lines []string
	sc := bufio.NewScanner(strings.NewReader(data))
	sc.Buffer(make([]byte, 1024*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestMode(t *testing.T) {
	e := newEnricher(t, mock.NewMockEmbedder())
	projector, err := project.New("ns")
	require.NoError(t, err)

	assert.Equal(t, ModePassthrough, newPipeline(t).Mode())
	assert.Equal(t, ModeEmbed, newPipeline(t, WithEnricher(e)).Mode())
	assert.Equal(t, ModeConvert, newPipeline(t, WithProjector(projector)).Mode())
	assert.Equal(t, ModeConvert, newPipeline(t, WithDerivedNamespace()).Mode())
	assert.Equal(t, ModePrepare, newPipeline(t, WithEnricher(e), WithDerivedNamespace()).Mode())
}

func TestRun_EmbedEndToEnd(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	p := newPipeline(t, WithEnricher(newEnricher(t, embedder)))

	var out bytes.Buffer
	dst := sink.NewWriter(&out)
	summary, err := p.Run(context.Background(), strings.NewReader(threeLineInput()), dst)
	require.NoError(t, err)

	lines := outputLines(t, out.String())
	require.Len(t, lines, 2)
	assert.Equal(t, embeddedLine, lines[0], "skipped records are written byte for byte")

	var enriched map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &enriched))
	assert.Len(t, enriched["embedding"], mock.DefaultDimensions)
	assert.Equal(t, "internal", enriched["metadata"].(map[string]any)["note"], "embed keeps the record shape")

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Errored)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 3, summary.Errors[0].Line)
	assert.Equal(t, []string{"Needs an embedding"}, embedder.Texts())
}

func TestRun_RerunIsNoop(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	p := newPipeline(t, WithEnricher(newEnricher(t, embedder)))

	var first bytes.Buffer
	_, err := p.Run(context.Background(), strings.NewReader(embeddedLine+"\n"+freshLine+"\n"), sink.NewWriter(&first))
	require.NoError(t, err)
	calls := embedder.CallCount()

	var second bytes.Buffer
	summary, err := p.Run(context.Background(), strings.NewReader(first.String()), sink.NewWriter(&second))
	require.NoError(t, err)

	assert.Equal(t, calls, embedder.CallCount())
	assert.Equal(t, 2, summary.Skipped)
	assert.Zero(t, summary.Processed)
	assert.Equal(t, first.String(), second.String())
}

// preciseLine carries values float32 cannot hold: full float64 precision,
// a value that underflows float32 and one beyond its maximum.
const (
	preciseVector = `[0.012345678901234567,-0.0069292830303311348,1e-50,1e40]`
	preciseLine   = `{"chunk_index":4,"content":"Precise","source_title":"Orthodoxy","author":"Chesterton","year":1908,"genre":"apologetics","structure_path":["IV"],"embedding":` + preciseVector + `,"metadata":{"source_type":"primary","syntopicon_tags":[],"rhetorical_function":"thesis","scripture_refs":[],"topics":[],"entities":[]}}`
)

func TestRun_EmbedSkipsPreciseVectorVerbatim(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	p := newPipeline(t, WithEnricher(newEnricher(t, embedder)))

	var out bytes.Buffer
	summary, err := p.Run(context.Background(), strings.NewReader(preciseLine+"\n"), sink.NewWriter(&out))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Errored)
	assert.Zero(t, embedder.CallCount())
	assert.Equal(t, []string{preciseLine}, outputLines(t, out.String()))
}

func TestRun_ProjectionKeepsEmbeddingDigits(t *testing.T) {
	for _, withEnricher := range []bool{false, true} {
		name := "convert"
		opts := []Option{WithDerivedNamespace()}
		if withEnricher {
			name = "prepare"
			opts = append(opts, WithEnricher(newEnricher(t, mock.NewMockEmbedder())))
		}
		t.Run(name, func(t *testing.T) {
			p := newPipeline(t, opts...)
			dir := t.TempDir()
			out := filepath.Join(dir, "orthodoxy_qdrant.jsonl")
			in := filepath.Join(dir, "orthodoxy_embeddings.jsonl")
			require.NoError(t, os.WriteFile(in, []byte(preciseLine+"\n"), 0o644))

			summary, err := p.RunFile(context.Background(), in, out)
			require.NoError(t, err)
			assert.Equal(t, 1, summary.Written)
			assert.Equal(t, "orthodoxy", summary.Namespace)

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			var projected struct {
				ID        string          `json:"id"`
				Embedding json.RawMessage `json:"embedding"`
			}
			require.NoError(t, json.Unmarshal(data, &projected))
			assert.Equal(t, "orthodoxy_4", projected.ID)
			assert.Equal(t, preciseVector, string(projected.Embedding))
		})
	}
}

func TestRun_ConvertProjects(t *testing.T) {
	projector, err := project.New("orthodoxy")
	require.NoError(t, err)
	p := newPipeline(t, WithProjector(projector))

	var out bytes.Buffer
	summary, err := p.Run(context.Background(), strings.NewReader(threeLineInput()), sink.NewWriter(&out))
	require.NoError(t, err)

	lines := outputLines(t, out.String())
	require.Len(t, lines, 1, "the record without an embedding fails projection")
	assert.Contains(t, lines[0], `"id":"orthodoxy_0"`)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 2, summary.Errored)
}

func TestRun_PrepareProjectsEverything(t *testing.T) {
	projector, err := project.New("orthodoxy")
	require.NoError(t, err)
	p := newPipeline(t, WithEnricher(newEnricher(t, mock.NewMockEmbedder())), WithProjector(projector))

	var out bytes.Buffer
	summary, err := p.Run(context.Background(), strings.NewReader(threeLineInput()), sink.NewWriter(&out))
	require.NoError(t, err)

	lines := outputLines(t, out.String())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"id":"orthodoxy_0"`)
	assert.Contains(t, lines[1], `"id":"orthodoxy_1"`)
	assert.NotContains(t, lines[1], "internal", "unrecognized metadata is dropped")
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Errored)
}

func TestRun_MalformedLineIsolated(t *testing.T) {
	p := newPipeline(t)

	input := `{"content":"a"}` + "\n" + `{not json}` + "\n" + `{"content":"b"}` + "\n"
	var out bytes.Buffer
	summary, err := p.Run(context.Background(), strings.NewReader(input), sink.NewWriter(&out))
	require.NoError(t, err)

	assert.Equal(t, []string{`{"content":"a"}`, `{"content":"b"}`}, outputLines(t, out.String()))
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 2, summary.Errors[0].Line)
}

func TestRun_EmbedderFailureContinues(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "bad" {
			return nil, errors.New("rate limited")
		}
		return []float32{1, 2}, nil
	}
	p := newPipeline(t, WithEnricher(newEnricher(t, embedder)))

	input := `{"content":"ok"}` + "\n" + `{"content":"bad"}` + "\n" + `{"content":"ok too"}` + "\n"
	var out bytes.Buffer
	summary, err := p.Run(context.Background(), strings.NewReader(input), sink.NewWriter(&out))
	require.NoError(t, err)

	lines := outputLines(t, out.String())
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"content":"ok"`)
	assert.Contains(t, lines[1], `"content":"ok too"`)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Errored)
	assert.Contains(t, summary.Errors[0].Detail, "rate limited")
}

type failingWriter struct{ writes int }

func (f *failingWriter) Write(v any) error { return f.fail() }

func (f *failingWriter) WriteRaw(line []byte) error { return f.fail() }

func (f *failingWriter) Lines() int { return min(f.writes, 1) }

func (f *failingWriter) Close() error { return nil }

func (f *failingWriter) fail() error {
	f.writes++
	if f.writes > 1 {
		return errors.New("disk full")
	}
	return nil
}

func TestRun_SinkFailureAborts(t *testing.T) {
	p := newPipeline(t)
	input := `{"content":"a"}` + "\n" + `{"content":"b"}` + "\n" + `{"content":"c"}` + "\n"

	dst := &failingWriter{}
	summary, err := p.Run(context.Background(), strings.NewReader(input), dst)
	require.ErrorIs(t, err, ErrSinkWrite)
	assert.Equal(t, 2, dst.writes, "no record is attempted after the failure")
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Written)
}

func TestRun_CancelledStopsBetweenRecords(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(context.Context, string) ([]float32, error) {
		cancel()
		return []float32{1}, nil
	}
	p := newPipeline(t, WithEnricher(newEnricher(t, embedder)))

	input := `{"content":"a"}` + "\n" + `{"content":"b"}` + "\n"
	var out bytes.Buffer
	summary, err := p.Run(ctx, strings.NewReader(input), sink.NewWriter(&out))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, outputLines(t, out.String()), 1, "output stays a complete prefix")
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, embedder.CallCount())
}

func TestRun_DerivedNamespaceNeedsFile(t *testing.T) {
	p := newPipeline(t, WithDerivedNamespace())
	_, err := p.Run(context.Background(), strings.NewReader(""), sink.NewWriter(io.Discard))
	assert.ErrorIs(t, err, project.ErrInvalidNamespace)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Orthodoxy.jsonl")
	writeFile(t, in, threeLineInput())

	var progress bytes.Buffer
	p := newPipeline(t,
		WithEnricher(newEnricher(t, mock.NewMockEmbedder())),
		WithDerivedNamespace(),
		WithProgress(&progress, 1),
		WithSync(),
	)

	out := OutputPath(p.Mode(), in)
	summary, err := p.RunFile(context.Background(), in, out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := outputLines(t, string(data))
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"id":"orthodoxy_0"`)

	assert.Equal(t, in, summary.Input)
	assert.Equal(t, out, summary.Output)
	assert.Equal(t, "prepare", summary.Stage)
	assert.Contains(t, progress.String(), "Orthodoxy.jsonl: 3/3")
}

func TestRunFile_Errors(t *testing.T) {
	dir := t.TempDir()
	p := newPipeline(t)

	_, err := p.RunFile(context.Background(), filepath.Join(dir, "missing.jsonl"), filepath.Join(dir, "out.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	in := filepath.Join(dir, "in.jsonl")
	writeFile(t, in, "{}\n")
	_, err = p.RunFile(context.Background(), in, in)
	assert.ErrorIs(t, err, ErrSameFile)
}

func TestRunUpload(t *testing.T) {
	var received atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		received.Store(body.Content)
		_, _ = io.WriteString(w, `{"source_id":3,"chunks_created":5,"qdrant_uploaded":true}`)
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "orthodoxy_qdrant.jsonl")
	writeFile(t, in, `{"id":"a_0"}`+"\n"+`oops`+"\n"+`{"id":"a_1"}`+"\n")

	uploader, err := sink.NewUploader(srv.URL + "/upload-jsonl")
	require.NoError(t, err)

	summary, err := newPipeline(t).RunUpload(context.Background(), in, uploader)
	require.NoError(t, err)
	require.NotNil(t, summary.Upload)
	assert.Equal(t, 5, summary.Upload.ChunksCreated)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, `{"id":"a_0"}`+"\n"+`{"id":"a_1"}`+"\n", received.Load())
}

func TestRunUpload_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Failed to upload source"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	in := filepath.Join(dir, "orthodoxy_qdrant.jsonl")
	writeFile(t, in, `{"id":"a_0"}`+"\n")

	uploader, err := sink.NewUploader(srv.URL + "/upload-jsonl")
	require.NoError(t, err)

	summary, err := newPipeline(t).RunUpload(context.Background(), in, uploader)
	var ierr *sink.IngestionError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, http.StatusInternalServerError, ierr.StatusCode)
	assert.Nil(t, summary.Upload)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "a failed upload persists nothing")
}

func TestRunDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.jsonl"), freshLine+"\n")
	writeFile(t, filepath.Join(dir, "a.jsonl"), threeLineInput())
	writeFile(t, filepath.Join(dir, "a_embeddings.jsonl"), "stale\n")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	embedder := mock.NewMockEmbedder()
	p := newPipeline(t, WithEnricher(newEnricher(t, embedder)), WithPoolSize(2))

	results, err := p.RunDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, filepath.Join(dir, "a.jsonl"), results[0].Input)
	assert.Equal(t, filepath.Join(dir, "a_embeddings.jsonl"), results[0].Output)
	assert.Equal(t, 1, results[0].Summary.Processed)
	assert.Equal(t, 1, results[0].Summary.Skipped)
	assert.Equal(t, 1, results[0].Summary.Errored)

	assert.Equal(t, filepath.Join(dir, "b.jsonl"), results[1].Input)
	assert.Equal(t, 1, results[1].Summary.Processed)
	assert.Equal(t, 2, embedder.CallCount())

	data, err := os.ReadFile(filepath.Join(dir, "a_embeddings.jsonl"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestRunDir_NoInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x_qdrant.jsonl"), "{}\n")

	p := newPipeline(t, WithEnricher(newEnricher(t, mock.NewMockEmbedder())))
	_, err := p.RunDir(context.Background(), dir)
	assert.ErrorIs(t, err, ErrNoInputs)

	_, err = newPipeline(t).RunDir(context.Background(), dir)
	assert.ErrorIs(t, err, ErrUnknownMode)
}
