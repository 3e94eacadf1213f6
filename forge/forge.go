// Package forge orchestrates the pipeline from ReqIF input to test-case
// CSV: extract artifacts, fold them into requirement units, render a prompt
// per unit, call the generation model, and write the assembled cases.
//
// Usage:
//
//	f, err := forge.New(forge.Config{Model: "llama3.1:8b"})
//	res, err := f.ProcessFile(ctx, "door_control.reqifz")
//	fmt.Println(res.Cases, "test cases in", res.Output)
package forge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/reqsmith/reqsmith/idgen"
	"github.com/reqsmith/reqsmith/ollama"
	"github.com/reqsmith/reqsmith/prompt"
	"github.com/reqsmith/reqsmith/reqif"
	"github.com/reqsmith/reqsmith/runlog"
	"github.com/reqsmith/reqsmith/testcase"
)

// Forge is the pipeline orchestrator.
type Forge struct {
	cfg        Config
	extractor  *reqif.Extractor
	prompts    *prompt.Store
	gen        ollama.Generator
	ledger     *runlog.Store
	logger     *slog.Logger
	newBatchID idgen.Generator
}

// Result summarizes one processed input file.
type Result struct {
	Input     string `json:"input"`
	Output    string `json:"output,omitempty"`
	Artifacts int    `json:"artifacts"`
	Units     int    `json:"units"`
	Cases     int    `json:"cases"`
}

// BatchResult summarizes a directory run. Failed maps input path to the
// error that stopped it; the rest of the batch still ran.
type BatchResult struct {
	Results []*Result         `json:"results"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// New wires the pipeline from config.
func New(cfg Config) (*Forge, error) {
	cfg.defaults()

	prompts, err := prompt.New(cfg.PromptConfig, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	f := &Forge{
		cfg:        cfg,
		extractor:  reqif.New(reqif.Config{MaxFileSize: cfg.MaxFileSize, Logger: cfg.Logger}),
		prompts:    prompts,
		gen:        ollama.New(cfg.Ollama),
		logger:     cfg.Logger,
		newBatchID: idgen.Timestamped(idgen.UUIDv7()),
	}

	if cfg.RunDB != "" {
		ledger, err := runlog.Open(cfg.RunDB)
		if err != nil {
			return nil, fmt.Errorf("open run ledger: %w", err)
		}
		f.ledger = ledger
	}
	return f, nil
}

// Close releases the run ledger, if any.
func (f *Forge) Close() error {
	if f.ledger != nil {
		return f.ledger.Close()
	}
	return nil
}

// Prompts exposes the template store for listing and validation commands.
func (f *Forge) Prompts() *prompt.Store { return f.prompts }

// Generator exposes the generation client for model listing.
func (f *Forge) Generator() ollama.Generator { return f.gen }

// Ledger returns the run ledger, or nil when none is configured.
func (f *Forge) Ledger() *runlog.Store { return f.ledger }

// ProcessFile runs the whole pipeline for one input file. Extraction
// failures are fatal for the file; generation failures cost the affected
// unit its cases and nothing else. A file producing zero cases writes no
// CSV.
func (f *Forge) ProcessFile(ctx context.Context, path string) (*Result, error) {
	runID := f.beginRun(ctx, path)

	res, err := f.processFile(ctx, path)
	if err != nil {
		f.failRun(ctx, runID, err)
		return nil, err
	}

	f.finishRun(ctx, runID, res)
	return res, nil
}

func (f *Forge) processFile(ctx context.Context, path string) (*Result, error) {
	f.logger.Info("processing file", "path", path, "model", f.gen.Model())

	artifacts, err := f.extractor.ExtractFile(ctx, path)
	if err != nil {
		return nil, err
	}
	res := &Result{Input: path, Artifacts: len(artifacts)}
	if len(artifacts) == 0 {
		f.logger.Warn("no artifacts in file, skipping", "path", path)
		return res, nil
	}

	units := reqif.Sequence(artifacts)
	res.Units = len(units)
	f.logger.Info("artifacts sequenced",
		"path", path, "artifacts", len(artifacts), "units", len(units))

	builder := testcase.NewBuilder(f.cfg.Defaults)
	var cases []testcase.Case
	for i, unit := range units {
		generated := f.generateUnit(ctx, unit, i, len(units))
		for _, raw := range generated {
			cases = append(cases, builder.Build(raw, unit.Requirement.ID))
		}
	}
	res.Cases = len(cases)

	if len(cases) == 0 {
		f.logger.Warn("no test cases generated for file", "path", path)
		return res, nil
	}

	out := f.outputPath(path)
	file, err := os.Create(out)
	if err != nil {
		return nil, fmt.Errorf("create output %s: %w", out, err)
	}
	defer file.Close()
	if err := testcase.WriteCSV(file, cases); err != nil {
		return nil, fmt.Errorf("write output %s: %w", out, err)
	}
	res.Output = out

	f.logger.Info("file processed", "path", path, "cases", len(cases), "output", out)
	return res, nil
}

// generateUnit renders, calls the model, and parses one unit. Any failure
// is logged and yields zero cases; the file's remaining units proceed.
func (f *Forge) generateUnit(ctx context.Context, unit reqif.Unit, index, total int) []testcase.Raw {
	id := unit.Requirement.ID
	f.logger.Debug("generating unit", "requirement", id, "index", index+1, "total", total)

	rendered, err := f.prompts.Render(f.cfg.Template, f.promptVars(unit))
	if err != nil {
		f.logger.Error("prompt render failed", "requirement", id, "error", err)
		return nil
	}
	f.logger.Debug("prompt rendered", "requirement", id, "template", f.prompts.LastSelected())

	response, err := f.gen.Generate(ctx, rendered)
	if err != nil {
		f.logger.Error("generation failed", "requirement", id, "error", err)
		return nil
	}

	raws, err := testcase.ExtractJSON(response, f.logger)
	if err != nil {
		f.logger.Error("model response unusable", "requirement", id, "error", err)
		return nil
	}
	f.logger.Info("unit generated", "requirement", id, "cases", len(raws))
	return raws
}

// promptVars builds the variable set the templates substitute.
func (f *Forge) promptVars(unit reqif.Unit) map[string]string {
	table := unit.Requirement.Table
	return map[string]string{
		"heading":              unit.Heading,
		"requirement_id":       unit.Requirement.ID,
		"table_str":            formatTable(table),
		"row_count":            strconv.Itoa(len(table.Rows)),
		"voltage_precondition": strings.ReplaceAll(f.cfg.Defaults.VoltagePrecondition, "\n", "\\n"),
		"info_str":             formatNotes(unit.Notes),
		"interface_str":        formatInterfaces(unit.Interfaces),
	}
}

func formatTable(t *reqif.Table) string {
	var sb strings.Builder
	sb.WriteString("Headers: ")
	sb.WriteString(strings.Join(t.Headers, ", "))
	sb.WriteByte('\n')
	for i, row := range t.Rows {
		fmt.Fprintf(&sb, "Row %d: %v\n", i+1, row)
	}
	return sb.String()
}

func formatNotes(notes []reqif.Artifact) string {
	if len(notes) == 0 {
		return "None"
	}
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = "- " + n.Text
	}
	return strings.Join(lines, "\n")
}

func formatInterfaces(interfaces []reqif.Artifact) string {
	if len(interfaces) == 0 {
		return "None"
	}
	lines := make([]string, len(interfaces))
	for i, itf := range interfaces {
		lines[i] = fmt.Sprintf("- %s: %s", itf.ID, itf.Text)
	}
	return strings.Join(lines, "\n")
}

// outputPath names the CSV for an input: "{stem}_TCD_{model}.csv" with ":"
// and "." in the model name flattened, next to the input or in OutputDir.
func (f *Forge) outputPath(input string) string {
	model := strings.NewReplacer(":", "_", ".", "_").Replace(f.gen.Model())
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	name := fmt.Sprintf("%s_TCD_%s.csv", stem, model)
	if f.cfg.OutputDir != "" {
		return filepath.Join(f.cfg.OutputDir, name)
	}
	return filepath.Join(filepath.Dir(input), name)
}

// ProcessBatch processes a single file, or every .reqifz under a directory
// recursively (sorted). Per-file errors are recorded and skipped; the batch
// always continues.
func (f *Forge) ProcessBatch(ctx context.Context, path string) (*BatchResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		matches, err := doublestar.Glob(os.DirFS(path), "**/*.reqifz")
		if err != nil {
			return nil, fmt.Errorf("discover inputs in %s: %w", path, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no .reqifz files in %s", path)
		}
		sort.Strings(matches)
		files = make([]string, len(matches))
		for i, m := range matches {
			files[i] = filepath.Join(path, filepath.FromSlash(m))
		}
	}

	batchID := f.newBatchID()
	f.logger.Info("batch started", "batch", batchID, "files", len(files))

	batch := &BatchResult{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		res, err := f.ProcessFile(ctx, file)
		if err != nil {
			f.logger.Error("file failed, batch continues", "batch", batchID, "path", file, "error", err)
			if batch.Failed == nil {
				batch.Failed = make(map[string]string)
			}
			batch.Failed[file] = err.Error()
			continue
		}
		batch.Results = append(batch.Results, res)
	}
	f.logger.Info("batch finished",
		"batch", batchID, "processed", len(batch.Results), "failed", len(batch.Failed))
	return batch, nil
}

// --- run ledger glue; ledger failures never abort processing ---

func (f *Forge) beginRun(ctx context.Context, path string) string {
	if f.ledger == nil {
		return ""
	}
	id, err := f.ledger.Begin(ctx, path, f.gen.Model(), f.cfg.Template)
	if err != nil {
		f.logger.Warn("run ledger begin failed", "error", err)
		return ""
	}
	return id
}

func (f *Forge) finishRun(ctx context.Context, id string, res *Result) {
	if f.ledger == nil || id == "" {
		return
	}
	counts := runlog.Counts{Artifacts: res.Artifacts, Units: res.Units, Cases: res.Cases}
	if err := f.ledger.Finish(ctx, id, counts, res.Output); err != nil {
		f.logger.Warn("run ledger finish failed", "error", err)
	}
}

func (f *Forge) failRun(ctx context.Context, id string, runErr error) {
	if f.ledger == nil || id == "" {
		return
	}
	if err := f.ledger.Fail(ctx, id, runErr); err != nil {
		f.logger.Warn("run ledger fail failed", "error", err)
	}
}
