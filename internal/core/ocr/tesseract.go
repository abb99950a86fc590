package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/common"
)

// TesseractCLI drives the tesseract binary, asking for TSV output so that
// per-line confidences survive.
type TesseractCLI struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewTesseractCLI returns a CLI-backed engine. A nil runner uses os/exec.
func NewTesseractCLI(cfg Config, runner Runner, logger *slog.Logger) *TesseractCLI {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractCLI{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

func (t *TesseractCLI) Name() string { return "tesseract-cli" }

func (t *TesseractCLI) args(imgPath string) []string {
	args := []string{imgPath, "stdout", "-l", t.cfg.langArg()}
	if t.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.cfg.PSM))
	}
	if t.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.cfg.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	return append(args, "tsv")
}

func (t *TesseractCLI) Recognize(ctx context.Context, img *image.Gray) ([]Line, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, nil
	}
	f, err := os.CreateTemp(t.cfg.TempDir, "lcablesync-ocr-*.png")
	if err != nil {
		return nil, common.StageError(common.ErrRecognition, "create temp image", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, common.StageError(common.ErrRecognition, "encode temp image", err)
	}
	if err := f.Close(); err != nil {
		return nil, common.StageError(common.ErrRecognition, "close temp image", err)
	}

	stdout, stderr, err := t.runner.Run(ctx, t.cfg.Binary, t.logger, t.args(path)...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, common.StageError(common.ErrRecognition,
			fmt.Sprintf("tesseract: %s", Truncate(strings.TrimSpace(string(stderr)), 512)), err)
	}
	lines, err := ParseTSV(stdout)
	if err != nil {
		return nil, common.StageError(common.ErrRecognition, "parse tesseract tsv", err)
	}
	t.logger.Debug("tesseract recognized", "lines", len(lines))
	return lines, nil
}

type tsvKey struct{ page, block, par, line int }

type tsvGroup struct {
	key   tsvKey
	order int
	words []string
	conf  float64
	n     int
}

// ParseTSV groups word rows of tesseract TSV output into lines, keeping the
// engine's reading order. Line confidence is the mean word confidence scaled
// to 0..1; words reported with confidence -1 are not counted.
func ParseTSV(data []byte) ([]Line, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	groups := map[tsvKey]*tsvGroup{}
	header := true
	for sc.Scan() {
		row := sc.Text()
		if header {
			header = false
			if strings.HasPrefix(row, "level") {
				continue
			}
		}
		cols := strings.Split(row, "\t")
		if len(cols) < 12 {
			continue
		}
		level, err := strconv.Atoi(cols[0])
		if err != nil {
			return nil, fmt.Errorf("bad level %q: %w", cols[0], err)
		}
		if level != 5 {
			continue
		}
		word := strings.TrimSpace(cols[11])
		if word == "" {
			continue
		}
		var k tsvKey
		k.page, _ = strconv.Atoi(cols[1])
		k.block, _ = strconv.Atoi(cols[2])
		k.par, _ = strconv.Atoi(cols[3])
		k.line, _ = strconv.Atoi(cols[4])

		g, ok := groups[k]
		if !ok {
			g = &tsvGroup{key: k, order: len(groups)}
			groups[k] = g
		}
		g.words = append(g.words, word)
		if c, err := strconv.ParseFloat(cols[10], 64); err == nil && c >= 0 {
			g.conf += c
			g.n++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*tsvGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].order < ordered[j].order })

	out := make([]Line, 0, len(ordered))
	for _, g := range ordered {
		text := strings.Join(g.words, " ")
		if IsNoise(text) {
			continue
		}
		l := Line{Text: text, Provenance: constants.ProvenanceOCR}
		if g.n > 0 {
			l.Confidence = g.conf / float64(g.n) / 100
			l.Scored = true
		}
		out = append(out, l)
	}
	return out, nil
}
